package handlers

import (
	"net/http"

	pkghttp "github.com/BradenHooton/gatekeeper/pkg/http"
)

// StateCounter reports how many usernames currently carry throttle state
type StateCounter interface {
	Len() int
}

// Health returns a liveness handler that also reports tracked usernames
func Health(states StateCounter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteJSON(w, http.StatusOK, map[string]any{
			"status":          "healthy",
			"trackedAccounts": states.Len(),
		})
	}
}
