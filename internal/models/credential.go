package models

// Credential is one entry of the credential store file
type Credential struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Finding is the shared record written once a password is found.
// Sibling instances poll for it to stop their own search.
type Finding struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Timestamp  string `json:"timestamp"`
	InstanceID int    `json:"instanceId"`
	RunID      string `json:"runId,omitempty"`
}
