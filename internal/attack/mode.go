package attack

import (
	"errors"
	"fmt"
)

// ErrUnknownMode is returned for an unsupported attack mode
var ErrUnknownMode = errors.New("unknown mode")

// Mode selects how candidates are produced
type Mode string

const (
	ModeDictionary  Mode = "dictionary"
	ModeBruteforce  Mode = "bruteforce"
	ModeRainbow     Mode = "rainbow"
	ModeCreateTable Mode = "create-table"
	ModeEnumerate   Mode = "enumerate"
	ModeHybrid      Mode = "hybrid"
)

// Modes lists every mode with a short description, in usage order
var Modes = []struct {
	Mode        Mode
	Description string
}{
	{ModeDictionary, "Dictionary attack with mutations"},
	{ModeBruteforce, "Brute force attack (parallelizable)"},
	{ModeRainbow, "Rainbow table attack"},
	{ModeCreateTable, "Create rainbow table from dictionary"},
	{ModeEnumerate, "Enumerate valid usernames"},
	{ModeHybrid, "Dictionary, then brute force if nothing was found"},
}

// ParseMode validates a mode name
func ParseMode(name string) (Mode, error) {
	for _, m := range Modes {
		if string(m.Mode) == name {
			return m.Mode, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// Utility reports whether the mode does not search for a password.
// Utility modes succeed once they complete.
func (m Mode) Utility() bool {
	return m == ModeCreateTable || m == ModeEnumerate
}
