package session

import (
	"github.com/google/uuid"
)

// User is the profile returned by the authentication service. It is opaque
// to this subsystem beyond being stored and exposed; role flags mirror what
// the GiraffeSpace API hands out.
type User struct {
	ID             string         `json:"userId"`
	Username       string         `json:"username,omitempty"`
	FirstName      string         `json:"firstName,omitempty"`
	LastName       string         `json:"lastName,omitempty"`
	Email          string         `json:"email,omitempty"`
	ProfilePicture string         `json:"profilePicture,omitempty"`
	IsOrganizer    bool           `json:"isOrganizer,omitempty"`
	IsAdmin        bool           `json:"isAdmin,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// UserUUID parses the profile id as a UUID.
func (u *User) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(u.ID)
}

// Clone returns a shallow copy with its own metadata map, so callers cannot
// mutate the manager's in-memory profile.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	clone := *u
	if u.Metadata != nil {
		clone.Metadata = make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
