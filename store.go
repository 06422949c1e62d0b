package session

import (
	"encoding/json"
)

// Storage keys shared with the front-end's persistent client storage.
const (
	StoreKeyLoggedIn = "isLoggedIn"
	StoreKeyUser     = "currentUser"
	StoreKeyToken    = "token"
)

// StoredState is what a TokenStore reconstructs on load. A zero value is
// the logged-out state.
type StoredState struct {
	IsLoggedIn bool
	User       *User
	Token      string
}

// decodeStoredState rebuilds a StoredState from the three raw storage
// values. Anything absent or unparsable yields the logged-out state and
// stale=true so the store can clear the leftover entries.
func decodeStoredState(loggedIn, rawUser, token string) (state StoredState, stale bool) {
	if loggedIn != "true" || token == "" || rawUser == "" {
		// Partial writes count as stale only when something was left behind.
		stale = loggedIn != "" || rawUser != "" || token != ""
		return StoredState{}, stale
	}

	user := &User{}
	if err := json.Unmarshal([]byte(rawUser), user); err != nil {
		return StoredState{}, true
	}

	return StoredState{IsLoggedIn: true, User: user, Token: token}, false
}

func encodeUser(user *User) (string, error) {
	raw, err := json.Marshal(user)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
