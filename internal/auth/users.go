package auth

import (
	"encoding/json"
	"fmt"
	"os"
)

// User is one record of the users file.
type User struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoadUsers reads the users file at path.
func LoadUsers(path string) ([]User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsersUnavailable, err)
	}
	var users []User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrUsersUnavailable, path, err)
	}
	return users, nil
}

// authenticate returns the user matching both username and password.
// Every candidate with the right username is checked so a duplicate entry
// with a different password still works.
func authenticate(users []User, username, password string) (User, bool) {
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if checkPassword(password, u.Password) {
			return u, true
		}
	}
	return User{}, false
}
