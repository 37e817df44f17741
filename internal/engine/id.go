package engine

import "github.com/google/uuid"

// NewUserID returns a fresh anonymous user ID.
func NewUserID() string {
	return "user-" + uuid.NewString()
}
