package dashboard

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnknownUser = errors.New("unknown user")

type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// MockUsers is the fixed list a user picks from at login.
var MockUsers = []User{
	{Username: "admin", Role: RoleMain},
	{Username: "coordinator.a", Role: RoleBandA},
	{Username: "coordinator.b", Role: RoleBandB},
}

// Session is the logged-in user.
type Session struct {
	User User
}

func (s Session) Role() Role { return s.User.Role }

// Login selects a mock user by name. There is no password.
func Login(username string) (Session, error) {
	for _, u := range MockUsers {
		if u.Username == username {
			return Session{User: u}, nil
		}
	}
	return Session{}, fmt.Errorf("%w: %q", ErrUnknownUser, username)
}

type sessionKey struct{}

func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}
