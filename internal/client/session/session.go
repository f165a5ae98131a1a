package session

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/autoservice/internal/client/api"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

var (
	ErrNoToken     = errors.New("authentication response carried no token")
	ErrNotLoggedIn = errors.New("not logged in")
)

// Identity is the cached user record stored under KeyUser.
type Identity struct {
	ID        int64  `json:"id,omitempty"`
	Token     string `json:"token,omitempty"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Phone     string `json:"phone,omitempty"`
}

func (i Identity) DisplayName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Email
	}
	return name
}

type Session struct {
	Token string
	User  Identity
}

// IdentityPatch carries the identity fields mirrored from the profile.
// Empty fields are left unchanged.
type IdentityPatch struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Result is the outcome of Login and Register.
type Result struct {
	Success bool
	Error   string
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Role      string `json:"role,omitempty"`
}

// authPayload is the body returned by /auth/login and /auth/register.
type authPayload struct {
	ID        int64  `json:"id"`
	Token     string `json:"token"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
}

// Navigator moves the presentation layer between its entry points.
type Navigator interface {
	ToLogin()
	ToDashboard()
}

type NopNavigator struct{}

func (NopNavigator) ToLogin()     {}
func (NopNavigator) ToDashboard() {}

// Doer issues api requests; *api.Client implements it.
type Doer interface {
	Do(ctx context.Context, r api.Request) (*api.Response, error)
}

// IdentityListener observes identity changes. prev or next is nil when the
// session starts or ends.
type IdentityListener func(ctx context.Context, prev, next *Identity)

// tokenClaims extracts expiry and the numeric user id from a JWT without
// verifying it; the backend remains the authority on validity. Opaque
// tokens yield zero values.
func tokenClaims(token string) (exp time.Time, userID int64) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, 0
	}
	if e, err := claims.GetExpirationTime(); err == nil && e != nil {
		exp = e.Time
	}
	for _, name := range []string{"id", "userId", "user_id", "sub"} {
		switch v := claims[name].(type) {
		case float64:
			if v > 0 {
				return exp, int64(v)
			}
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
				return exp, n
			}
		}
	}
	return exp, 0
}
