package middleware

// identity.go defines helper functions shared across middleware files.
// currentUserID pulls the subject stored by JWTAuth out of the Echo
// context so the rate limiter can key buckets per operator; "anon" is
// returned for unauthenticated requests.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// currentUserID extracts the authenticated user identifier from the
// context.  JWTAuth stores the raw "sub" claim, which the JWT library
// decodes as a float64 for numeric IDs; both string and numeric forms
// are handled.  Returns "anon" when no user is authenticated.
func currentUserID(c echo.Context) string {
	v := c.Get("user_id")
	if v == nil {
		return "anon"
	}
	switch t := v.(type) {
	case string:
		if t != "" {
			return t
		}
	case float64:
		return fmt.Sprintf("%.0f", t)
	}
	return "anon"
}
