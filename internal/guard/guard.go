// Package guard implements the navigation-time access checks. Guards are
// pure functions of a session snapshot: they are re-evaluated on every
// navigation and never cache a decision.
package guard

import (
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/session"
)

// Well-known routes the guards redirect to.
const (
	// LoginRoute is where unauthenticated visitors are sent.
	LoginRoute = "/login"
	// HomeRoute is the default landing page for authenticated users.
	HomeRoute = "/dashboard"
)

// Action is the outcome of a guard check.
type Action int

const (
	// Allow renders the protected destination.
	Allow Action = iota
	// RedirectLogin sends the visitor to the login route, preserving the
	// originally intended destination for the post-login return.
	RedirectLogin
	// RedirectHome sends an authenticated but under-privileged visitor to
	// the default landing page.
	RedirectHome
)

// Decision is the result of evaluating a guard against a session snapshot.
type Decision struct {
	Action Action
	// Target is the route to redirect to; empty when Action is Allow.
	Target string
	// From is the originally intended destination, preserved on
	// RedirectLogin so a successful login can return the visitor there.
	From string
}

// Allowed reports whether the destination may render.
func (d Decision) Allowed() bool { return d.Action == Allow }

// Authenticated gates a destination on having a logged-in session.
func Authenticated(sess session.Session, destination string) Decision {
	if !sess.Authenticated {
		return Decision{Action: RedirectLogin, Target: LoginRoute, From: destination}
	}
	return Decision{Action: Allow}
}

// RoleRestricted gates a destination on both authentication and role
// membership. An unauthenticated visitor goes to login like Authenticated;
// an authenticated visitor with the wrong role goes to the landing page,
// not to login, since re-authenticating would not change the outcome.
func RoleRestricted(sess session.Session, destination string, allowed ...identity.Role) Decision {
	if !sess.Authenticated {
		return Decision{Action: RedirectLogin, Target: LoginRoute, From: destination}
	}
	if sess.User != nil {
		for _, role := range allowed {
			if sess.User.Role == role {
				return Decision{Action: Allow}
			}
		}
	}
	return Decision{Action: RedirectHome, Target: HomeRoute}
}
