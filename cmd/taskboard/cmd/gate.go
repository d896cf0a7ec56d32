package cmd

import (
	"fmt"

	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/guard"
)

// requireAuth gates a command on an authenticated session. The destination
// names the command the user tried to run so the login hint can point back
// at it, mirroring the guards' preserved-destination redirect.
func requireAuth(app *App, destination string) error {
	decision := guard.Authenticated(app.Session.Current(), destination)
	if decision.Allowed() {
		return nil
	}
	return fmt.Errorf("not signed in: run `taskboard login`, then retry `%s`", decision.From)
}

// requireRole gates a command on authentication plus role membership.
// An authenticated user with the wrong role gets a permission error, not a
// login hint, since signing in again would not change anything.
func requireRole(app *App, destination string, roles ...identity.Role) error {
	decision := guard.RoleRestricted(app.Session.Current(), destination, roles...)
	switch decision.Action {
	case guard.Allow:
		return nil
	case guard.RedirectLogin:
		return fmt.Errorf("not signed in: run `taskboard login`, then retry `%s`", decision.From)
	default:
		return fmt.Errorf("permission denied: this command requires one of the roles %v", roles)
	}
}
