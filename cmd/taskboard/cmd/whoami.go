package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-cli/internal/credstore"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
)

var whoamiRefresh bool

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Long: `Show the cached profile of the signed-in user, plus the access token's
expiry when the token is a readable JWT.

With --refresh the profile is re-fetched from the backend and the cached
copy updated.`,
	RunE: runWhoami,
}

func init() {
	whoamiCmd.Flags().BoolVar(&whoamiRefresh, "refresh", false, "Re-fetch the profile from the backend")
	rootCmd.AddCommand(whoamiCmd)
}

func runWhoami(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := requireAuth(app, "taskboard whoami"); err != nil {
		return err
	}

	user := app.Session.Current().User
	if whoamiRefresh {
		user, err = app.Auth.Me(app.ctx(cmd))
		if err != nil {
			return err
		}
	}

	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	fmt.Printf("  Role:     %s\n", user.Role)
	fmt.Printf("  Verified: %t\n", user.Verified)
	printTokenExpiry(app)
	return nil
}

// printTokenExpiry shows when the current access token runs out. Opaque
// tokens are fine; the refresh pipeline handles expiry either way.
func printTokenExpiry(app *App) {
	token, ok, err := app.Store.Get(credstore.KeyAccessToken)
	if err != nil || !ok || token == "" {
		return
	}
	info, err := identity.PeekToken(token)
	if err != nil || info.ExpiresAt.IsZero() {
		return
	}
	if info.Expired(time.Now()) {
		fmt.Println("  Token:    expired (will refresh on next request)")
		return
	}
	fmt.Printf("  Token:    expires %s\n", info.ExpiresAt.Local().Format(time.RFC1123))
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List all accounts (admin only)",
	RunE:  runUsers,
}

func init() {
	rootCmd.AddCommand(usersCmd)
}

func runUsers(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := requireRole(app, "taskboard users", identity.RoleAdmin); err != nil {
		return err
	}

	users, err := app.Auth.ListUsers(app.ctx(cmd))
	if err != nil {
		return err
	}

	for _, u := range users {
		verified := ""
		if !u.Verified {
			verified = " (unverified)"
		}
		fmt.Printf("%-26s %-30s %s%s\n", u.ID, u.Email, u.Role, verified)
	}
	return nil
}
