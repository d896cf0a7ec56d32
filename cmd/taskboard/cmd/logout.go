package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear stored credentials",
	Long: `Revoke the refresh token server-side and clear the local credential store.

Logging out while already signed out is harmless.`,
	RunE: runLogout,
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

func runLogout(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Auth.Logout(app.ctx(cmd)); err != nil {
		return err
	}
	fmt.Println("Signed out.")
	return nil
}
