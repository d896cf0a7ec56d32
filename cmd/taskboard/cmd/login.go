package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the Taskboard backend",
	Long: `Sign in with your email and password.

On success the access and refresh tokens and your profile are stored in the
credential store, and subsequent commands run authenticated. Tokens are
refreshed silently when they expire.

Examples:
  # Prompt for both email and password
  taskboard login

  # Non-interactive (password read from the flag; prefer the prompt)
  taskboard login --email you@example.com --password secret`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	email := loginEmail
	if email == "" {
		email = promptLine("Email: ")
	}
	password := loginPassword
	if password == "" {
		password = promptLine("Password: ")
	}

	user, err := app.Auth.Login(app.ctx(cmd), email, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("Signed in as %s (%s)\n", user.Name, user.Role)
	return nil
}

// promptLine reads one line from stdin after printing the prompt to stderr,
// so piped stdout output stays clean.
func promptLine(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}
