package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/service"
)

var (
	signupName       string
	signupEmail      string
	signupPassword   string
	signupRole       string
	signupOTP        string
	signupRequestOTP bool
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	Long: `Create an account.

Self-service signup is a two-step flow:
  1. Request a one-time code, delivered by email:
       taskboard signup --email you@example.com --request-otp
  2. Complete the signup with the code:
       taskboard signup --name "You" --email you@example.com --otp 123456

An admin who is already signed in can create accounts directly, without an
OTP, and may assign a role:
  taskboard signup --name "New User" --email new@example.com --role user`,
	RunE: runSignup,
}

func init() {
	signupCmd.Flags().StringVar(&signupName, "name", "", "Display name")
	signupCmd.Flags().StringVar(&signupEmail, "email", "", "Account email")
	signupCmd.Flags().StringVar(&signupPassword, "password", "", "Account password (prompted when omitted)")
	signupCmd.Flags().StringVar(&signupRole, "role", "", "Role for admin-created accounts (admin|user)")
	signupCmd.Flags().StringVar(&signupOTP, "otp", "", "One-time code from the signup email")
	signupCmd.Flags().BoolVar(&signupRequestOTP, "request-otp", false, "Request a signup one-time code and exit")
	rootCmd.AddCommand(signupCmd)
}

func runSignup(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	email := signupEmail
	if email == "" {
		email = promptLine("Email: ")
	}

	if signupRequestOTP {
		if err := app.Auth.SendSignupOTP(app.ctx(cmd), email); err != nil {
			return err
		}
		fmt.Println("One-time code sent. Complete the signup with --otp.")
		return nil
	}

	// Direct creation without an OTP is the admin variant; gate it locally
	// before the backend rejects it anyway.
	if signupOTP == "" {
		if err := requireRole(app, "taskboard signup", identity.RoleAdmin); err != nil {
			return err
		}
	}

	name := signupName
	if name == "" {
		name = promptLine("Name: ")
	}
	password := signupPassword
	if password == "" {
		password = promptLine("Password: ")
	}

	payload := service.SignupPayload{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     identity.Role(signupRole),
		OTP:      signupOTP,
	}
	if err := app.Auth.Signup(app.ctx(cmd), payload); err != nil {
		return err
	}

	fmt.Println("Account created. Sign in with `taskboard login`.")
	return nil
}
