package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskboard/taskboard-cli/internal/service"
)

var (
	forgotEmail string

	resetEmail    string
	resetOTP      string
	resetPassword string
)

var forgotPasswordCmd = &cobra.Command{
	Use:   "forgot-password",
	Short: "Request a password reset code",
	Long: `Request a one-time password reset code, delivered by email.
Consume it with ` + "`taskboard reset-password`" + `.`,
	RunE: runForgotPassword,
}

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password",
	Short: "Reset the password with a one-time code",
	Long: `Set a new password using the one-time code from the reset email.

Example:
  taskboard reset-password --email you@example.com --otp 123456`,
	RunE: runResetPassword,
}

func init() {
	forgotPasswordCmd.Flags().StringVar(&forgotEmail, "email", "", "Account email")

	resetPasswordCmd.Flags().StringVar(&resetEmail, "email", "", "Account email")
	resetPasswordCmd.Flags().StringVar(&resetOTP, "otp", "", "One-time code from the reset email")
	resetPasswordCmd.Flags().StringVar(&resetPassword, "new-password", "", "New password (prompted when omitted)")

	rootCmd.AddCommand(forgotPasswordCmd)
	rootCmd.AddCommand(resetPasswordCmd)
}

func runForgotPassword(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	email := forgotEmail
	if email == "" {
		email = promptLine("Email: ")
	}
	if err := app.Auth.SendPasswordResetOTP(app.ctx(cmd), email); err != nil {
		return err
	}
	fmt.Println("Reset code sent. Continue with `taskboard reset-password`.")
	return nil
}

func runResetPassword(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	email := resetEmail
	if email == "" {
		email = promptLine("Email: ")
	}
	otp := resetOTP
	if otp == "" {
		otp = promptLine("One-time code: ")
	}
	password := resetPassword
	if password == "" {
		password = promptLine("New password: ")
	}

	payload := service.ResetPasswordPayload{Email: email, OTP: otp, NewPassword: password}
	if err := app.Auth.ResetPassword(app.ctx(cmd), payload); err != nil {
		return err
	}
	fmt.Println("Password updated. Sign in with `taskboard login`.")
	return nil
}
