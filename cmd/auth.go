package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/localfirst/tripledb/internal/auth"
	"github.com/localfirst/tripledb/internal/output"
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Manage sync authentication",
	GroupID: "sync",
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Request and verify a magic code by email",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL == "" {
			return fmt.Errorf("--server is required to reach the auth endpoint")
		}
		authClient := auth.NewClient(serverURL)

		var email string
		emailForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Email").Value(&email).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("email required")
					}
					return nil
				}),
		))
		if err := emailForm.Run(); err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = strings.TrimSpace(email)

		if err := authClient.SendMagicCode(email); err != nil {
			output.Error("send magic code: %v", err)
			return err
		}

		var code string
		codeForm := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Code").Value(&code),
		))
		if err := codeForm.Run(); err != nil {
			return fmt.Errorf("read code: %w", err)
		}
		code = strings.TrimSpace(code)

		creds, err := authClient.VerifyMagicCode(email, code)
		if err != nil {
			output.Error("verify magic code: %v", err)
			return err
		}
		if err := auth.NewStore(persistenceDir).Save(creds); err != nil {
			return err
		}
		output.Success("signed in as %s", creds.Email)
		return nil
	},
}

var authGuestCmd = &cobra.Command{
	Use:   "guest",
	Short: "Sign in as a guest, without an email",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverURL == "" {
			return fmt.Errorf("--server is required to reach the auth endpoint")
		}
		authClient := auth.NewClient(serverURL)
		creds, err := authClient.SignInAsGuest()
		if err != nil {
			output.Error("guest sign-in: %v", err)
			return err
		}
		if err := auth.NewStore(persistenceDir).Save(creds); err != nil {
			return err
		}
		output.Success("signed in as guest %s", creds.UserID)
		return nil
	},
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and clear the local session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store := auth.NewStore(persistenceDir)
		if serverURL != "" {
			if creds, err := store.Load(); err == nil && creds != nil {
				authClient := auth.NewClient(serverURL)
				if err := authClient.SignOut(creds.Token); err != nil {
					output.Warning("remote sign-out: %v", err)
				}
			}
		}
		if err := store.Clear(); err != nil {
			return err
		}
		output.Success("signed out")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session, if any",
	RunE: func(cmd *cobra.Command, args []string) error {
		user := client.CurrentUser()
		if jsonOutput {
			return output.JSON(user)
		}
		if user == nil {
			output.Info("not signed in")
			return nil
		}
		if user.IsGuest {
			fmt.Printf("signed in as guest %s\n", user.UserID)
		} else {
			fmt.Printf("signed in as %s (%s)\n", user.Email, user.UserID)
		}
		return nil
	},
}

func init() {
	authCmd.AddCommand(authLoginCmd, authGuestCmd, authLogoutCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
