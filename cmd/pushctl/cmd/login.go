package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/gitpusher/pushkit/internal/client"
	"github.com/gitpusher/pushkit/internal/session"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Exchange email and password for a session token and store it in the
client config file.

The password is read from the terminal unless --password is given.

Example:
  pushctl login --email you@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginEmail == "" {
			return fmt.Errorf("--email is required")
		}

		password := loginPassword
		if password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimSpace(string(raw))
		}
		if password == "" {
			return fmt.Errorf("password is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		api, err := newClient(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		resp, err := api.Login(ctx, loginEmail, password)
		if err != nil {
			if err == client.ErrUnauthorized {
				return fmt.Errorf("invalid credentials")
			}
			return fmt.Errorf("login: %w", err)
		}

		cfg.Token = resp.Token
		if err := cfg.Save(configPath); err != nil {
			return err
		}

		sess, err := session.New(resp.Token, resp.Plan)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in as %s (%s plan)\n", loginEmail, resp.Plan)
		if exp := sess.ExpiresAt(); !exp.IsZero() {
			PrintVerbose("session expires %s", exp.Format(time.RFC3339))
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Drop the stored session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Token = ""
		if err := cfg.Save(configPath); err != nil {
			return err
		}
		fmt.Println("Signed out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (prompted if omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}
