package command

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/db"
	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			token, _ := cmd.Flags().GetString("token")

			var stored api.Session
			if token != "" {
				stored = api.Session{Token: token, APIURL: ctx.Config.APIURL}
			} else {
				if strings.TrimSpace(email) == "" {
					return writeCommandError(cmd, fmt.Errorf("--email is required"))
				}
				if password == "" {
					// Read from stdin so the password stays out of shell history.
					line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
					if err != nil && line == "" {
						return writeCommandError(cmd, fmt.Errorf("read password: %w", err))
					}
					password = strings.TrimRight(line, "\r\n")
				}
				client, err := ctx.Client()
				if err != nil {
					return writeCommandError(cmd, err)
				}
				stored, err = client.Login(cmd.Context(), email, password)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			}

			if err := api.SaveSession(ctx.Config.DataDir, stored); err != nil {
				return writeCommandError(cmd, err)
			}
			// A new login never reuses another account's cached records.
			if cache, err := ctx.OpenCache(); err == nil {
				_ = db.ClearNotifications(cache)
				_ = cache.Close()
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"logged_in": true, "user": stored.User})
			}
			name := strings.TrimSpace(stored.User.FirstName + " " + stored.User.LastName)
			if name == "" {
				name = stored.User.Email
			}
			if name == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", name)
			return nil
		},
	}

	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password (read from stdin when omitted)")
	cmd.Flags().String("token", "", "store an existing session token instead of logging in")
	return cmd
}

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session and offline cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := api.ClearSession(ctx.Config.DataDir); err != nil {
				return writeCommandError(cmd, err)
			}
			cache, err := ctx.OpenCache()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer cache.Close()
			if err := db.ClearNotifications(cache); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"logged_in": false})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
	return cmd
}
