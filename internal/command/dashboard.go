package command

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/adamavenir/socialdash/internal/tui"
	"github.com/spf13/cobra"
)

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive notification dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			noAlerts, _ := cmd.Flags().GetBool("no-alerts")

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()

			sess, cleanup, err := ctx.StartSession(runCtx, sessionOptions{alerts: ctx.Config.Alerts && !noAlerts})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer cleanup()

			title := "SocialDash"
			if ctx.Session != nil && ctx.Session.User.FirstName != "" {
				title = fmt.Sprintf("SocialDash · %s", ctx.Session.User.FirstName)
			}
			// Window title (ANSI OSC sequence)
			fmt.Fprintf(os.Stdout, "\033]0;%s\007", title)

			if err := tui.Run(runCtx, sess, title, ctx.Logger); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().Bool("no-alerts", false, "do not raise desktop alerts")
	return cmd
}
