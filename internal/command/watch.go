package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adamavenir/socialdash/internal/types"
	"github.com/spf13/cobra"
)

// NewWatchCmd creates the watch command.
func NewWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream notifications in real-time",
		Long:  "Connect to the live channel and print notifications as they arrive, raising desktop alerts unless disabled.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			last, _ := cmd.Flags().GetInt("last")
			noAlerts, _ := cmd.Flags().GetBool("no-alerts")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				runCtx, cancel = context.WithTimeout(runCtx, timeout)
				defer cancel()
			}

			sess, cleanup, err := ctx.StartSession(runCtx, sessionOptions{alerts: ctx.Config.Alerts && !noAlerts})
			if err != nil {
				return writeCommandError(cmd, err)
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			if err := sess.View().Reload(runCtx); err != nil {
				// Live updates still work without the first page.
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not load recent notifications: %v\n", err)
			}
			if last > 0 {
				recent := sess.View().Items()
				if len(recent) > last {
					recent = recent[:last]
				}
				for i := len(recent) - 1; i >= 0; i-- {
					if err := printWatchRecord(out, ctx.JSONMode, recent[i]); err != nil {
						return err
					}
				}
			}
			if !ctx.JSONMode {
				fmt.Fprintf(out, "--- watching, %d unread (Ctrl+C to stop) ---\n", sess.UnreadCount())
			}

			events := sess.Events()
			for {
				select {
				case <-runCtx.Done():
					return nil
				case err := <-sess.Err():
					return writeCommandError(cmd, err)
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					if err := printWatchEvent(out, ctx.JSONMode, ev); err != nil {
						return err
					}
				}
			}
		},
	}

	cmd.Flags().Int("last", 5, "show the newest N notifications before streaming")
	cmd.Flags().Bool("no-alerts", false, "do not raise desktop alerts")
	cmd.Flags().Duration("timeout", 0, "stop after this long (default: run until interrupted)")
	return cmd
}

type watchEvent struct {
	Kind         types.EventKind     `json:"kind"`
	Notification *types.Notification `json:"notification,omitempty"`
	Reason       string              `json:"reason,omitempty"`
	Persistent   bool                `json:"persistent,omitempty"`
	MessageKind  string              `json:"message_kind,omitempty"`
	Data         json.RawMessage     `json:"data,omitempty"`
	At           time.Time           `json:"at"`
}

func printWatchRecord(out io.Writer, jsonMode bool, rec types.Notification) error {
	if jsonMode {
		return writeJSON(out, watchEvent{Kind: types.EventNotification, Notification: &rec, At: time.Now().UTC()})
	}
	_, err := fmt.Fprintln(out, FormatNotification(rec))
	return err
}

func printWatchEvent(out io.Writer, jsonMode bool, ev types.Event) error {
	if ev.Kind == types.EventNotification && ev.Notification != nil {
		return printWatchRecord(out, jsonMode, *ev.Notification)
	}
	if jsonMode {
		return writeJSON(out, watchEvent{
			Kind:        ev.Kind,
			Reason:      ev.Reason,
			Persistent:  ev.Persistent,
			MessageKind: ev.MessageKind,
			Data:        ev.Data,
			At:          time.Now().UTC(),
		})
	}
	if line := formatEvent(ev); line != "" {
		_, err := fmt.Fprintln(out, line)
		return err
	}
	return nil
}
