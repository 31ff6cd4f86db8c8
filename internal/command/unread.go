package command

import (
	"errors"
	"fmt"

	"github.com/adamavenir/socialdash/internal/notify"
	"github.com/adamavenir/socialdash/internal/store"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/adamavenir/socialdash/internal/view"
	"github.com/spf13/cobra"
)

const previewSize = 5

// NewUnreadCmd creates the unread command.
func NewUnreadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unread",
		Short: "Show the unread count and the latest notifications",
		Long: "Count unread notifications across the loaded pages and preview the newest ones. " +
			"With --server, print the backend's own count instead (for diagnostics).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.AuthedClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			server, _ := cmd.Flags().GetBool("server")
			if server {
				count, err := client.UnreadCount(cmd.Context())
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if ctx.JSONMode {
					return writeJSON(cmd.OutOrStdout(), map[string]any{"unread": count, "source": "server"})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d unread (server)\n", count)
				return nil
			}

			maxPages, _ := cmd.Flags().GetInt("pages")
			st := store.New(store.Options{Logger: ctx.Logger})
			v := view.New(st, client, view.Options{PageSize: ctx.Config.PageSize, Logger: ctx.Logger})
			if err := v.SetFilter(cmd.Context(), types.FilterAll); err != nil {
				return writeCommandError(cmd, err)
			}
			for loaded := 1; loaded < maxPages; loaded++ {
				if err := v.LoadMore(cmd.Context()); err != nil {
					if errors.Is(err, view.ErrNoMorePages) {
						break
					}
					return writeCommandError(cmd, err)
				}
			}

			preview := v.Items()
			if len(preview) > previewSize {
				preview = preview[:previewSize]
			}
			unread := st.UnreadCount()
			partial := v.State().HasMore

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"unread":  unread,
					"badge":   notify.Badge(unread),
					"partial": partial,
					"latest":  preview,
				})
			}
			out := cmd.OutOrStdout()
			suffix := ""
			if partial {
				suffix = fmt.Sprintf(" in the latest %d", st.Len())
			}
			fmt.Fprintf(out, "%d unread%s\n", unread, suffix)
			if len(preview) > 0 {
				fmt.Fprintln(out)
				writeNotifications(out, preview)
			}
			return nil
		},
	}

	cmd.Flags().Bool("server", false, "ask the backend for its unread count")
	cmd.Flags().Int("pages", 5, "maximum number of pages to load for the count")
	return cmd
}
