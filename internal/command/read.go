package command

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewReadCmd creates the read command.
func NewReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read <id...>",
		Short: "Mark notifications as read",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.AuthedClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			ids := normalizeIDs(args)
			if len(ids) == 0 {
				return writeCommandError(cmd, errNoIDs)
			}
			if len(ids) == 1 {
				err = client.MarkRead(cmd.Context(), ids[0])
			} else {
				err = client.BulkMarkRead(cmd.Context(), ids)
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"ids": ids, "read": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", describeIDs(ids))
			return nil
		},
	}
	return cmd
}

// NewReadAllCmd creates the read-all command.
func NewReadAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark every notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.AuthedClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := client.MarkAllRead(cmd.Context()); err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"all": true, "read": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Marked all notifications as read")
			return nil
		},
	}
	return cmd
}

// NewRmCmd creates the rm command.
func NewRmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <id...>",
		Short: "Delete notifications",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			client, err := ctx.AuthedClient()
			if err != nil {
				return writeCommandError(cmd, err)
			}

			ids := normalizeIDs(args)
			if len(ids) == 0 {
				return writeCommandError(cmd, errNoIDs)
			}
			if len(ids) == 1 {
				err = client.Delete(cmd.Context(), ids[0])
			} else {
				err = client.BulkDelete(cmd.Context(), ids)
			}
			if err != nil {
				return writeCommandError(cmd, err)
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"ids": ids, "deleted": true})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", describeIDs(ids))
			return nil
		},
	}
	return cmd
}

var errNoIDs = errors.New("no notification ids given")

// normalizeIDs trims, drops empties and duplicates, and keeps order.
func normalizeIDs(args []string) []string {
	seen := make(map[string]struct{}, len(args))
	ids := make([]string, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			id := strings.TrimPrefix(strings.TrimSpace(part), "#")
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func describeIDs(ids []string) string {
	if len(ids) == 1 {
		return "#" + ids[0]
	}
	return fmt.Sprintf("%d notifications", len(ids))
}
