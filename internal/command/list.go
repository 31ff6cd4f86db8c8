package command

import (
	"fmt"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/db"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		Long:  "List one page of notifications, newest first. With --offline, list the cached records of the last session instead.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}

			filterName, _ := cmd.Flags().GetString("filter")
			page, _ := cmd.Flags().GetInt("page")
			limit, _ := cmd.Flags().GetInt("limit")
			offline, _ := cmd.Flags().GetBool("offline")

			filter, err := types.ParseFilter(filterName)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if page < 1 {
				return writeCommandError(cmd, fmt.Errorf("--page must be at least 1"))
			}
			if limit <= 0 {
				limit = ctx.Config.PageSize
			}

			var records []types.Notification
			hasMore := false
			if offline {
				records, err = listCached(ctx, filter)
				if err != nil {
					return writeCommandError(cmd, err)
				}
			} else {
				client, err := ctx.AuthedClient()
				if err != nil {
					return writeCommandError(cmd, err)
				}
				params := api.ListParams{Page: page, Limit: limit}
				if serverType, ok := filter.ServerType(); ok {
					params.Type = serverType
				}
				result, err := client.ListNotifications(cmd.Context(), params)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				hasMore = result.HasMore
				if page == 1 && filter == types.FilterAll {
					refreshCache(ctx, result.Notifications)
				}
				// The backend has no unread filter; it is applied here.
				records = matching(result.Notifications, filter)
			}

			if ctx.JSONMode {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"filter":        filter,
					"page":          page,
					"has_more":      hasMore,
					"notifications": records,
				})
			}
			out := cmd.OutOrStdout()
			writeNotifications(out, records)
			if hasMore {
				fmt.Fprintf(out, "%s-- more: %s list --page %d --%s\n", gray, AppName, page+1, reset)
			}
			return nil
		},
	}

	cmd.Flags().String("filter", "all", "all, unread, like, comment, or follow")
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().Int("limit", 0, "page size (default from config)")
	cmd.Flags().Bool("offline", false, "list the offline cache without contacting the backend")
	return cmd
}

func listCached(ctx *CommandContext, filter types.Filter) ([]types.Notification, error) {
	cache, err := ctx.OpenCache()
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	records, err := db.LoadNotifications(cache)
	if err != nil {
		return nil, err
	}
	return matching(records, filter), nil
}

// refreshCache replaces the offline cache with a fresh first page. Failures
// only cost offline freshness.
func refreshCache(ctx *CommandContext, records []types.Notification) {
	cache, err := ctx.OpenCache()
	if err != nil {
		if ctx.Logger != nil {
			ctx.Logger.Printf("open cache: %v", err)
		}
		return
	}
	defer cache.Close()
	if err := db.SaveNotifications(cache, records); err != nil && ctx.Logger != nil {
		ctx.Logger.Printf("refresh cache: %v", err)
	}
}

func matching(records []types.Notification, filter types.Filter) []types.Notification {
	out := make([]types.Notification, 0, len(records))
	for _, rec := range records {
		if filter.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}
