package command

import (
	"fmt"

	"github.com/adamavenir/socialdash/internal/core"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [key] [value]",
		Short: "Get or set configuration",
		Long:  "Show the effective configuration, read one key, or write a key to the config file. Environment variables still override the file.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if ctx.JSONMode {
					payload := map[string]string{"data_dir": ctx.Config.DataDir}
					for _, key := range core.ConfigKeys {
						payload[key], _ = ctx.Config.Get(key)
					}
					return writeJSON(out, payload)
				}
				fmt.Fprintln(out, "Configuration:")
				for _, key := range core.ConfigKeys {
					value, _ := ctx.Config.Get(key)
					fmt.Fprintf(out, "  %s: %s\n", key, value)
				}
				fmt.Fprintf(out, "  data_dir: %s\n", ctx.Config.DataDir)
				return nil
			}

			key := core.NormalizeConfigKey(args[0])
			if len(args) == 1 {
				value, err := ctx.Config.Get(key)
				if err != nil {
					return writeCommandError(cmd, err)
				}
				if ctx.JSONMode {
					return writeJSON(out, map[string]string{key: value})
				}
				fmt.Fprintf(out, "%s: %s\n", key, value)
				return nil
			}

			fileCfg, err := core.LoadFileConfig(ctx.Config.DataDir)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			if err := fileCfg.Set(key, args[1]); err != nil {
				return writeCommandError(cmd, err)
			}
			if err := core.WriteConfig(ctx.Config.DataDir, fileCfg); err != nil {
				return writeCommandError(cmd, err)
			}
			value, _ := fileCfg.Get(key)
			if ctx.JSONMode {
				return writeJSON(out, map[string]string{key: value})
			}
			fmt.Fprintf(out, "Set %s = %s\n", key, value)
			return nil
		},
	}

	return cmd
}
