package command

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const AppName = "socialdash"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "SocialDash - real-time social notifications in the terminal",
		Long:          "SocialDash keeps a live, filterable view of your social notifications with desktop alerts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("debug", false, "log diagnostics to stderr")
	cmd.PersistentFlags().String("data-dir", "", "override the data directory (default ~/.config/socialdash)")
	cmd.PersistentFlags().String("env-file", ".env", "environment file to load; - to skip")

	cmd.AddCommand(
		NewLoginCmd(),
		NewLogoutCmd(),
		NewListCmd(),
		NewUnreadCmd(),
		NewReadCmd(),
		NewReadAllCmd(),
		NewRmCmd(),
		NewWatchCmd(),
		NewDashboardCmd(),
		NewDevServerCmd(),
		NewConfigCmd(),
	)

	return cmd
}

func Execute() error {
	cmd := NewRootCmd(Version)
	err := cmd.Execute()
	var reported reportedError
	if err != nil && !errors.As(err, &reported) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
	}
	return err
}
