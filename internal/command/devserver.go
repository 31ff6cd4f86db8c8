package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adamavenir/socialdash/internal/devserver"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewDevServerCmd creates the devserver command.
func NewDevServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory backend for local development",
		Long: "Serve the notification REST API and live channel from memory, seeded with demo data. " +
			"POST a notification to /dev/push to broadcast it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			seed, _ := cmd.Flags().GetInt("seed")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			tokens, _ := cmd.Flags().GetStringSlice("token")
			pushEvery, _ := cmd.Flags().GetDuration("push-every")
			debug, _ := cmd.Flags().GetBool("debug")

			logger := log.New(cmd.ErrOrStderr(), "[devserver] ", log.LstdFlags)
			srv := devserver.New(devserver.Options{
				Email:      email,
				Password:   password,
				Tokens:     tokens,
				Seed:       devserver.DemoNotifications(seed, time.Now()),
				Logger:     logger,
				RequestLog: debug,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if pushEvery > 0 {
				go pushDemo(ctx, srv, pushEvery)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(addr)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "devserver on %s (export SOCIALDASH_API_URL=http://%s/api)\n", addr, addr)

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return writeCommandError(cmd, err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return writeCommandError(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "localhost:5000", "listen address")
	cmd.Flags().Int("seed", 25, "number of demo notifications")
	cmd.Flags().String("email", "", "only accept this login email (default: accept any)")
	cmd.Flags().String("password", "", "password for --email")
	cmd.Flags().StringSlice("token", nil, "pre-issued bearer tokens")
	cmd.Flags().Duration("push-every", 0, "push a demo notification at this interval")
	return cmd
}

func pushDemo(ctx context.Context, srv *devserver.Server, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for i := 0; ; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec := devserver.DemoNotification(i, time.Now())
			rec.ID = uuid.NewString()
			srv.Push(rec)
		}
	}
}
