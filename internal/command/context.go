package command

import (
	"context"
	"database/sql"
	"log"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/channel"
	"github.com/adamavenir/socialdash/internal/core"
	"github.com/adamavenir/socialdash/internal/db"
	"github.com/adamavenir/socialdash/internal/notify"
	"github.com/adamavenir/socialdash/internal/session"
	"github.com/spf13/cobra"
)

// CommandContext provides shared command resources.
type CommandContext struct {
	Config   core.Config
	JSONMode bool
	Logger   *log.Logger
	// Session is the stored login, nil when logged out.
	Session *api.Session
}

// GetContext resolves configuration and stored credentials for a command.
func GetContext(cmd *cobra.Command) (*CommandContext, error) {
	jsonMode, _ := cmd.Flags().GetBool("json")
	debug, _ := cmd.Flags().GetBool("debug")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	envFile, _ := cmd.Flags().GetString("env-file")

	cfg, err := core.LoadConfig(core.LoadOptions{EnvFile: envFile, DataDir: dataDir})
	if err != nil {
		return nil, err
	}

	var logger *log.Logger
	if debug {
		logger = log.New(cmd.ErrOrStderr(), "["+AppName+"] ", log.LstdFlags)
	}

	stored, err := api.LoadSession(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	return &CommandContext{
		Config:   cfg,
		JSONMode: jsonMode,
		Logger:   logger,
		Session:  stored,
	}, nil
}

// Client returns an API client, authenticated when a session is stored.
func (c *CommandContext) Client() (*api.Client, error) {
	token := ""
	if c.Session != nil {
		token = c.Session.Token
	}
	return api.NewClient(c.Config.APIURL, token)
}

// AuthedClient returns an authenticated API client or errNotLoggedIn.
func (c *CommandContext) AuthedClient() (*api.Client, error) {
	if c.Session == nil {
		return nil, errNotLoggedIn
	}
	return c.Client()
}

// OpenCache opens the offline cache in the data dir.
func (c *CommandContext) OpenCache() (*sql.DB, error) {
	return db.OpenDatabase(db.CachePath(c.Config.DataDir))
}

type sessionOptions struct {
	alerts bool
}

// StartSession opens the cache and starts a live session. The returned
// cleanup closes both.
func (c *CommandContext) StartSession(ctx context.Context, opts sessionOptions) (*session.Session, func(), error) {
	client, err := c.AuthedClient()
	if err != nil {
		return nil, nil, err
	}
	cache, err := c.OpenCache()
	if err != nil {
		return nil, nil, err
	}

	var alerter *notify.Alerter
	if opts.alerts {
		alerter = notify.NewAlerter(nil, c.Logger)
	}

	chOpts := channel.DefaultOptions()
	chOpts.URL = c.Config.SocketURL
	chOpts.MaxBackoff = c.Config.ReconnectMax
	chOpts.Logger = c.Logger

	sess := session.New(session.Options{
		Client:   client,
		Token:    c.Session.Token,
		DataDir:  c.Config.DataDir,
		Channel:  chOpts,
		PageSize: c.Config.PageSize,
		Cache:    cache,
		Alerter:  alerter,
		Logger:   c.Logger,
	})
	if err := sess.Start(ctx); err != nil {
		_ = sess.Close()
		_ = cache.Close()
		return nil, nil, err
	}
	cleanup := func() {
		_ = sess.Close()
		if alerter != nil {
			alerter.Wait()
		}
		_ = cache.Close()
	}
	return sess, cleanup, nil
}
