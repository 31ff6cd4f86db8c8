// Package session wires one authenticated session: the live channel feeds
// the store, the view pages through the REST client, and everything is torn
// down together.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/adamavenir/socialdash/internal/channel"
	"github.com/adamavenir/socialdash/internal/db"
	"github.com/adamavenir/socialdash/internal/notify"
	"github.com/adamavenir/socialdash/internal/store"
	"github.com/adamavenir/socialdash/internal/types"
	"github.com/adamavenir/socialdash/internal/view"
	"github.com/fsnotify/fsnotify"
)

var (
	// ErrExpired is reported when the session token reaches its expiry.
	ErrExpired = fmt.Errorf("%w: token expired", api.ErrUnauthorized)
	// ErrLoggedOut is reported when the stored credentials disappear.
	ErrLoggedOut = errors.New("logged out from another process")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("session closed")
)

// Options configure a Session.
type Options struct {
	// Client is the REST client. Its token is replaced by Token.
	Client *api.Client
	Token  string
	// DataDir holds session.json; when set, the file is watched for
	// logout and token changes from other processes.
	DataDir string
	Channel channel.Options
	// PageSize is the view's page size.
	PageSize int
	// Cache, when set, receives a snapshot of the store after every change.
	Cache *sql.DB
	// Alerter, when set, raises desktop alerts for pushed notifications.
	Alerter *notify.Alerter
	Logger  *log.Logger
}

// Session owns the store, live channel, and view of one login.
type Session struct {
	store   *store.Store
	channel *channel.Channel
	view    *view.View
	client  *tokenClient
	cache   *sql.DB
	alerter *notify.Alerter
	dataDir string
	logger  *log.Logger

	events    chan types.Event
	errs      chan error
	reconnect chan string
	saves     chan struct{}

	mu          sync.Mutex
	started     bool
	closed      bool
	cancel      context.CancelFunc
	unsubscribe func()
	watcher     *fsnotify.Watcher
	expiry      *time.Timer
	wg          sync.WaitGroup
	closeOnce   sync.Once
	closeErr    error
}

// New builds an idle session.
func New(opts Options) *Session {
	client := newTokenClient(opts.Client, opts.Token)
	st := store.New(store.Options{Logger: opts.Logger})

	chOpts := opts.Channel
	if chOpts.Logger == nil {
		chOpts.Logger = opts.Logger
	}

	s := &Session{
		store:     st,
		channel:   channel.New(chOpts),
		client:    client,
		cache:     opts.Cache,
		alerter:   opts.Alerter,
		dataDir:   opts.DataDir,
		logger:    opts.Logger,
		events:    make(chan types.Event, 64),
		errs:      make(chan error, 1),
		reconnect: make(chan string, 1),
		saves:     make(chan struct{}, 1),
	}
	s.view = view.New(st, client, view.Options{PageSize: opts.PageSize, Logger: opts.Logger})
	return s
}

// Start connects the live channel and starts the background loops. It
// fails if the token has already expired.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.started {
		return nil
	}

	token := s.client.Token()
	expiresAt, hasExpiry := tokenExpiry(token)
	if hasExpiry && !time.Now().Before(expiresAt) {
		return ErrExpired
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.dataDir != "" {
		watcher, err := s.startWatcher(runCtx)
		if err != nil {
			cancel()
			return fmt.Errorf("watch session file: %w", err)
		}
		s.watcher = watcher
	}
	if hasExpiry {
		s.expiry = time.AfterFunc(time.Until(expiresAt), s.expire)
	}
	if s.cache != nil {
		s.unsubscribe = s.store.Subscribe(func(store.Snapshot) {
			select {
			case s.saves <- struct{}{}:
			default:
			}
		})
		s.wg.Add(1)
		go s.cacheLoop(runCtx)
	}

	s.channel.Connect(runCtx, channel.Credentials{Token: token})
	s.wg.Add(1)
	go s.pump(runCtx)

	s.started = true
	s.logf("session started")
	return nil
}

// Close tears the session down. It is safe to call more than once; later
// calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		cancel := s.cancel
		watcher := s.watcher
		expiry := s.expiry
		unsubscribe := s.unsubscribe
		s.mu.Unlock()

		if expiry != nil {
			expiry.Stop()
		}
		if cancel != nil {
			cancel()
		}
		s.channel.Disconnect()
		if watcher != nil {
			s.closeErr = watcher.Close()
		}
		s.wg.Wait()
		if unsubscribe != nil {
			unsubscribe()
		}
		if s.cache != nil {
			s.saveCache()
		}
		close(s.events)
		s.logf("session closed")
	})
	return s.closeErr
}

// Logout closes the session and discards everything it held: the store,
// the cache, the stored credentials, and the alert history.
func (s *Session) Logout() error {
	err := s.Close()
	s.store.Clear()
	if s.cache != nil {
		if cerr := db.ClearNotifications(s.cache); cerr != nil {
			err = errors.Join(err, fmt.Errorf("clear cache: %w", cerr))
		}
	}
	if s.dataDir != "" {
		if cerr := api.ClearSession(s.dataDir); cerr != nil {
			err = errors.Join(err, fmt.Errorf("clear session: %w", cerr))
		}
	}
	if s.alerter != nil {
		s.alerter.Reset()
	}
	return err
}

// Store returns the session's notification store.
func (s *Session) Store() *store.Store {
	return s.store
}

// View returns the session's list binding.
func (s *Session) View() *view.View {
	return s.view
}

// UnreadCount returns the derived unread count.
func (s *Session) UnreadCount() int {
	return s.store.UnreadCount()
}

// Connected reports whether the live channel is connected.
func (s *Session) Connected() bool {
	return s.channel.Connected()
}

// ConnState returns the live channel state.
func (s *Session) ConnState() types.ConnState {
	return s.channel.State()
}

// Events streams live channel events for UIs. Delivery is best effort: a
// slow reader misses events rather than stalling the session. The stream
// closes when the session closes.
func (s *Session) Events() <-chan types.Event {
	return s.events
}

// Err reports session-ending failures: a rejected or expired token, or a
// logout from another process.
func (s *Session) Err() <-chan error {
	return s.errs
}

func (s *Session) fail(err error) {
	s.logf("session failure: %v", err)
	select {
	case s.errs <- err:
	default:
	}
}

func (s *Session) expire() {
	s.fail(ErrExpired)
	s.channel.Disconnect()
}

func (s *Session) forward(ev types.Event) {
	select {
	case s.events <- ev:
	default:
		s.logf("dropping %s event for slow reader", ev.Kind)
	}
}

func (s *Session) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
