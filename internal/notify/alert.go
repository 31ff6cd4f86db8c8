package notify

import (
	"log"
	"sync"

	"github.com/adamavenir/socialdash/internal/types"
	"github.com/gen2brain/beeep"
)

// SendFunc delivers one desktop notification.
type SendFunc func(title, body string) error

func beeepSend(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Alerter raises desktop alerts for pushed notifications. Alerts run on
// their own goroutine and failures are only logged; each record id alerts
// at most once.
type Alerter struct {
	send   SendFunc
	logger *log.Logger

	mu   sync.Mutex
	seen map[string]struct{}
	wg   sync.WaitGroup
}

// NewAlerter creates an alerter. A nil send uses the OS notifier.
func NewAlerter(send SendFunc, logger *log.Logger) *Alerter {
	if send == nil {
		send = beeepSend
	}
	return &Alerter{
		send:   send,
		logger: logger,
		seen:   make(map[string]struct{}),
	}
}

// Alert raises an alert for rec unless it is already read or was alerted
// before. It never blocks on the notifier.
func (a *Alerter) Alert(rec types.Notification) {
	if rec.IsRead || rec.ID == "" {
		return
	}
	a.mu.Lock()
	if _, ok := a.seen[rec.ID]; ok {
		a.mu.Unlock()
		return
	}
	a.seen[rec.ID] = struct{}{}
	a.mu.Unlock()

	body := Message(rec)
	if excerpt := Excerpt(rec); excerpt != "" {
		body += ": " + excerpt
	}
	body = Truncate(body, 100)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.send(AppName, body); err != nil && a.logger != nil {
			a.logger.Printf("desktop alert failed: %v", err)
		}
	}()
}

// Reset forgets which records were alerted.
func (a *Alerter) Reset() {
	a.mu.Lock()
	a.seen = make(map[string]struct{})
	a.mu.Unlock()
}

// Wait blocks until in-flight alerts finish.
func (a *Alerter) Wait() {
	a.wg.Wait()
}
