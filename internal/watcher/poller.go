package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meko-christian/mail-watcher/internal/store"
)

var (
	// ErrAuth marks a login the server rejected. Connection failures during
	// LOGIN do not wrap it.
	ErrAuth = errors.New("imap authentication failed")

	// ErrTooManyAuthFailures is returned by Run once the configured number of
	// consecutive cycles failed to authenticate.
	ErrTooManyAuthFailures = errors.New("too many consecutive authentication failures")
)

// Config holds the account and scheduling settings of a Poller.
type Config struct {
	Username string
	Password string
	// Interval is the fixed pause between the end of one cycle and the start
	// of the next, however much work the cycle did.
	Interval time.Duration
	// MaxAuthFailures makes Run give up after that many consecutive cycles
	// failed to log in. Zero retries forever.
	MaxAuthFailures int
}

// CycleReport summarises one poll cycle.
type CycleReport struct {
	ID            string
	Authenticated bool
	Unseen        int
	// Processed counts messages that were recorded (or found to be
	// duplicates) and flagged \Seen.
	Processed  int
	Recorded   int
	Duplicates int
	Err        error
}

// Poller repeatedly drains the unseen messages of a mailbox into a subject
// store. It is the only writer of that store.
type Poller struct {
	dialer   Dialer
	recorder store.Recorder
	cfg      Config
	observer Observer
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// NewPoller returns an idle poller.
func NewPoller(dialer Dialer, recorder store.Recorder, cfg Config, opts ...Option) *Poller {
	p := &Poller{
		dialer:   dialer,
		recorder: recorder,
		cfg:      cfg,
		logger:   slog.Default(),
		state:    StateIdle,
	}

	for _, opt := range opts {
		opt.config(p)
	}

	return p
}

// State returns the current state of the poller.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// Run polls until ctx is cancelled, in which case it returns nil, or until
// MaxAuthFailures consecutive cycles failed to log in. Errors inside a cycle
// are logged and end that cycle only.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("Starting mailbox poller", "interval", p.cfg.Interval.String())

	authFailures := 0

	for {
		report := p.cycle(ctx)

		if ctx.Err() != nil {
			p.transition(StateIdle, 0, nil)
			p.logger.Info("Mailbox poller stopped")
			return nil
		}

		switch {
		case report.Authenticated:
			authFailures = 0
		case errors.Is(report.Err, ErrAuth):
			authFailures++
			if p.cfg.MaxAuthFailures > 0 && authFailures >= p.cfg.MaxAuthFailures {
				p.transition(StateIdle, 0, report.Err)
				return fmt.Errorf("%w: %d in a row, last: %w", ErrTooManyAuthFailures, authFailures, report.Err)
			}
		}

		p.transition(StateSleeping, 0, report.Err)

		timer := time.NewTimer(p.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.transition(StateIdle, 0, nil)
			p.logger.Info("Mailbox poller stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce performs a single cycle and returns the poller to StateIdle.
func (p *Poller) RunOnce(ctx context.Context) CycleReport {
	report := p.cycle(ctx)
	p.transition(StateIdle, 0, report.Err)
	return report
}

// cycle connects, drains the unseen messages in server order and logs out.
// The first error aborts the remainder of the cycle; messages handled before
// it stay recorded and flagged.
func (p *Poller) cycle(ctx context.Context) (report CycleReport) {
	report.ID = uuid.NewString()
	logger := p.logger.With("cycle", report.ID)

	defer func() {
		if report.Err != nil {
			logger.Error("Poll cycle failed",
				"error", report.Err,
				"unseen", report.Unseen,
				"processed", report.Processed)
			return
		}
		logger.Info("Poll cycle finished",
			"unseen", report.Unseen,
			"recorded", report.Recorded,
			"duplicates", report.Duplicates)
	}()

	p.transition(StateConnecting, 0, nil)
	logger.Debug("Connecting to IMAP server")

	session, err := p.dialer.Dial(ctx)
	if err != nil {
		report.Err = err
		return report
	}

	defer func() {
		if err := session.Logout(); err != nil {
			logger.Debug("IMAP logout failed", "error", err)
			return
		}
		logger.Debug("Logged out from IMAP server")
	}()

	if err := session.Login(p.cfg.Username, p.cfg.Password); err != nil {
		report.Err = err
		return report
	}
	report.Authenticated = true
	logger.Debug("Logged in", "username", p.cfg.Username)

	if folders, err := session.Folders(); err != nil {
		logger.Warn("Failed to list folders", "error", err)
	} else {
		logger.Debug("Server folders", "folders", folders)
	}

	if err := session.SelectInbox(); err != nil {
		report.Err = err
		return report
	}

	p.transition(StateListing, 0, nil)

	uids, err := session.SearchUnseen()
	if err != nil {
		report.Err = err
		return report
	}
	report.Unseen = len(uids)
	logger.Info("Unseen messages", "count", len(uids))

	for i, uid := range uids {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report
		}

		p.transition(StateProcessing, i+1, nil)

		inserted, err := p.process(ctx, session, uid, logger)
		if err != nil {
			report.Err = err
			return report
		}

		report.Processed++
		if inserted {
			report.Recorded++
		} else {
			report.Duplicates++
		}
	}

	return report
}

// process records the subject of uid and only then flags it \Seen. If the
// flag is lost the next cycle sees the message again and the store absorbs
// the replay.
func (p *Poller) process(ctx context.Context, session Session, uid uint32, logger *slog.Logger) (bool, error) {
	raw, err := session.FetchSubject(uid)
	if err != nil {
		return false, err
	}

	subject := DecodeSubject(raw)

	inserted, err := p.recorder.RecordIfNew(ctx, subject)
	if err != nil {
		return false, fmt.Errorf("message %d: %w", uid, err)
	}

	if inserted {
		logger.Info("New subject", "uid", uid, "subject", subject)
	} else {
		logger.Debug("Duplicate subject", "uid", uid, "subject", subject)
	}

	if err := session.MarkSeen(uid); err != nil {
		return false, err
	}

	return inserted, nil
}

func (p *Poller) transition(to State, message int, err error) {
	p.mu.Lock()
	from := p.state
	p.state = to
	p.mu.Unlock()

	p.logger.Debug("Poller state changed", "from", from.String(), "to", to.String(), "message", message)

	if p.observer != nil {
		p.observer(Transition{From: from, To: to, Message: message, Err: err})
	}
}
