package watcher

import "log/slog"

// Option configures a Poller.
type Option interface {
	config(p *Poller)
}

// WithObserver registers a callback that receives every state transition.
func WithObserver(observer Observer) Option {
	return &withObserver{observer: observer}
}

type withObserver struct {
	observer Observer
}

func (opt withObserver) config(p *Poller) {
	p.observer = opt.observer
}

// WithLogger makes the poller log through logger instead of slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return &withLogger{logger: logger}
}

type withLogger struct {
	logger *slog.Logger
}

func (opt withLogger) config(p *Poller) {
	p.logger = opt.logger
}
