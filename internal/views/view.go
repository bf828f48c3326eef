// Package views holds the console read models. Each view owns a polling loop while it
// is mounted and refreshes immediately when another view announces a change.
package views

import (
	"io"
	"log/slog"

	"github.com/aalvaropc/doclane/internal/eventbus"
	"github.com/aalvaropc/doclane/internal/poller"
)

// Subscriber is the subscribe side of the notification bus.
type Subscriber interface {
	Subscribe(topic string, fn eventbus.Handler) func()
}

type options struct {
	log   *slog.Logger
	group *poller.Group
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithGroup registers the view loop so it stops with the rest of the session.
func WithGroup(g *poller.Group) Option {
	return func(o *options) { o.group = g }
}

func buildOptions(opts []Option) options {
	o := options{log: slog.New(slog.NewJSONHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// subscriptions collects unsubscribe funcs.
type subscriptions []func()

func (s *subscriptions) cancel() {
	for _, fn := range *s {
		fn()
	}
	*s = nil
}
