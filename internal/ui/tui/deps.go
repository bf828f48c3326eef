package tui

import (
	"log/slog"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/poller"
	"github.com/aalvaropc/doclane/internal/ports"
	"github.com/aalvaropc/doclane/internal/views"
)

// Bus is the notification bus seen by the console: views subscribe, actions publish.
type Bus interface {
	views.Subscriber
	ports.Publisher
}

type Deps struct {
	Documents ports.DocumentService
	Dashboard ports.DashboardService
	Bus       Bus
	Polling   domain.PollingConfig

	// Group stops every mounted view when the session ends.
	Group *poller.Group
	// Session delivers the forced logout to the console.
	Session *SessionNotifier

	BaseURL string
	User    string

	Logger *slog.Logger
	Debug  bool
}

// SessionNotifier is the console navigator: the first logout reason is handed to the
// running program, which then offers only the way out to `doclane login`.
type SessionNotifier struct {
	ch chan string
}

func NewSessionNotifier() *SessionNotifier {
	return &SessionNotifier{ch: make(chan string, 1)}
}

func (n *SessionNotifier) ToLogin(reason string) {
	select {
	case n.ch <- reason:
	default:
	}
}

var _ ports.Navigator = (*SessionNotifier)(nil)
