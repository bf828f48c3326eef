package tui

import (
	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/views"
)

type queueStateMsg views.QueueState

type dashboardStateMsg views.DashboardState

type sessionEndedMsg struct {
	reason string
}

type batchDoneMsg struct {
	action domain.Action
	report domain.BatchReport
	err    error
}
