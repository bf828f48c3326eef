package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aalvaropc/doclane/internal/domain"
	"github.com/aalvaropc/doclane/internal/usecase"
)

// inbox carries view state from the polling goroutines into the program. A full inbox
// drops its oldest message: only the latest state of a view matters.
type inbox chan tea.Msg

func newInbox() inbox {
	return make(inbox, 8)
}

func (in inbox) put(msg tea.Msg) {
	for {
		select {
		case in <- msg:
			return
		default:
		}
		select {
		case <-in:
		default:
		}
	}
}

func listenInbox(in inbox) tea.Cmd {
	return func() tea.Msg {
		return <-in
	}
}

func listenSession(n *SessionNotifier) tea.Cmd {
	if n == nil {
		return nil
	}
	return func() tea.Msg {
		return sessionEndedMsg{reason: <-n.ch}
	}
}

// runBatch applies action to the documents of the last queue snapshot.
func runBatch(ctx context.Context, deps Deps, action domain.Action, snapshot []domain.Document) tea.Cmd {
	docs := make([]domain.Document, len(snapshot))
	copy(docs, snapshot)

	return func() tea.Msg {
		uc := usecase.NewBatchDocuments(deps.Documents, deps.Bus, usecase.WithBatchLogger(deps.Logger))

		var rep domain.BatchReport
		var err error
		switch action {
		case domain.ActionProcess:
			rep, err = uc.ProcessPending(ctx, docs)
		case domain.ActionReprocess:
			rep, err = uc.ReprocessFailed(ctx, docs)
		case domain.ActionDelete:
			rep, err = uc.DeleteAll(ctx, docs)
		}
		return batchDoneMsg{action: action, report: rep, err: err}
	}
}
