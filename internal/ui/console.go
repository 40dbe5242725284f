package ui

import (
	"log/slog"

	"github.com/chaz8081/hidshare/internal/session"
)

// Console is the headless notifier: state changes go to the log and
// nothing else. Used with -headless, where the escape combination is
// the only way to stop sharing.
type Console struct{}

func (Console) SessionState(state session.State, detail string) {
	if detail != "" {
		slog.Info("[ui] session state", "state", state.String(), "detail", detail)
		return
	}
	slog.Info("[ui] session state", "state", state.String())
}
