package tui

import "earworm/internal/domain"

// StateMsg carries a session state transition.
type StateMsg struct {
	State  domain.SessionState
	Reason domain.SessionStateReason
}

// PreviewMsg carries the latest preview snapshot.
type PreviewMsg struct {
	View domain.PreviewView
}

// FinalMsg is sent when text reached the focused application.
type FinalMsg struct {
	Raw   string
	Final string
}

// ErrorMsg carries a session error event.
type ErrorMsg struct {
	Code   domain.ErrorCode
	Detail string
}

// commandDoneMsg reports the result of a coordinator call.
type commandDoneMsg struct {
	name string
	err  error
}
