package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"earworm/internal/domain"
)

// Sink turns coordinator events into bubbletea messages. Events emitted before
// a program is attached are dropped.
type Sink struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Attach(p *tea.Program) {
	s.attach(p.Send)
}

func (s *Sink) attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.send = send
}

func (s *Sink) emit(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	s.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (s *Sink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	s.emit(StateMsg{State: state, Reason: reason})
}

func (s *Sink) PreviewChanged(view domain.PreviewView) {
	s.emit(PreviewMsg{View: view})
}

func (s *Sink) FinalTranscript(raw string, final string) {
	s.emit(FinalMsg{Raw: raw, Final: final})
}

func (s *Sink) SessionError(code domain.ErrorCode, detail string) {
	s.emit(ErrorMsg{Code: code, Detail: detail})
}
