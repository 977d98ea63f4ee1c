package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"earworm/internal/domain"
	"earworm/internal/usecase"
)

// Controller is the part of the session coordinator exposed over the control API.
type Controller interface {
	HotkeyDown(ctx context.Context) error
	HotkeyUp(ctx context.Context) error
	Accept(ctx context.Context) error
	Copy(ctx context.Context) error
	Cancel(ctx context.Context) error
	ReRecord(ctx context.Context) error
	Edit(ctx context.Context, text string) error
	Undo(ctx context.Context) error
	Redo(ctx context.Context) error
	Status() domain.Status
	Preview() (domain.PreviewView, bool)
}

// History lists resolved sessions. It is optional.
type History interface {
	List(ctx context.Context, limit int) ([]domain.JournalEntry, error)
}

// Command names shared by the HTTP routes and websocket messages.
const (
	CommandPTTDown  = "ptt_down"
	CommandPTTUp    = "ptt_up"
	CommandAccept   = "accept"
	CommandCopy     = "copy"
	CommandCancel   = "cancel"
	CommandReRecord = "rerecord"
	CommandEdit     = "edit"
	CommandUndo     = "undo"
	CommandRedo     = "redo"
)

var errUnknownCommand = errors.New("unknown command")

func dispatch(ctx context.Context, ctrl Controller, command string, text string) error {
	switch command {
	case CommandPTTDown:
		return ctrl.HotkeyDown(ctx)
	case CommandPTTUp:
		return ctrl.HotkeyUp(ctx)
	case CommandAccept:
		return ctrl.Accept(ctx)
	case CommandCopy:
		return ctrl.Copy(ctx)
	case CommandCancel:
		return ctrl.Cancel(ctx)
	case CommandReRecord:
		return ctrl.ReRecord(ctx)
	case CommandEdit:
		return ctrl.Edit(ctx, text)
	case CommandUndo:
		return ctrl.Undo(ctx)
	case CommandRedo:
		return ctrl.Redo(ctx)
	default:
		return fmt.Errorf("%w: %q", errUnknownCommand, command)
	}
}

func statusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNoActiveSession),
		errors.Is(err, usecase.ErrNotPreviewing),
		errors.Is(err, usecase.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
