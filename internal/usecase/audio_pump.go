package usecase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"earworm/internal/domain"
	"earworm/internal/ports"
)

func pumpAudioChunks(
	audio ports.AudioSession,
	sink io.Writer,
	chunkSize int,
	events ports.EventSink,
	done chan struct{},
) {
	defer close(done)

	if chunkSize < 256 {
		chunkSize = 4096
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := audio.Read(buf)
		if n > 0 {
			if _, writeErr := sink.Write(buf[:n]); writeErr != nil {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("failed to buffer audio: %v", writeErr))
				return
			}
		}
		if err != nil {
			if !isCaptureClosed(err) {
				events.SessionError(domain.ErrorCodeAudioStream, fmt.Sprintf("audio capture error: %v", err))
			}
			return
		}
	}
}

// isCaptureClosed reports the errors a reader sees when capture ends normally.
func isCaptureClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}

// drainCapture stops the capture and waits for the pump to see EOF. A pump
// still running after timeout is unblocked by closing the session.
func drainCapture(audio ports.AudioSession, pumpDone <-chan struct{}, timeout time.Duration) error {
	stopErr := audio.Stop()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-pumpDone:
	case <-timer.C:
		_ = audio.Close()
		<-pumpDone
	}
	return stopErr
}
