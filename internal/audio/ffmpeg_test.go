package audio

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"earworm/internal/ports"
)

func TestFFmpegCaptureStartReadAndStop(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf 'hello'\nexec sleep 2\n")
	capture := NewFFmpegCapture(script, nil)

	session, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	buf := make([]byte, 8)
	n, readErr := session.Read(buf)
	if n <= 0 {
		t.Fatalf("expected audio bytes, got n=%d err=%v", n, readErr)
	}
	if !strings.Contains(string(buf[:n]), "hello") {
		t.Fatalf("unexpected bytes: %q", string(buf[:n]))
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("close after stop should be a no-op, got %v", err)
	}
}

func TestFFmpegCaptureStopKeepsTheFlushedTail(t *testing.T) {
	t.Parallel()

	// Like ffmpeg, the script writes its buffered audio when interrupted.
	script := writeScript(t, "flush.sh", strings.Join([]string{
		"#!/usr/bin/env bash",
		"trap 'head -c 200000 /dev/zero; exit 0' INT",
		"head -c 1000 /dev/zero",
		"while true; do sleep 0.05; done",
		"",
	}, "\n"))
	capture := NewFFmpegCapture(script, nil)

	for run := 0; run < 3; run++ {
		session, err := capture.Start(context.Background(), ports.AudioConfig{})
		if err != nil {
			t.Fatalf("start failed: %v", err)
		}

		type readResult struct {
			n   int
			err error
		}
		done := make(chan readResult, 1)
		go func() {
			data, err := io.ReadAll(session)
			done <- readResult{n: len(data), err: err}
		}()

		if err := session.Stop(); err != nil {
			t.Fatalf("run %d: stop failed: %v", run, err)
		}

		select {
		case res := <-done:
			if res.err != nil || res.n != 201000 {
				t.Fatalf("run %d: expected 201000 bytes and EOF, got %d bytes err=%v", run, res.n, res.err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("run %d: reader never saw EOF", run)
		}
	}
}

func TestFFmpegSessionCloseUnblocksStalledReader(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "stream.sh", "#!/usr/bin/env bash\nexec head -c 10000000 /dev/zero\n")
	capture := NewFFmpegCapture(script, nil)

	session, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Nobody reads, so the output backs up until Close drops it.
	closed := make(chan error, 1)
	go func() { closed <- session.Close() }()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("close did not return")
	}

	if _, err := session.Read(make([]byte, 16)); !errors.Is(err, io.ErrClosedPipe) {
		t.Fatalf("expected closed pipe after close, got %v", err)
	}
}

func TestFFmpegCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'no such device' 1>&2\nexit 1\n")
	capture := NewFFmpegCapture(script, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before capture started") || !strings.Contains(err.Error(), "no such device") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFFmpegArgsApplyDefaults(t *testing.T) {
	t.Parallel()

	args := ffmpegArgs(withDefaults(ports.AudioConfig{InputDevice: "hw:1"}))
	for _, pair := range [][2]string{{"-f", "pulse"}, {"-i", "hw:1"}, {"-ac", "1"}, {"-ar", "16000"}} {
		i := slices.Index(args, pair[0])
		if i < 0 || args[i+1] != pair[1] {
			t.Fatalf("expected %s %s in %v", pair[0], pair[1], args)
		}
	}
	if args[len(args)-1] != "-" {
		t.Fatalf("expected stdout output, got %v", args)
	}
}

func TestIgnoreExitStatus(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-c", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := ignoreExitStatus(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func TestTailBufferKeepsEnd(t *testing.T) {
	t.Parallel()

	b := &tailBuffer{limit: 5}
	_, _ = b.Write([]byte("  abc"))
	_, _ = b.Write([]byte("defgh\n"))
	if got := b.String(); got != "efgh" {
		t.Fatalf("unexpected tail: %q", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
