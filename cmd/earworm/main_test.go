package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"earworm/internal/config"
	"earworm/internal/domain"
	"earworm/internal/journal"
)

func TestApplyFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EARWORM_CONFIG", "")

	root := newRootCmd()
	if err := root.ParseFlags([]string{
		"--model", "large-v3",
		"--language", "de",
		"--no-voice-commands",
		"--no-preview",
		"--auto-accept", "2s",
		"--remove-fillers",
		"--listen", "127.0.0.1:9000",
		"--log-level", "debug",
	}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := loadConfig(root)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Engine.Model != "large-v3" || cfg.Dictation.Language != "de" {
		t.Fatalf("engine flags not applied: %+v %+v", cfg.Engine, cfg.Dictation)
	}
	if cfg.Dictation.VoiceCommands || cfg.Preview.Enabled || !cfg.Dictation.RemoveFillers {
		t.Fatalf("toggles not applied: %+v %+v", cfg.Dictation, cfg.Preview)
	}
	if !cfg.Dictation.SmartPunctuation {
		t.Fatal("punctuation must stay on without --no-punctuation")
	}
	if cfg.Preview.AutoAcceptDelay != 2*time.Second || cfg.Control.Listen != "127.0.0.1:9000" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected values: %+v %+v %+v", cfg.Preview, cfg.Control, cfg.Log)
	}
}

func TestApplyFlagsRejectsNegativeAutoAccept(t *testing.T) {
	root := newRootCmd()
	if err := root.ParseFlags([]string{"--auto-accept", "-1s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	var cfg config.Config
	if err := applyFlags(root, &cfg); err == nil {
		t.Fatal("expected negative delay to be rejected")
	}
}

func TestProcessCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("EARWORM_CONFIG", "")

	tests := []struct {
		name  string
		args  []string
		stdin string
		want  string
	}{
		{name: "args", args: []string{"process", "hello", "comma", "world", "period"}, want: "Hello, world.\n"},
		{name: "stdin", args: []string{"process"}, stdin: "is this working", want: "Is this working?\n"},
		{name: "literal commands", args: []string{"--no-voice-commands", "process", "new", "line"}, want: "New line.\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			root := newRootCmd()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetIn(strings.NewReader(tc.stdin))
			root.SetArgs(tc.args)

			if err := root.Execute(); err != nil {
				t.Fatalf("execute: %v", err)
			}
			if out.String() != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, out.String())
			}
		})
	}
}

func TestHistoryCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("EARWORM_CONFIG", "")
	path := filepath.Join(home, "journal.db")
	t.Setenv("EARWORM_JOURNAL_PATH", path)

	store, err := journal.Open(path)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	now := time.Now()
	if err := store.Record(context.Background(), domain.JournalEntry{
		SessionID: "s1", StartedAt: now, ResolvedAt: now, Outcome: domain.OutcomeAccepted,
		RawText: "hello period", FinalText: "Hello.", Actions: []string{"insert_punctuation ."},
	}); err != nil {
		t.Fatalf("record: %v", err)
	}
	store.Close()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"history", "--verbose"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"OUTCOME", "accepted", "Hello.", "insert_punctuation ."} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}
