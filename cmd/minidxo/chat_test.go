package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PabloGalante/minidxo/internal/adapters/terminal"
	"github.com/PabloGalante/minidxo/internal/app/conversation"
	"github.com/PabloGalante/minidxo/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.KnowledgeSource = filepath.Join(t.TempDir(), "source.txt")
	return cfg
}

func TestBuildRuntime_LocalDefaults(t *testing.T) {
	rt, err := buildRuntime(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	defer rt.Close()

	if rt.service == nil || rt.policy == nil || rt.llm == nil {
		t.Fatalf("runtime not fully wired: %+v", rt)
	}
}

func TestBuildRuntime_SQLiteAndWebCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.StorageBackend = config.StorageSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "minidxo.sqlite")
	cfg.WebCachePath = filepath.Join(t.TempDir(), "webcache")

	rt, err := buildRuntime(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	if len(rt.closers) != 2 {
		t.Errorf("expected cache and store closers, got %d", len(rt.closers))
	}
	if err := rt.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestRunChat(t *testing.T) {
	rt, err := buildRuntime(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("buildRuntime: %v", err)
	}
	defer rt.Close()

	off := false
	in := conversation.StartSessionInput{UserID: "tester", Panel: &off}
	stdin := strings.NewReader("I have a cough and fever\n\n/history\n/quit\nnever sent\n")
	var stdout bytes.Buffer

	if err := runChat(context.Background(), rt.service, in, terminal.NewRenderer(0), stdin, &stdout); err != nil {
		t.Fatalf("runChat: %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"Here is my thought process",
		"viral infections",
		"lookups: 1, evidence: trusted",
		"You",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "never sent") {
		t.Error("input after /quit was processed")
	}
}
