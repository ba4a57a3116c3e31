package main

import (
	"context"
	"errors"
	"flag"
	"path/filepath"
	"testing"
)

func TestRunReturnsErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("UnknownCommand", func(t *testing.T) {
		if err := run(ctx, nil, nil, "bogus", nil); err == nil {
			t.Error("expected an error for an unknown command")
		}
	})

	t.Run("BadFlag", func(t *testing.T) {
		if err := run(ctx, nil, nil, "recipes", []string{"-nope"}); err == nil {
			t.Error("expected a flag parse error")
		}
	})

	t.Run("Help", func(t *testing.T) {
		if err := run(ctx, nil, nil, "recipes", []string{"-h"}); !errors.Is(err, flag.ErrHelp) {
			t.Errorf("expected flag.ErrHelp, got %v", err)
		}
	})
}

func TestStartExitCodes(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("API_BASE_URL", "http://127.0.0.1:1")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "planner.db"))
	for _, key := range []string{"REDIS_ADDR", "CACHE_DIR", "GEMINI_API_KEY", "GROQ_API_KEY"} {
		t.Setenv(key, "")
	}

	if code := start("bogus", nil); code != 1 {
		t.Errorf("unknown command: expected exit code 1, got %d", code)
	}
	if code := start("recipes", []string{"-h"}); code != 0 {
		t.Errorf("help: expected exit code 0, got %d", code)
	}
}
