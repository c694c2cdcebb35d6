package upstream

import (
	"context"
	"testing"
	"time"

	"github.com/dennisdiepolder/activations/backend/internal/config"
	"github.com/rs/zerolog"
)

func TestNewSelectsSource(t *testing.T) {
	ctx := context.Background()

	src, err := New(ctx, &config.Config{
		UpstreamMode:  config.UpstreamAppsScript,
		AppsScriptURL: "http://localhost:8081/exec",
		FetchTimeout:  time.Second,
	}, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(*AppsScriptClient); !ok {
		t.Errorf("expected *AppsScriptClient, got %T", src)
	}

	if _, err := New(ctx, &config.Config{UpstreamMode: "ftp"}, zerolog.Nop()); err == nil {
		t.Error("expected error for unknown upstream mode")
	}
}
