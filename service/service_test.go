package service

import (
	"encoding/json"
	"testing"
	"time"

	"render-orchestrator/dto"
)

func TestLiveProgress(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		elapsed      time.Duration
		estimate     time.Duration
		wantProgress int
	}{
		{name: "just started", elapsed: 0, estimate: time.Minute, wantProgress: 0},
		{name: "halfway", elapsed: 30 * time.Second, estimate: time.Minute, wantProgress: 50},
		{name: "overdue is capped", elapsed: 5 * time.Minute, estimate: time.Minute, wantProgress: 95},
		{name: "no estimate", elapsed: time.Minute, estimate: 0, wantProgress: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			progress, remaining := liveProgress(now.Add(-tt.elapsed), tt.estimate, now)
			if progress != tt.wantProgress {
				t.Errorf("expected progress %d, got %d", tt.wantProgress, progress)
			}
			if remaining < 0 {
				t.Errorf("remaining must not be negative, got %s", remaining)
			}
		})
	}
}

func TestDecodeOptions(t *testing.T) {
	fallback := dto.RenderOptions{}.WithVideoDefaults()

	full, _ := json.Marshal(dto.RenderOptions{Format: "WEBM", Quality: "4K"})
	partial, _ := json.Marshal(dto.RenderOptions{Width: 1920})

	tests := []struct {
		name     string
		metadata []byte
		want     string
	}{
		{name: "stored options win", metadata: full, want: "WEBM"},
		{name: "missing fields fall back", metadata: partial, want: fallback.Format},
		{name: "empty metadata falls back", metadata: nil, want: fallback.Format},
		{name: "garbage falls back", metadata: []byte("{nope"), want: fallback.Format},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeOptions(tt.metadata, fallback)
			if got.Format != tt.want {
				t.Errorf("expected format %s, got %s", tt.want, got.Format)
			}
		})
	}
}
