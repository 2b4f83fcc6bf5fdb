package cli

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/kilupskalvis/talentflow/internal/config"
	"github.com/kilupskalvis/talentflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindByID(t *testing.T) {
	jobs := []models.Job{
		{ID: "a1b2c3d4-0001", Title: "One"},
		{ID: "a1b2c3d4-0002", Title: "Two"},
		{ID: "ffee0000-0003", Title: "Three"},
		{ID: "7", Title: "Seven"},
	}

	tests := []struct {
		name   string
		id     string
		want   string
		wantOK bool
	}{
		{"exact", "a1b2c3d4-0002", "Two", true},
		{"short exact", "7", "Seven", true},
		{"unique prefix", "ffee", "Three", true},
		{"ambiguous prefix", "a1b2c3d4", "", false},
		{"prefix too short", "ffe", "", false},
		{"unknown", "zzzz", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := findByID(jobs, tt.id, jobID)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.Title)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Nil(t, splitList(" , ,"))
	assert.Equal(t, []string{"http://a", "http://b"}, splitList("http://a, ,http://b "))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "12345678", shortID("123456789abc"))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestNewLogger_DefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "bogus", "text")

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestBackendConfig(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.LatencyMin = config.Duration(10 * time.Millisecond)
	cfg.LatencyMax = config.Duration(20 * time.Millisecond)
	cfg.FailureRate = 0.5
	cfg.ReorderFailureRate = 0.25

	bc := backendConfig(cfg, slog.Default())
	assert.Equal(t, 10*time.Millisecond, bc.MinLatency)
	assert.Equal(t, 20*time.Millisecond, bc.MaxLatency)
	assert.Equal(t, 0.5, bc.FailureRate)
	assert.Equal(t, 0.25, bc.ReorderFailureRate)
	assert.Nil(t, bc.Webhooks)

	cfg.WebhookURLs = []string{"http://example.invalid/hook"}
	bc = backendConfig(cfg, slog.Default())
	require.NotNil(t, bc.Webhooks)
}

func TestBackendConfig_NoLatency(t *testing.T) {
	flagNoLatency = true
	t.Cleanup(func() { flagNoLatency = false })

	bc := backendConfig(config.Default(t.TempDir()), slog.Default())
	assert.Zero(t, bc.MinLatency)
	assert.Zero(t, bc.MaxLatency)
}
