package main

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "password dropped", raw: "postgres://learnhub:s3cret@db:5432/learnhub", want: "postgres://learnhub@db:5432/learnhub"},
		{name: "password only", raw: "redis://:s3cret@cache:6379/0", want: "redis://redacted@cache:6379/0"},
		{name: "no credentials", raw: "redis://cache:6379", want: "redis://cache:6379"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, redactURL(tt.raw))
		})
	}
}

func TestSanitizeError(t *testing.T) {
	dsn := "postgres://learnhub:s3cret@db:5432/learnhub"
	err := errors.New("dial " + dsn + " failed; password=hunter2")

	got := sanitizeError(err, dsn)
	assert.NotContains(t, got, "s3cret")
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "postgres://learnhub@db:5432/learnhub")
	assert.Empty(t, sanitizeError(nil))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
