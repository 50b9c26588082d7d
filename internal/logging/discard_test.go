package logging

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrDiscard(t *testing.T) {
	l := OrDiscard(nil)
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
	assert.False(t, l.With(slog.String("k", "v")).WithGroup("g").Enabled(context.Background(), slog.LevelError))

	given := slog.Default()
	assert.Same(t, given, OrDiscard(given))
}
