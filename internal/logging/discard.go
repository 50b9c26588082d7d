// Package logging provides the logger library components fall back to when
// none is given.
package logging

import (
	"context"
	"log/slog"
)

// DiscardHandler implements slog.Handler and drops every record.
type DiscardHandler struct{}

func (h DiscardHandler) Enabled(context.Context, slog.Level) bool {
	return false
}

func (h DiscardHandler) Handle(context.Context, slog.Record) error {
	return nil
}

func (h DiscardHandler) WithAttrs([]slog.Attr) slog.Handler {
	return h
}

func (h DiscardHandler) WithGroup(string) slog.Handler {
	return h
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(DiscardHandler{})
}

// OrDiscard returns logger, or a discarding logger if it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
