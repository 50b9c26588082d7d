package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

type CLI struct {
	LogLevel slog.Level `name:"log-level" help:"Log level." env:"ADDRSPEC_LOG_LEVEL" default:"INFO" enum:"DEBUG,INFO,WARN,ERROR"`

	Parse ParseCmd `cmd:"" help:"Parse addresses given as arguments or read line by line from standard input."`
	Serve ServeCmd `cmd:"" help:"Run an SMTP sink that refuses malformed addresses."`
}

// initLogger logs to stderr, as stdout carries the output of parse.
func (CLI *CLI) initLogger(*kong.Context) *slog.Logger {
	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) {
		handler = tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{Level: CLI.LogLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: CLI.LogLevel})
	}
	return slog.New(handler)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()
	var CLI CLI
	kongCtx := kong.Parse(
		&CLI,
		kong.Name("addrspec"),
		kong.Description("RFC 5322 addr-spec validator."),
		kong.UsageOnError(),
	)
	logger := CLI.initLogger(kongCtx)
	kongCtx.BindTo(ctx, (*context.Context)(nil))
	err := kongCtx.Run(logger, cancel)
	if errors.Is(err, errRejected) {
		os.Exit(1)
	}
	kongCtx.FatalIfErrorf(err)
}
