package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
	yaml "gopkg.in/yaml.v3"

	"github.com/moriyoshi/addrspec"
)

var errRejected = errors.New("some inputs were rejected")

type ParseCmd struct {
	Strict    bool     `name:"strict" help:"Reject the obsolete syntax." env:"ADDRSPEC_STRICT"`
	Format    string   `name:"format" help:"Output format." env:"ADDRSPEC_FORMAT" default:"text" enum:"text,json,yaml"`
	Jobs      int      `name:"jobs" short:"j" help:"Number of inputs parsed concurrently." default:"1"`
	Addresses []string `arg:"" name:"address" help:"Addresses to parse." optional:""`
}

type result struct {
	Input     string `json:"input" yaml:"input"`
	Valid     bool   `json:"valid" yaml:"valid"`
	LocalPart string `json:"local_part,omitempty" yaml:"local_part,omitempty"`
	Domain    string `json:"domain,omitempty" yaml:"domain,omitempty"`
	Obsolete  bool   `json:"obsolete,omitempty" yaml:"obsolete,omitempty"`
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	s := bufio.NewScanner(r)
	for s.Scan() {
		lines = append(lines, s.Text())
	}
	return lines, s.Err()
}

// parseAll parses inputs with up to jobs goroutines. Results are in input
// order.
func parseAll(ctx context.Context, p *addrspec.Parser, inputs []string, jobs int) ([]result, error) {
	results := make([]result, len(inputs))
	eg, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		eg.SetLimit(jobs)
	}
	for i, input := range inputs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := result{Input: input}
			if a, ok := p.Parse(input); ok {
				r.Valid = true
				r.LocalPart = a.LocalPart()
				r.Domain = a.Domain()
				r.Obsolete = a.Obsolete()
			}
			results[i] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeResults(w io.Writer, format string, results []result) error {
	switch format {
	case "text":
		for _, r := range results {
			var err error
			switch {
			case !r.Valid:
				_, err = fmt.Fprintf(w, "%q: invalid\n", r.Input)
			case r.Obsolete:
				_, err = fmt.Fprintf(w, "%q: local_part=%q domain=%q (obsolete)\n", r.Input, r.LocalPart, r.Domain)
			default:
				_, err = fmt.Fprintf(w, "%q: local_part=%q domain=%q\n", r.Input, r.LocalPart, r.Domain)
			}
			if err != nil {
				return err
			}
		}
		return nil
	case "json":
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func (cmd *ParseCmd) Run(ctx context.Context, logger *slog.Logger) error {
	inputs := cmd.Addresses
	if len(inputs) == 0 {
		var err error
		inputs, err = readLines(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read standard input: %w", err)
		}
	}
	results, err := parseAll(ctx, &addrspec.Parser{Strict: cmd.Strict}, inputs, cmd.Jobs)
	if err != nil {
		return err
	}
	if err := writeResults(os.Stdout, cmd.Format, results); err != nil {
		return err
	}
	rejected := 0
	for _, r := range results {
		if !r.Valid {
			rejected++
		}
	}
	logger.Debug("parsed", slog.Int("inputs", len(results)), slog.Int("rejected", rejected), slog.Bool("strict", cmd.Strict))
	if rejected > 0 {
		return errRejected
	}
	return nil
}
