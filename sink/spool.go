package sink

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/moriyoshi/addrspec/internal/rfc5322"
)

// maxSpoolWriters bounds the number of copies of one message written at
// once.
const maxSpoolWriters = 4

// reception describes how a message came in, for its Received field.
type reception struct {
	origin    net.Addr
	host      string
	id        uuid.UUID
	timestamp time.Time
}

func (rc *reception) received(recipient string) string {
	return fmt.Sprintf(
		"from %s by %s with ESMTP id %s for <%s>; %s",
		rc.origin.String(),
		rc.host,
		rc.id.String(),
		recipient,
		rc.timestamp.Format(time.RFC1123Z),
	)
}

func traceFields(rc *reception, from, recipient string) []rfc5322.Field {
	return []rfc5322.Field{
		{Name: "Return-Path", Value: "<" + from + ">"},
		{Name: "Received", Value: rc.received(recipient)},
		{Name: "X-Original-To", Value: recipient},
	}
}

// spool writes one copy of msg per recipient into dir, named after a fresh
// UUID. A copy is written under a temporary name and renamed into place so
// that readers of dir never see a partial file.
func spool(ctx context.Context, dir string, rc *reception, msg rfc5322.Store, from string, to []string) ([]string, error) {
	paths := make([]string, len(to))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxSpoolWriters)
	for i, rcpt := range to {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var buf bytes.Buffer
			err := msg.Prepend(&buf, traceFields(rc, from, rcpt), "Return-Path")
			if err != nil {
				return fmt.Errorf("failed to build message for %s: %w", rcpt, err)
			}
			path := filepath.Join(dir, uuid.NewString()+".eml")
			tmp := path + ".tmp"
			if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
				return err
			}
			if err := os.Rename(tmp, path); err != nil {
				os.Remove(tmp)
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}
