package sink

import (
	"context"
	"net/mail"
	"net/smtp"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moriyoshi/addrspec/policy"
)

func startServer(t *testing.T, options ...OptionFunc) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s, err := NewServer("localhost:0", "", append([]OptionFunc{WithHostname("mx.example.com")}, options...)...)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	select {
	case err := <-done:
		t.Fatalf("server exited early: %v", err)
	case <-s.Ready():
	}
	return s
}

func dial(t *testing.T, s *Server) *smtp.Client {
	c, err := smtp.Dial(s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	require.NoError(t, c.Hello("sender.example.com"))
	return c
}

func recipients(verdict string) float64 {
	return testutil.ToFloat64(recipientsTotal.WithLabelValues(verdict))
}

func messages(result string) float64 {
	return testutil.ToFloat64(messagesTotal.WithLabelValues(result))
}

func TestRecipientValidation(t *testing.T) {
	p, err := policy.New(policy.Rules{
		{Domain: regexp.MustCompile(`^blocked\.example$`), Action: policy.Reject},
	})
	require.NoError(t, err)
	s := startServer(t, WithPolicy(p))

	accepted := recipients(verdictAccepted)
	invalid := recipients(verdictInvalidRecipient)
	rejected := recipients(verdictRejected)

	c := dial(t, s)
	require.NoError(t, c.Mail("foo@example.com"))
	assert.NoError(t, c.Rcpt("bar@example.com"))
	assert.NoError(t, c.Rcpt(`"test"."test"@iana.org`))
	assert.Error(t, c.Rcpt("bar@-example.com"))
	assert.Error(t, c.Rcpt("bar@blocked.example"))

	assert.Equal(t, accepted+2, recipients(verdictAccepted))
	assert.Equal(t, invalid+1, recipients(verdictInvalidRecipient))
	assert.Equal(t, rejected+1, recipients(verdictRejected))
}

func TestStrictRecipientValidation(t *testing.T) {
	s := startServer(t, WithStrict(true))
	c := dial(t, s)
	require.NoError(t, c.Mail("foo@example.com"))
	assert.NoError(t, c.Rcpt("bar@example.com"))
	assert.Error(t, c.Rcpt(`"test"."test"@iana.org`))
}

func TestSenderValidation(t *testing.T) {
	s := startServer(t)
	invalid := recipients(verdictInvalidSender)

	c := dial(t, s)
	require.NoError(t, c.Mail("foo@-example.com"))
	assert.Error(t, c.Rcpt("bar@example.com"))
	assert.Equal(t, invalid+1, recipients(verdictInvalidSender))
	require.NoError(t, c.Reset())

	// null reverse-path
	require.NoError(t, c.Mail(""))
	assert.NoError(t, c.Rcpt("bar@example.com"))
}

func send(t *testing.T, c *smtp.Client, from string, to []string, body string) {
	require.NoError(t, c.Mail(from))
	for _, rcpt := range to {
		require.NoError(t, c.Rcpt(rcpt))
	}
	w, err := c.Data()
	require.NoError(t, err)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestSpool(t *testing.T) {
	dir := t.TempDir()
	s := startServer(t, WithSpoolDir(dir))
	spooled := messages(resultSpooled)

	c := dial(t, s)
	send(t, c, "foo@example.com", []string{"bar@example.com", "baz@example.com"},
		"Return-Path: <forged@example.com>\r\nSubject: hello\r\nMessage-ID: <1@example.com>\r\n\r\nHello, world!\r\n")
	assert.Equal(t, spooled+1, messages(resultSpooled))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	seen := map[string]bool{}
	for _, e := range entries {
		require.True(t, strings.HasSuffix(e.Name(), ".eml"), e.Name())
		f, err := os.Open(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		m, err := mail.ReadMessage(f)
		f.Close()
		require.NoError(t, err)
		assert.Equal(t, "<foo@example.com>", m.Header.Get("Return-Path"))
		assert.Len(t, m.Header["Return-Path"], 1)
		assert.Equal(t, "hello", m.Header.Get("Subject"))
		assert.Contains(t, m.Header.Get("Received"), "by mx.example.com with ESMTP")
		rcpt := m.Header.Get("X-Original-To")
		assert.Contains(t, m.Header.Get("Received"), "for <"+rcpt+">")
		seen[rcpt] = true
	}
	assert.Equal(t, map[string]bool{"bar@example.com": true, "baz@example.com": true}, seen)
}

func TestDiscard(t *testing.T) {
	s := startServer(t)
	discarded := messages(resultDiscarded)
	c := dial(t, s)
	send(t, c, "foo@example.com", []string{"bar@example.com"}, "Subject: hello\r\n\r\nHello, world!\r\n")
	assert.Equal(t, discarded+1, messages(resultDiscarded))
}

func TestWithSpoolDir(t *testing.T) {
	_, err := NewServer("localhost:0", "", WithSpoolDir(filepath.Join(t.TempDir(), "missing")))
	assert.Error(t, err)

	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o600))
	_, err = NewServer("localhost:0", "", WithSpoolDir(f))
	assert.Error(t, err)
}
