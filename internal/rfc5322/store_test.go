package rfc5322

import (
	"bytes"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moriyoshi/addrspec/internal/bufio"
)

const message = "Return-Path: <old@example.com>\r\n" +
	"Subject: hello\r\n" +
	"Message-ID:\r\n <1234@example.com>\r\n" +
	"\r\n" +
	"Hello, world!\r\n"

func TestStore(t *testing.T) {
	var s Store
	require.NoError(t, Scan(bufio.NewBytesReader([]byte(message)), &s))
	require.Len(t, s, 4)

	v, ok := s.Get("message-id")
	assert.True(t, ok)
	assert.Equal(t, "<1234@example.com>", string(v))
	_, ok = s.Get("To")
	assert.False(t, ok)

	assert.Nil(t, s[3].Name())
	assert.Nil(t, s[3].Value())

	var buf bytes.Buffer
	require.NoError(t, s.Replay(&Builder{Writer: &buf}))
	assert.Equal(t, message, buf.String())

	s.Remove("RETURN-PATH", "X-Unrelated")
	require.Len(t, s, 3)
	assert.Equal(t, "Subject", string(s[0].Name()))
}

func TestPrepend(t *testing.T) {
	fields := []Field{
		{"Return-Path", "<new@example.com>"},
		{"X-Original-To", "rcpt@example.com"},
	}

	var s Store
	require.NoError(t, Scan(bufio.NewBytesReader([]byte(" straggler\r\n"+message)), &s))
	var buf bytes.Buffer
	require.NoError(t, s.Prepend(&buf, fields, "Return-Path"))
	assert.Equal(
		t,
		"Return-Path: <new@example.com>\r\n"+
			"X-Original-To: rcpt@example.com\r\n"+
			"Subject: hello\r\n"+
			"Message-ID:\r\n <1234@example.com>\r\n"+
			"\r\n"+
			"Hello, world!\r\n",
		buf.String(),
	)

	m, err := mail.ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, "<new@example.com>", m.Header.Get("Return-Path"))
	assert.Equal(t, "hello", m.Header.Get("Subject"))
}

func TestStorePrependLeavesStoreIntact(t *testing.T) {
	var s Store
	require.NoError(t, Scan(bufio.NewBytesReader([]byte(message)), &s))
	for i := 0; i < 2; i++ {
		var buf bytes.Buffer
		require.NoError(t, s.Prepend(&buf, []Field{{"X-Original-To", "a@example.com"}}, "Return-Path"))
		assert.True(t, strings.HasPrefix(buf.String(), "X-Original-To: a@example.com\r\nSubject: hello\r\n"))
	}
	require.Len(t, s, 4)
	assert.Equal(t, "Return-Path", string(s[0].Name()))
}
