// Package sink implements an SMTP sink that only takes mail between
// addresses that parse as RFC 5322 addr-specs.
package sink

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mhale/smtpd"
	"golang.org/x/sync/errgroup"

	"github.com/moriyoshi/addrspec"
	"github.com/moriyoshi/addrspec/internal/bufio"
	"github.com/moriyoshi/addrspec/internal/logging"
	"github.com/moriyoshi/addrspec/internal/rfc5322"
	"github.com/moriyoshi/addrspec/policy"
)

const appName = "addrspec"

type serverListenerPair struct {
	s         *smtpd.Server
	readyChan chan *serverListenerPair
	l         net.Listener
}

func (pair *serverListenerPair) Valid() bool {
	return pair.s != nil
}

func (pair *serverListenerPair) Ready() <-chan *serverListenerPair {
	return pair.readyChan
}

func (pair *serverListenerPair) setListener(l net.Listener) {
	pair.l = l
	pair.readyChan <- pair
}

func newServerListenerPair(s *smtpd.Server) serverListenerPair {
	return serverListenerPair{s: s, readyChan: make(chan *serverListenerPair)}
}

type Server struct {
	addr           string
	implicitAddr   string
	appname        string
	hostname       string
	tlsConfig      *tls.Config
	logger         *slog.Logger
	parser         *addrspec.Parser
	policy         *policy.Policy
	spoolDir       string
	server         serverListenerPair
	serverImplicit serverListenerPair
	readyChan      chan struct{}
}

type OptionFunc func(s *Server) error

func WithHostname(hostname string) OptionFunc {
	return func(s *Server) error {
		s.hostname = hostname
		return nil
	}
}

func WithTLSConfig(tlsConfig *tls.Config) OptionFunc {
	return func(s *Server) error {
		s.tlsConfig = tlsConfig
		return nil
	}
}

func WithLogger(logger *slog.Logger) OptionFunc {
	return func(s *Server) error {
		s.logger = logging.OrDiscard(logger)
		return nil
	}
}

// WithStrict rejects addresses that only parse under the obsolete syntax.
func WithStrict(strict bool) OptionFunc {
	return func(s *Server) error {
		s.parser = &addrspec.Parser{Strict: strict}
		return nil
	}
}

// WithPolicy sets the policy recipients are checked against. Without one
// every well-formed recipient is accepted.
func WithPolicy(p *policy.Policy) OptionFunc {
	return func(s *Server) error {
		s.policy = p
		return nil
	}
}

// WithSpoolDir makes the server keep accepted messages in dir. Without it
// messages are discarded once received.
func WithSpoolDir(dir string) OptionFunc {
	return func(s *Server) error {
		if dir != "" {
			fi, err := os.Stat(dir)
			if err != nil {
				return fmt.Errorf("spool directory: %w", err)
			}
			if !fi.IsDir() {
				return fmt.Errorf("spool directory: %s is not a directory", dir)
			}
		}
		s.spoolDir = dir
		return nil
	}
}

func (s *Server) newSmtpdServerProto(addr string, tlsListener bool) *smtpd.Server {
	return &smtpd.Server{
		Appname:     s.appname,
		Hostname:    s.hostname,
		TLSConfig:   s.tlsConfig,
		Addr:        addr,
		TLSListener: tlsListener,
	}
}

func NewServer(bind, bindImplicitTLS string, options ...OptionFunc) (*Server, error) {
	s := &Server{
		addr:         bind,
		implicitAddr: bindImplicitTLS,
		appname:      appName,
		logger:       logging.Discard(),
		parser:       &addrspec.Parser{},
		readyChan:    make(chan struct{}),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if s.hostname == "" {
		s.hostname, _ = os.Hostname()
	}
	s.server = newServerListenerPair(s.newSmtpdServerProto(s.addr, false))
	if s.implicitAddr != "" {
		s.serverImplicit = newServerListenerPair(s.newSmtpdServerProto(s.implicitAddr, true))
	}
	return s, nil
}

// checkRecipient returns the verdict for a recipient offered by from.
func (s *Server) checkRecipient(logger *slog.Logger, from string, to string) string {
	// the null reverse-path is always welcome
	if from != "" {
		if _, ok := s.parser.Parse(from); !ok {
			return verdictInvalidSender
		}
	}
	rcpt, ok := s.parser.Parse(to)
	if !ok {
		return verdictInvalidRecipient
	}
	if rcpt.Obsolete() {
		logger.Info("recipient uses obsolete syntax")
	}
	if s.policy != nil {
		action, i := s.policy.Evaluate(rcpt)
		if action == policy.Reject {
			logger.Info("recipient rejected by policy", slog.Int("rule", i))
			return verdictRejected
		}
	}
	return verdictAccepted
}

func (s *Server) rcptHandler(origin net.Addr, from string, to string) bool {
	logger := s.logger.With(slog.String("origin", origin.String()), slog.String("from", from), slog.String("to", to))
	verdict := s.checkRecipient(logger, from, to)
	recipientsTotal.WithLabelValues(verdict).Inc()
	if verdict != verdictAccepted {
		logger.Warn("recipient refused", slog.String("verdict", verdict))
		return false
	}
	logger.Debug("recipient accepted")
	return true
}

func (s *Server) handlerInner(ctx context.Context, logger *slog.Logger, origin net.Addr, from string, to []string, data []byte) (string, error) {
	var msg rfc5322.Store
	err := rfc5322.Scan(bufio.NewBytesReader(data), &msg)
	if err != nil {
		return resultFailed, fmt.Errorf("failed to scan message: %w", err)
	}
	if messageID, ok := msg.Get("Message-ID"); ok {
		logger = logger.With(slog.String("message_id", string(messageID)))
	}
	if s.spoolDir == "" {
		logger.Info("message discarded")
		return resultDiscarded, nil
	}
	rc := &reception{
		origin:    origin,
		host:      s.hostname,
		id:        uuid.New(),
		timestamp: time.Now(),
	}
	paths, err := spool(ctx, s.spoolDir, rc, msg, from, to)
	if err != nil {
		return resultFailed, fmt.Errorf("failed to spool message: %w", err)
	}
	logger.Info("message spooled", slog.String("id", rc.id.String()), slog.Any("paths", paths))
	return resultSpooled, nil
}

func (s *Server) handler(ctx context.Context, origin net.Addr, from string, to []string, data []byte) error {
	logger := s.logger.With(slog.String("origin", origin.String()), slog.String("from", from), slog.Any("to", to), slog.Any("size", len(data)))
	result, err := s.handlerInner(ctx, logger, origin, from, to, data)
	messagesTotal.WithLabelValues(result).Inc()
	if err != nil {
		logger.Error("failed to handle mail", slog.Any("error", err))
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	eg, innerCtx := errgroup.WithContext(ctx)
	if s.server.Valid() && s.server.l != nil {
		s.server.l.Close()
		eg.Go(func() error { return s.server.s.Shutdown(innerCtx) })
	}
	if s.serverImplicit.Valid() && s.serverImplicit.l != nil {
		s.serverImplicit.l.Close()
		eg.Go(func() error { return s.serverImplicit.s.Shutdown(innerCtx) })
	}
	return eg.Wait()
}

type listenerWithContext struct {
	net.Listener
	ctx    context.Context
	cancel context.CancelFunc
}

func (l *listenerWithContext) Context() context.Context {
	return l.ctx
}

func (l *listenerWithContext) Close() error {
	err := l.Listener.Close()
	l.cancel()
	return err
}

func (l *listenerWithContext) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			l.cancel()
		}
	}
	return conn, err
}

func wrapListener(ctx context.Context, ln net.Listener) *listenerWithContext {
	ctx, cancel := context.WithCancel(ctx)
	inner := &listenerWithContext{
		Listener: ln,
		ctx:      ctx,
		cancel:   cancel,
	}
	go func() {
		<-ctx.Done()
		inner.Close()
	}()
	return inner
}

func (s *Server) listenAndServe(
	ctx context.Context,
	slp *serverListenerPair,
) error {
	if slp.s.Appname == "" {
		slp.s.Appname = "smtpd"
	}
	if slp.s.Timeout == 0 {
		slp.s.Timeout = 5 * time.Minute
	}

	ln, err := net.Listen("tcp", slp.s.Addr)
	if err != nil {
		return err
	}
	ln = wrapListener(ctx, ln)
	// an implicit TLS listener speaks TLS from the first byte
	if slp.s.TLSConfig != nil && slp.s.TLSListener {
		ln = tls.NewListener(ln, slp.s.TLSConfig)
	}
	slp.s.Handler = func(origin net.Addr, from string, to []string, data []byte) error {
		return s.handler(ctx, origin, from, to, data)
	}
	slp.s.HandlerRcpt = s.rcptHandler
	slp.setListener(ln)
	return slp.s.Serve(ln)
}

// Addr returns the address the plain listener is bound to, or nil before
// Ready is closed.
func (s *Server) Addr() net.Addr {
	if s.server.l == nil {
		return nil
	}
	return s.server.l.Addr()
}

func (s *Server) Ready() <-chan struct{} {
	return s.readyChan
}

func (s *Server) Serve(ctx context.Context) error {
	eg, innerCtx := errgroup.WithContext(ctx)
	readyChans := make([]<-chan *serverListenerPair, 0, 2)
	for _, slp := range []*serverListenerPair{&s.server, &s.serverImplicit} {
		if !slp.Valid() {
			continue
		}
		eg.Go(func() error {
			err := s.listenAndServe(innerCtx, slp)
			if errors.Is(err, net.ErrClosed) || errors.Is(err, smtpd.ErrServerClosed) {
				err = nil
			}
			return err
		})
		readyChans = append(readyChans, slp.Ready())
	}
	readyServers := make([]*serverListenerPair, 0, 2)
outer:
	for _, readyChan := range readyChans {
		select {
		case <-innerCtx.Done():
			for _, slp := range readyServers {
				err := slp.l.Close()
				if err != nil {
					s.logger.Warn("failed to close listener", slog.Any("error", err))
				}
				err = slp.s.Close()
				if err != nil {
					s.logger.Warn("failed to close server", slog.Any("error", err))
				}
			}
			break outer
		case slp := <-readyChan:
			s.logger.Info("listening", slog.String("addr", slp.l.Addr().String()), slog.Bool("implicit_tls", slp.s.TLSListener))
			readyServers = append(readyServers, slp)
		}
	}
	close(s.readyChan)
	return eg.Wait()
}
