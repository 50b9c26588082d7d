package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/moriyoshi/addrspec/policy"
	"github.com/moriyoshi/addrspec/sink"
)

func loadServerCertificate(certFile string, keyFile string, passphrase string) (*tls.Config, error) {
	var certPEMBlock, keyPEMBlock *pem.Block

	{
		b, err := os.ReadFile(certFile)
		if err != nil {
			return nil, err
		}
		for {
			var block *pem.Block
			block, b = pem.Decode(b)
			if block == nil {
				break
			}
			if block.Type == "CERTIFICATE" {
				certPEMBlock = block
			}
			if strings.HasSuffix(block.Type, "PRIVATE KEY") {
				keyPEMBlock = block
			}
		}
	}
	if certPEMBlock == nil {
		return nil, fmt.Errorf("no certificate found in %s", certFile)
	}
	if keyFile != "" {
		b, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, err
		}
		keyPEMBlock, _ = pem.Decode(b)
		if keyPEMBlock == nil || !strings.HasSuffix(keyPEMBlock.Type, "PRIVATE KEY") {
			return nil, fmt.Errorf("no private key found in %s", keyFile)
		}
	} else if keyPEMBlock == nil {
		return nil, fmt.Errorf("no key found in %s and no key file is specified", certFile)
	}

	if passphrase != "" {
		//nolint:staticcheck // legacy encrypted PEM keys are still in use
		b, err := x509.DecryptPEMBlock(keyPEMBlock, []byte(passphrase))
		if err != nil {
			return nil, err
		}
		keyPEMBlock.Bytes = b
	}
	cert, err := tls.X509KeyPair(pem.EncodeToMemory(certPEMBlock), pem.EncodeToMemory(keyPEMBlock))
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
	}, nil
}

type ServeCmd struct {
	Bind            string `name:"bind" help:"Address and port to listen on." env:"ADDRSPEC_BIND" default:"[::0]:60025"`
	BindImplicitTLS string `name:"bind-implicit-tls" help:"Address and port to listen on, for implicit TLS. Requires a certificate." env:"ADDRSPEC_BIND_IMPLICIT_TLS" optional:""`
	Certificate     string `name:"certificate" help:"Path to the certificate file." env:"ADDRSPEC_CERTIFICATE" optional:""`
	PrivateKey      string `name:"private-key" help:"Path to the private key file." env:"ADDRSPEC_PRIVATE_KEY" optional:""`
	Passphrase      string `name:"passphrase" help:"Passphrase for the private key file." env:"ADDRSPEC_PASSPHRASE" optional:""`
	Hostname        string `name:"hostname" help:"Host name to be used in the SMTP banner." env:"ADDRSPEC_HOSTNAME" optional:""`
	Strict          bool   `name:"strict" help:"Refuse addresses in the obsolete syntax." env:"ADDRSPEC_STRICT"`
	Policy          string `name:"policy" help:"Path to the recipient policy file (YAML or JSON)." env:"ADDRSPEC_POLICY" optional:""`
	SpoolDir        string `name:"spool-dir" help:"Directory to keep accepted messages in. Messages are discarded if unset." env:"ADDRSPEC_SPOOL_DIR" optional:""`
	MetricsBind     string `name:"metrics-bind" help:"Address and port to serve Prometheus metrics on." env:"ADDRSPEC_METRICS_BIND" optional:""`
}

func (cmd *ServeCmd) newServer(logger *slog.Logger) (*sink.Server, error) {
	options := []sink.OptionFunc{
		sink.WithLogger(logger),
		sink.WithStrict(cmd.Strict),
		sink.WithSpoolDir(cmd.SpoolDir),
	}
	if cmd.Hostname != "" {
		options = append(options, sink.WithHostname(cmd.Hostname))
	}
	if cmd.Certificate != "" {
		serverTLSConfig, err := loadServerCertificate(cmd.Certificate, cmd.PrivateKey, cmd.Passphrase)
		if err != nil {
			return nil, err
		}
		options = append(options, sink.WithTLSConfig(serverTLSConfig))
	} else if cmd.BindImplicitTLS != "" {
		return nil, errors.New("--bind-implicit-tls requires --certificate")
	}
	if cmd.Policy != "" {
		p, err := policy.NewFromFile(cmd.Policy, policy.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		options = append(options, sink.WithPolicy(p))
	}
	return sink.NewServer(cmd.Bind, cmd.BindImplicitTLS, options...)
}

func serveMetrics(ctx context.Context, logger *slog.Logger, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics", slog.String("addr", addr))
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	return err
}

func (cmd *ServeCmd) Run(ctx context.Context, logger *slog.Logger, cancel context.CancelFunc) error {
	server, err := cmd.newServer(logger)
	if err != nil {
		return err
	}
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-ctx.Done():
		case <-sigChan:
			logger.Info("received SIGINT, shutting down...")
			shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 30*time.Second)
			defer cancelShutdown()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shut down", slog.Any("error", err))
			}
			cancel()
		}
	}()
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return server.Serve(egCtx)
	})
	if cmd.MetricsBind != "" {
		eg.Go(func() error {
			return serveMetrics(egCtx, logger, cmd.MetricsBind)
		})
	}
	return eg.Wait()
}
