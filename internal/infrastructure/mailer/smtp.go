package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"MarketScanner/internal/config"
	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

const implicitTLSPort = 465

// ErrAuthUnavailable is returned when credentials are configured but the
// server does not offer AUTH.
var ErrAuthUnavailable = errors.New("SMTP server does not offer AUTH")

// SMTPMailer sends reports over SMTP. Port 465 uses implicit TLS, any other
// port upgrades with STARTTLS when the server offers it.
type SMTPMailer struct {
	cfg       config.SMTPConfig
	tlsConfig *tls.Config
	now       func() time.Time
	logger    *slog.Logger
}

var _ ports.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer from configuration.
func NewSMTPMailer(cfg config.SMTPConfig, log *slog.Logger) *SMTPMailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SMTPMailer{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		now:       time.Now,
		logger:    log,
	}
}

// Send delivers doc to every recipient in one SMTP transaction.
func (m *SMTPMailer) Send(ctx context.Context, recipients []string, doc domain.Document) error {
	if len(recipients) == 0 {
		return errors.New("no recipients")
	}
	if m.cfg.Host == "" || m.cfg.From == "" {
		return errors.New("smtp host or sender not configured")
	}

	msg, err := Compose(Envelope{
		From:     m.cfg.From,
		FromName: m.cfg.FromName,
		To:       recipients,
		Date:     m.now(),
	}, doc)
	if err != nil {
		return fmt.Errorf("compose message: %w", err)
	}

	client, err := m.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := m.transact(client, recipients, msg); err != nil {
		return err
	}
	m.logger.Info("mail sent", "host", m.cfg.Host, "recipients", len(recipients), "bytes", len(msg))
	return nil
}

func (m *SMTPMailer) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	deadline := time.Now().Add(m.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var (
		conn net.Conn
		err  error
	)
	if m.cfg.Port == implicitTLSPort {
		dialer := &tls.Dialer{NetDialer: &net.Dialer{Deadline: deadline}, Config: m.tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		dialer := &net.Dialer{Deadline: deadline}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	if err := conn.SetDeadline(deadline); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create SMTP client: %w", err)
	}

	if m.cfg.Port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(m.tlsConfig); err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("start TLS: %w", err)
			}
		}
	}
	return client, nil
}

func (m *SMTPMailer) transact(client *smtp.Client, recipients []string, msg []byte) error {
	if m.cfg.Username != "" {
		if ok, _ := client.Extension("AUTH"); !ok {
			return fmt.Errorf("%w: credentials for %s configured", ErrAuthUnavailable, m.cfg.Username)
		}
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("set mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("set recipient %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("start data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data writer: %w", err)
	}
	return client.Quit()
}
