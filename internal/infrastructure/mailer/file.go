package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"MarketScanner/internal/domain"
	"MarketScanner/internal/ports"
)

// FileMailer writes the report to disk instead of mailing it. A path ending in
// ".eml" receives the full MIME message, anything else the HTML body.
type FileMailer struct {
	path   string
	from   string
	now    func() time.Time
	logger *slog.Logger
}

var _ ports.Mailer = (*FileMailer)(nil)

// NewFileMailer creates the dry-run sink.
func NewFileMailer(path, from string, log *slog.Logger) *FileMailer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	if from == "" {
		from = "marketscanner@localhost"
	}
	return &FileMailer{path: path, from: from, now: time.Now, logger: log}
}

// Send writes doc to the configured path.
func (f *FileMailer) Send(_ context.Context, recipients []string, doc domain.Document) error {
	body := []byte(doc.HTML)
	if strings.EqualFold(filepath.Ext(f.path), ".eml") {
		msg, err := Compose(Envelope{From: f.from, To: recipients, Date: f.now()}, doc)
		if err != nil {
			return fmt.Errorf("compose message: %w", err)
		}
		body = msg
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(f.path, body, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	f.logger.Info("report written", "path", f.path, "subject", doc.Subject, "recipients", len(recipients))
	return nil
}
