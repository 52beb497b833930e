// Package mailer delivers rendered reports by SMTP or to a local file.
package mailer

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-message/mail"

	"MarketScanner/internal/domain"
)

// Envelope addresses one message.
type Envelope struct {
	From     string
	FromName string
	To       []string
	Date     time.Time
}

// Compose builds a multipart/alternative message with the plain-text body
// first and the HTML body second.
func Compose(env Envelope, doc domain.Document) ([]byte, error) {
	var h mail.Header
	h.SetDate(env.Date)
	h.SetAddressList("From", []*mail.Address{{Name: env.FromName, Address: env.From}})
	to := make([]*mail.Address, 0, len(env.To))
	for _, addr := range env.To {
		to = append(to, &mail.Address{Address: addr})
	}
	h.SetAddressList("To", to)
	h.SetSubject(doc.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}

	var buf bytes.Buffer
	mw, err := mail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create mail writer: %w", err)
	}

	tw, err := mw.CreateInline()
	if err != nil {
		return nil, fmt.Errorf("create inline writer: %w", err)
	}
	if err := writePart(tw, "text/plain", doc.Text); err != nil {
		return nil, err
	}
	if err := writePart(tw, "text/html", doc.HTML); err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("close inline writer: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close mail writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(tw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ph.Set("Content-Transfer-Encoding", "quoted-printable")
	w, err := tw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close %s part: %w", contentType, err)
	}
	return nil
}
