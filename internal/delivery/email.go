// Package delivery moves export artifacts out of the process: feed files
// over SFTP and reports by email.
package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/JonMunkholm/permits/internal/logging"
)

// MIME types of the attachments this service sends.
const (
	MIMECSV  = "text/csv"
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ErrNoRecipients is returned when a message has no To address.
var ErrNoRecipients = errors.New("email: no recipients")

// Attachment is a file sent with a message.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Message is one email.
type Message struct {
	From       string
	To         []string
	Cc         []string
	Bcc        []string
	Subject    string
	Body       string
	HTML       bool
	Attachment *Attachment
}

// SMTPConfig locates the mail relay. An empty Host simulates sending.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends messages through an SMTP relay.
type SMTPMailer struct {
	cfg  SMTPConfig
	send sendFunc
}

// NewSMTPMailer returns a mailer for cfg.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers msg. Without a configured host the message is logged
// instead of sent.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	logger := logging.FromContext(ctx)

	if m.cfg.Host == "" {
		logger.Warn("smtp host not configured, simulating email send",
			"to", strings.Join(msg.To, ", "),
			"cc", strings.Join(msg.Cc, ", "),
			"subject", msg.Subject,
			"attachment", attachmentName(msg.Attachment),
		)
		return nil
	}

	raw, err := BuildMIME(msg)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	rcpts := make([]string, 0, len(msg.To)+len(msg.Cc)+len(msg.Bcc))
	rcpts = append(rcpts, msg.To...)
	rcpts = append(rcpts, msg.Cc...)
	rcpts = append(rcpts, msg.Bcc...)

	if err := m.send(addr, auth, msg.From, rcpts, raw); err != nil {
		return fmt.Errorf("email: send %q: %w", msg.Subject, err)
	}
	logger.Info("email sent", "subject", msg.Subject, "recipients", len(rcpts))
	return nil
}

func attachmentName(a *Attachment) string {
	if a == nil {
		return ""
	}
	return a.Name
}

// BuildMIME encodes msg as a multipart/mixed message. Bcc recipients are
// not written to the headers.
func BuildMIME(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := func(k, v string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", k, v)
	}
	header("From", msg.From)
	header("To", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		header("Cc", strings.Join(msg.Cc, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("MIME-Version", "1.0")
	header("Content-Type", "multipart/mixed; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	bodyType := "text/plain; charset=UTF-8"
	if msg.HTML {
		bodyType = "text/html; charset=UTF-8"
	}
	part, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {bodyType},
		"Content-Transfer-Encoding": {"quoted-printable"},
	})
	if err != nil {
		return nil, err
	}
	qp := quotedprintable.NewWriter(part)
	if _, err := qp.Write([]byte(msg.Body)); err != nil {
		return nil, err
	}
	if err := qp.Close(); err != nil {
		return nil, err
	}

	if a := msg.Attachment; a != nil {
		ctype := a.MIMEType
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {mime.FormatMediaType(ctype, map[string]string{"name": a.Name})},
			"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Name})},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, err
		}
		if err := writeBase64Lines(part, a.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBase64Lines(w interface{ Write([]byte) (int, error) }, data []byte) error {
	const lineLen = 76
	enc := base64.StdEncoding.EncodeToString(data)
	for len(enc) > 0 {
		n := min(lineLen, len(enc))
		if _, err := w.Write([]byte(enc[:n] + "\r\n")); err != nil {
			return err
		}
		enc = enc[n:]
	}
	return nil
}
