// Package mailer delivers the digest as one HTML e-mail with the EPUB attached.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/wneessen/go-mail"

	"ytdigest/internal/domain/entity"
)

const (
	// DefaultHost is the Gmail submission host.
	DefaultHost = "smtp.gmail.com"

	// DefaultPort is the implicit-TLS submission port.
	DefaultPort = 465

	// EPUBContentType is the attachment media type.
	EPUBContentType = "application/epub+zip"

	defaultTimeout = 30 * time.Second
)

// Error describes a failed delivery step. Err wraps entity.ErrAttachmentRead or
// entity.ErrDelivery.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mailer %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Sender submits composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Config holds SMTP account settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From defaults to Username.
	From string

	Timeout time.Duration
}

// Mailer composes and submits digest messages.
type Mailer struct {
	sender Sender
	from   string
	now    func() time.Time
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithClock overrides the clock used for the subject and header date.
func WithClock(now func() time.Time) Option {
	return func(m *Mailer) { m.now = now }
}

// New creates a Mailer that submits over SMTP with PLAIN auth. Port 465 uses
// implicit TLS; any other port requires STARTTLS.
func New(cfg Config, opts ...Option) (*Mailer, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.Port == DefaultPort {
		clientOpts = append(clientOpts, mail.WithSSL())
	} else {
		clientOpts = append(clientOpts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return NewWithSender(client, cfg.From, opts...), nil
}

// NewWithSender creates a Mailer around an existing Sender.
func NewWithSender(sender Sender, from string, opts ...Option) *Mailer {
	m := &Mailer{
		sender: sender,
		from:   from,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send submits one message to recipient summarizing articles, with the file at
// ebookPath attached. The file is never modified.
func (m *Mailer) Send(ctx context.Context, recipient string, articles []entity.Article, ebookPath string) error {
	attachment, err := os.ReadFile(ebookPath)
	if err != nil {
		return &Error{Op: "read attachment", Err: fmt.Errorf("%w: %w", entity.ErrAttachmentRead, err)}
	}

	now := m.now()
	msg, err := m.compose(recipient, articles, now, filepath.Base(ebookPath), attachment)
	if err != nil {
		return &Error{Op: "compose", Err: fmt.Errorf("%w: %w", entity.ErrDelivery, err)}
	}

	start := time.Now()
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return &Error{Op: "send", Err: fmt.Errorf("%w: %w", entity.ErrDelivery, err)}
	}

	slog.InfoContext(ctx, "digest e-mail sent",
		slog.String("recipient", recipient),
		slog.Int("articles", len(articles)),
		slog.Int("attachment_bytes", len(attachment)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (m *Mailer) compose(recipient string, articles []entity.Article, now time.Time, filename string, attachment []byte) (*mail.Msg, error) {
	body, err := RenderBody(articles, now)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, fmt.Errorf("recipient address: %w", err)
	}
	msg.Subject(Subject(now))
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextHTML, body)

	if err := msg.AttachReader(filename, bytes.NewReader(attachment),
		mail.WithFileContentType(mail.ContentType(EPUBContentType))); err != nil {
		return nil, fmt.Errorf("attach %s: %w", filename, err)
	}
	return msg, nil
}
