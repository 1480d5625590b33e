package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

const defaultSMTPTimeout = 30 * time.Second

// EmailChannel delivers reports over SMTP with STARTTLS.
type EmailChannel struct {
	cfg config.EmailConfig
	now func() time.Time // injectable for deterministic tests
}

// NewEmail creates the SMTP channel from its config section.
func NewEmail(cfg config.EmailConfig) *EmailChannel {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSMTPTimeout
	}
	return &EmailChannel{cfg: cfg, now: time.Now}
}

// Name implements dispatch.Channel.
func (c *EmailChannel) Name() string { return "email" }

// Send builds an RFC 5322 message around body and delivers it to every
// configured To/Cc/Bcc recipient in one SMTP conversation. The dial and
// the whole conversation are bounded by the configured timeout.
func (c *EmailChannel) Send(ctx context.Context, body string, severity types.Severity) error {
	recipients := c.recipients()
	if len(recipients) == 0 {
		return fmt.Errorf("email: no recipients configured")
	}

	msg := c.buildMessage(body, severity)
	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprintf("%d", c.cfg.Port))

	nc, err := net.DialTimeout("tcp", addr, c.cfg.Timeout)
	if err != nil {
		return fmt.Errorf("email: dial %s: %w", addr, err)
	}
	// One deadline for the whole SMTP conversation.
	if err := nc.SetDeadline(c.now().Add(c.cfg.Timeout)); err != nil {
		nc.Close()
		return fmt.Errorf("email: set deadline: %w", err)
	}

	conn, err := smtp.NewClient(nc, c.cfg.Host)
	if err != nil {
		nc.Close()
		return fmt.Errorf("email: smtp handshake: %w", err)
	}
	defer conn.Close()

	if ok, _ := conn.Extension("STARTTLS"); ok {
		if err := conn.StartTLS(&tls.Config{ServerName: c.cfg.Host}); err != nil {
			return fmt.Errorf("email: starttls: %w", err)
		}
	}
	if user := c.cfg.Username(); user != "" {
		auth := smtp.PlainAuth("", user, c.cfg.Password(), c.cfg.Host)
		if err := conn.Auth(auth); err != nil {
			return fmt.Errorf("email: auth: %w", err)
		}
	}

	if err := conn.Mail(c.cfg.From); err != nil {
		return fmt.Errorf("email: mail from: %w", err)
	}
	for _, rcpt := range recipients {
		if err := conn.Rcpt(rcpt); err != nil {
			return fmt.Errorf("email: rcpt %s: %w", rcpt, err)
		}
	}

	w, err := conn.Data()
	if err != nil {
		return fmt.Errorf("email: data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		w.Close()
		return fmt.Errorf("email: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("email: close body: %w", err)
	}
	return conn.Quit()
}

// recipients flattens To, Cc, and Bcc into the SMTP envelope list.
func (c *EmailChannel) recipients() []string {
	out := make([]string, 0, len(c.cfg.To)+len(c.cfg.Cc)+len(c.cfg.Bcc))
	out = append(out, c.cfg.To...)
	out = append(out, c.cfg.Cc...)
	out = append(out, c.cfg.Bcc...)
	return out
}

// buildMessage assembles the full RFC 5322 message: headers, priority
// markers for critical severity, and the plain-text body. Bcc recipients
// appear only in the envelope, never in the headers.
func (c *EmailChannel) buildMessage(body string, severity types.Severity) []byte {
	now := c.now()
	var sb strings.Builder

	from := c.cfg.From
	if c.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", c.cfg.FromName, c.cfg.From)
	}
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	if len(c.cfg.To) > 0 {
		fmt.Fprintf(&sb, "To: %s\r\n", strings.Join(c.cfg.To, ", "))
	}
	if len(c.cfg.Cc) > 0 {
		fmt.Fprintf(&sb, "Cc: %s\r\n", strings.Join(c.cfg.Cc, ", "))
	}
	fmt.Fprintf(&sb, "Subject: %s VM Infrastructure Report - %s\r\n",
		severity.Label(), now.Format("2006-01-02"))
	fmt.Fprintf(&sb, "Date: %s\r\n", now.Format(time.RFC1123Z))
	fmt.Fprintf(&sb, "Message-ID: <%d@vm-monitoring>\r\n", now.UnixNano())
	fmt.Fprintf(&sb, "Reply-To: %s\r\n", c.cfg.From)

	if severity == types.SeverityCritical {
		sb.WriteString("X-Priority: 1\r\nImportance: High\r\n")
	} else {
		sb.WriteString("X-Priority: 3\r\nImportance: Normal\r\n")
	}

	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}
