package notify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/flemzord/taskrun/internal/task"
)

// SMTPMailer delivers mail through an SMTP relay. It implements
// task.Mailer.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is used when a message has no sender.
	From string

	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// Compile-time interface check.
var _ task.Mailer = (*SMTPMailer)(nil)

// Send implements task.Mailer. net/smtp has no context support; ctx is
// only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, msg task.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	from := msg.From
	if from == "" {
		from = m.From
	}
	if from == "" {
		return errors.New("notify: smtp: no sender address")
	}
	if len(msg.To) == 0 {
		return errors.New("notify: smtp: no recipients")
	}

	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	port := m.Port
	if port == 0 {
		port = 25
	}
	addr := net.JoinHostPort(m.Host, strconv.Itoa(port))

	send := m.send
	if send == nil {
		send = smtp.SendMail
	}
	if err := send(addr, auth, from, msg.To, buildMessage(from, msg, time.Now())); err != nil {
		return fmt.Errorf("notify: smtp %s: %w", addr, err)
	}
	return nil
}

func buildMessage(from string, msg task.Message, now time.Time) []byte {
	var b strings.Builder
	header := func(k, v string) {
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(stripNewlines(v))
		b.WriteString("\r\n")
	}
	header("From", from)
	header("To", strings.Join(msg.To, ", "))
	header("Subject", msg.Subject)
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Text, "\n", "\r\n"))
	return []byte(b.String())
}

func stripNewlines(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}
