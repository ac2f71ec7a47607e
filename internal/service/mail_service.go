package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"solveit_backend/internal/config"
	"strconv"
	"strings"
	"time"
)

// Mailer 发送纯文本邮件
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NoopMailer 未启用邮件时使用
type NoopMailer struct{}

func (NoopMailer) Send(ctx context.Context, to, subject, body string) error { return nil }

// SMTPMailer 465 端口走隐式 TLS，其它端口走 STARTTLS
type SMTPMailer struct {
	cfg config.MailConfig
}

func NewMailer(cfg config.MailConfig) Mailer {
	if !cfg.Enabled || cfg.Host == "" {
		return NoopMailer{}
	}
	return &SMTPMailer{cfg: cfg}
}

// mailTimeout 单封邮件从拨号到 QUIT 的上限
const mailTimeout = 15 * time.Second

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	msg := buildMessage(m.cfg.From, to, subject, body)

	ctx, cancel := context.WithTimeout(ctx, mailTimeout)
	defer cancel()

	conn, err := m.dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	// smtp.Client 不感知 ctx，用连接截止时间兜住整个会话
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if m.cfg.Port != 465 {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}

	if m.cfg.Username != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

// dial 465 端口走隐式 TLS，其它端口先明文连接
func (m *SMTPMailer) dial(ctx context.Context, addr string) (net.Conn, error) {
	netDialer := &net.Dialer{Timeout: 10 * time.Second}
	if m.cfg.Port != 465 {
		return netDialer.DialContext(ctx, "tcp", addr)
	}
	dialer := &tls.Dialer{
		NetDialer: netDialer,
		Config:    &tls.Config{ServerName: m.cfg.Host},
	}
	return dialer.DialContext(ctx, "tcp", addr)
}

func buildMessage(from, to, subject, body string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	sb.WriteString(body)
	return []byte(sb.String())
}
