package mailer

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
	"gopkg.in/gomail.v2"
)

var md = goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps()))

// RenderMarkdown 不开启 WithUnsafe，原始 HTML 会被过滤
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type SMTP struct {
	Host      string
	Port      int
	User      string
	Password  string
	SSL       bool // 465 隐式 TLS；否则走 STARTTLS
	FromEmail string
	FromName  string
}

type Message struct {
	To       string
	ToName   string
	Subject  string
	Markdown string
}

type Sender interface {
	Send(ctx context.Context, s SMTP, m Message) error
}

// GomailSender 每次发送按当前配置建立连接，配置可在运行时修改
type GomailSender struct{}

func (GomailSender) Send(ctx context.Context, s SMTP, m Message) error {
	msg, err := Build(s, m)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	d.SSL = s.SSL
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// Build 组装 html + 纯文本的多部分邮件
func Build(s SMTP, m Message) (*gomail.Message, error) {
	body, err := RenderMarkdown(m.Markdown)
	if err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.FromEmail, s.FromName)
	if m.ToName != "" {
		msg.SetAddressHeader("To", m.To, m.ToName)
	} else {
		msg.SetHeader("To", m.To)
	}
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/plain", m.Markdown)
	msg.AddAlternative("text/html", body)
	return msg, nil
}
