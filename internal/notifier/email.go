package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"crew-radar/internal/model"
)

// EmailConfig 邮件配置。
type EmailConfig struct {
	Host     string   `yaml:"host" json:"host"`
	Port     int      `yaml:"port" json:"port"`
	Username string   `yaml:"username" json:"username"`
	Password string   `yaml:"password" json:"password"`
	From     string   `yaml:"from" json:"from"`
	To       []string `yaml:"to" json:"to"`
	Subject  string   `yaml:"subject" json:"subject"`
}

// Enabled 判断是否配置了可用的 SMTP。
func (c EmailConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

// EmailMessage 表示一封邮件。
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender 抽象发送接口，便于测试替换。
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient 封装 SMTP 发送。
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data := buildEmailData(msg)
	return smtp.SendMail(c.addr, c.auth, msg.From, msg.To, []byte(data))
}

// EmailNotifier 负责将新增职位发送邮件。
type EmailNotifier struct {
	cfg    EmailConfig
	sender EmailSender
}

// NewEmailNotifier 创建 EmailNotifier。
func NewEmailNotifier(cfg EmailConfig, sender EmailSender) *EmailNotifier {
	if sender == nil {
		sender = NewSMTPClient(cfg)
	}
	if cfg.Subject == "" {
		cfg.Subject = "New yacht crew jobs"
	}
	return &EmailNotifier{cfg: cfg, sender: sender}
}

// Notify 将新增职位发送邮件，若列表或收件人为空则跳过。
func (n EmailNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 || len(n.cfg.To) == 0 {
		return nil
	}

	msg := EmailMessage{
		From:    n.cfg.From,
		To:      n.cfg.To,
		Subject: fmt.Sprintf("%s (%d)", n.cfg.Subject, len(jobs)),
		Body:    buildBody(jobs),
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send email to %s: %w", strings.Join(n.cfg.To, ","), err)
	}
	return nil
}

func buildBody(jobs []model.Job) string {
	var b strings.Builder
	b.WriteString("New yacht crew jobs:\n\n")
	for _, j := range jobs {
		b.WriteString(fmt.Sprintf("- %s\n  %s (%s)\n", summary(j), j.SourceURL, j.Source))
		if j.SalaryRange != "" {
			b.WriteString(fmt.Sprintf("  salary: %s %s %s\n", j.SalaryRange, j.SalaryCurrency, j.SalaryPeriod))
		}
	}
	return b.String()
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ",")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
