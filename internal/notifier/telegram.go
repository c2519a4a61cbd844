package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"

	"crew-radar/internal/model"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const telegramMaxJobs = 20

// TelegramConfig 机器人配置。
type TelegramConfig struct {
	Token  string `yaml:"token" json:"token"`
	ChatID int64  `yaml:"chat_id" json:"chat_id"`
}

// Enabled 判断是否配置了机器人。
func (c TelegramConfig) Enabled() bool {
	return c.Token != "" && c.ChatID != 0
}

// MessageSender 抽象 Bot 发送能力，*tgbotapi.BotAPI 满足该接口。
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier 将新增职位推送到 Telegram 会话。
type TelegramNotifier struct {
	chatID int64
	bot    MessageSender
}

// NewTelegramNotifier 使用 token 初始化机器人。
func NewTelegramNotifier(cfg TelegramConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramNotifier{chatID: cfg.ChatID, bot: bot}, nil
}

// NewTelegramNotifierWithSender 使用已有发送器创建实例。
func NewTelegramNotifierWithSender(chatID int64, bot MessageSender) *TelegramNotifier {
	return &TelegramNotifier{chatID: chatID, bot: bot}
}

// Notify 每个职位一条消息，超过上限的合并为一条汇总。
func (n *TelegramNotifier) Notify(ctx context.Context, jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	shown, rest := limitJobs(jobs, telegramMaxJobs)
	for _, job := range shown {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := n.send(jobText(job)); err != nil {
			return fmt.Errorf("telegram job %s: %w", job.Key(), err)
		}
	}
	if rest > 0 {
		if err := n.send(fmt.Sprintf("… and <b>%d</b> more new jobs", rest)); err != nil {
			return fmt.Errorf("telegram summary: %w", err)
		}
	}
	return nil
}

func (n *TelegramNotifier) send(text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err := n.bot.Send(msg)
	return err
}

func jobText(job model.Job) string {
	lines := []string{"⚓ <b>" + html.EscapeString(job.Title) + "</b>"}
	if job.Company != "" {
		lines = append(lines, "🏢 "+html.EscapeString(job.Company))
	}
	if job.Location != "" {
		lines = append(lines, "📍 "+html.EscapeString(job.Location))
	}
	lines = append(lines, fmt.Sprintf("🧭 %s · %s · %s", job.Department, job.VesselType, job.EmploymentType))
	if job.SalaryRange != "" {
		lines = append(lines, "💰 "+html.EscapeString(strings.TrimSpace(job.SalaryRange+" "+job.SalaryCurrency+" "+job.SalaryPeriod)))
	}
	if job.SourceURL != "" {
		lines = append(lines, fmt.Sprintf("🔗 <a href=\"%s\">%s</a>", html.EscapeString(job.SourceURL), html.EscapeString(string(job.Source))))
	}
	return strings.Join(lines, "\n")
}
