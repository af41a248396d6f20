package publish

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/mwjiang/sectorflow/pkg/config"
	"github.com/mwjiang/sectorflow/pkg/httputil"
	"github.com/mwjiang/sectorflow/pkg/logger"
)

const defaultTelegramBaseURL = "https://api.telegram.org"

// Telegram message size limit.
const telegramMaxMessageLen = 4096

// Telegram publishes reports to a chat via the bot API. The report
// text goes out as one Markdown message, charts follow as photos.
type Telegram struct {
	http    *httputil.Client
	logger  *logger.Logger
	baseURL string
	token   string
	chatID  string
}

func NewTelegram(cfg *config.Config, client *httputil.Client, log *logger.Logger) *Telegram {
	return &Telegram{
		http:    client,
		logger:  log.WithField("publisher", "telegram"),
		baseURL: defaultTelegramBaseURL,
		token:   cfg.Telegram.BotToken,
		chatID:  cfg.Telegram.ChatID,
	}
}

func (t *Telegram) Name() string { return "telegram" }

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Publish(ctx context.Context, title, markdown string, chartFiles []string) error {
	text := markdown
	if len(text) > telegramMaxMessageLen {
		const notice = "\n\n(报告过长, 已截断)"
		text = text[:telegramMaxMessageLen-len(notice)] + notice
	}

	if err := t.sendMessage(ctx, text); err != nil {
		return err
	}

	for _, path := range chartFiles {
		if err := t.sendPhoto(ctx, path); err != nil {
			// A missing chart should not fail an already sent report.
			t.logger.WithField("path", path).WithError(err).Warn("chart upload failed")
		}
	}
	return nil
}

// SendTest delivers a short connectivity probe message.
func (t *Telegram) SendTest(ctx context.Context) error {
	return t.sendMessage(ctx, "sectorflow connectivity test ✅")
}

func (t *Telegram) sendMessage(ctx context.Context, text string) error {
	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {text},
		"parse_mode": {"Markdown"},
	}

	resp, err := t.http.PostForm(ctx, t.methodURL("sendMessage"), form)
	if err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}

	var decoded telegramResponse
	if err := httputil.DecodeJSON(resp, &decoded); err != nil {
		return fmt.Errorf("telegram sendMessage: %w", err)
	}
	if !decoded.OK {
		return fmt.Errorf("telegram sendMessage rejected: %s", decoded.Description)
	}
	return nil
}

func (t *Telegram) sendPhoto(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open chart: %w", err)
	}
	defer file.Close()

	resp, err := t.http.PostMultipart(ctx, t.methodURL("sendPhoto"),
		map[string]string{"chat_id": t.chatID},
		"photo", filepath.Base(path), file)
	if err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}

	var decoded telegramResponse
	if err := httputil.DecodeJSON(resp, &decoded); err != nil {
		return fmt.Errorf("telegram sendPhoto: %w", err)
	}
	if !decoded.OK {
		return fmt.Errorf("telegram sendPhoto rejected: %s", decoded.Description)
	}
	return nil
}

func (t *Telegram) methodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", t.baseURL, t.token, method)
}
