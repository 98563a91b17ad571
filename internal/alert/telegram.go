package alert

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"
)

// TelegramChannel sends messages through the bot API. Messages render as
// HTML with the trade fields in a <pre> block so aligned numbers stay
// readable on a phone.
type TelegramChannel struct {
	botToken string
	chatID   string
	client   *http.Client
}

func NewTelegramChannel(botToken, chatID string) *TelegramChannel {
	return &TelegramChannel{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

func (t *TelegramChannel) Name() string {
	return "telegram"
}

func (t *TelegramChannel) Send(ctx context.Context, alert Payload) error {
	if t.botToken == "" || t.chatID == "" {
		return nil
	}
	endpoint := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	return postJSON(ctx, t.client, endpoint, map[string]interface{}{
		"chat_id":                  t.chatID,
		"text":                     telegramText(alert),
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
}

func telegramText(p Payload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n%s", levelEmoji(p.Level), html.EscapeString(p.Title), html.EscapeString(p.Message))

	if len(p.Fields) > 0 {
		keys := sortedKeys(p.Fields)
		width := 0
		for _, k := range keys {
			if len(k) > width {
				width = len(k)
			}
		}
		b.WriteString("\n<pre>")
		for _, k := range keys {
			fmt.Fprintf(&b, "%-*s  %s\n", width, k, html.EscapeString(p.Fields[k]))
		}
		b.WriteString("</pre>")
	}
	return b.String()
}
