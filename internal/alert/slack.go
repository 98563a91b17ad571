package alert

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// SlackChannel posts trade-lifecycle messages to an incoming webhook using
// the Block Kit layout: a severity header, the body, then the trade fields
// as a two-column section.
type SlackChannel struct {
	webhookURL string
	client     *http.Client
}

func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *SlackChannel) Name() string {
	return "slack"
}

func (s *SlackChannel) Send(ctx context.Context, alert Payload) error {
	if s.webhookURL == "" {
		return nil
	}
	return postJSON(ctx, s.client, s.webhookURL, slackMessage(alert))
}

func slackMessage(p Payload) map[string]interface{} {
	blocks := []map[string]interface{}{
		{
			"type": "header",
			"text": map[string]interface{}{
				"type":  "plain_text",
				"text":  fmt.Sprintf("%s %s", levelEmoji(p.Level), p.Title),
				"emoji": true,
			},
		},
		{
			"type": "section",
			"text": map[string]interface{}{"type": "mrkdwn", "text": p.Message},
		},
	}

	if len(p.Fields) > 0 {
		fields := make([]map[string]interface{}, 0, len(p.Fields))
		for _, k := range sortedKeys(p.Fields) {
			fields = append(fields, map[string]interface{}{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s*\n%s", k, p.Fields[k]),
			})
		}
		blocks = append(blocks, map[string]interface{}{
			"type":   "section",
			"fields": fields,
		})
	}

	blocks = append(blocks, map[string]interface{}{
		"type": "context",
		"elements": []map[string]interface{}{
			{
				"type": "mrkdwn",
				"text": fmt.Sprintf("%s · %s", p.Level, p.Timestamp.Format("2006-01-02 15:04:05")),
			},
		},
	})

	return map[string]interface{}{"blocks": blocks}
}
