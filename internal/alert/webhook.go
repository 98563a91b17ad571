package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
)

// postJSON sends a JSON body and treats any non-2xx response as an error.
// The URL is never included in the error: Telegram embeds the bot token in
// its endpoint path.
func postJSON(ctx context.Context, client *http.Client, url string, body interface{}) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func levelEmoji(l Level) string {
	switch l {
	case Warning:
		return "⚠️"
	case Error:
		return "❌"
	case Critical:
		return "🛑"
	default:
		return "✅"
	}
}

// sortedKeys keeps field ordering stable so entry/exit messages read the
// same every time.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
