package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyBackend struct {
	endpoint string
	client   *http.Client
}

func newNtfy(endpoint string, client *http.Client) *ntfyBackend {
	return &ntfyBackend{endpoint: endpoint, client: client}
}

func (n *ntfyBackend) send(ctx context.Context, event Event) error {
	return n.post(ctx, formatNtfy(event))
}

func (n *ntfyBackend) close() error {
	n.client.CloseIdleConnections()
	return nil
}

func formatNtfy(event Event) payload {
	switch event.Kind {
	case KindCompleted:
		elapsed := event.Elapsed.Round(time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		return payload{
			title:   "Timelapse - Ready",
			message: fmt.Sprintf("🎞️ Timelapse %s ready: %d frames in %s", event.JobID, event.Frames, elapsed),
			tags:    []string{"timelapse", "encode", "completed"},
		}
	case KindFailed:
		message := event.Message
		if message == "" {
			message = "unknown error"
		}
		return payload{
			title:    "Timelapse - Failed",
			message:  fmt.Sprintf("❌ Timelapse %s failed: %s", event.JobID, message),
			tags:     []string{"timelapse", "error", "alert"},
			priority: "high",
		}
	default:
		return payload{
			title:    "Timelapse - Test",
			message:  "🧪 Notification system test",
			tags:     []string{"timelapse", "test"},
			priority: "low",
		}
	}
}

func (n *ntfyBackend) post(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
