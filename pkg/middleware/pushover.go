package middleware

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/meridianfx/meridian/pkg/bus"
	"github.com/meridianfx/meridian/pkg/common"
)

const pushoverApiUrl = "https://api.pushover.net/1/messages.json"

// Pushover sends a push notification whenever an account transitions into
// margin call or liquidation. Repeated snapshots in the same state do not
// re-notify.
type Pushover struct {
	user   string
	token  string
	device string
	apiUrl string

	lastState map[string]common.AccountState
}

func NewPushover(user, token, device string) *Pushover {
	return &Pushover{
		user:      user,
		token:     token,
		device:    device,
		apiUrl:    pushoverApiUrl,
		lastState: make(map[string]common.AccountState),
	}
}

func (p *Pushover) WithMetrics(handler bus.MetricsEventHandler) bus.MetricsEventHandler {
	return func(ctx context.Context, metrics common.AccountMetrics) {
		last, seen := p.lastState[metrics.AccountID]
		p.lastState[metrics.AccountID] = metrics.State

		if metrics.State != common.AccountStateActive && (!seen || last != metrics.State) {
			title := fmt.Sprintf("Account %s", metrics.State)
			msg := fmt.Sprintf("account = %s\nequity = %s\nmargin level = %s%%",
				metrics.AccountID,
				metrics.Equity.Rescale(2).String(),
				metrics.MarginLevel.Rescale(2).String())
			go func() {
				if err := sendPushoverNotification(ctx, p.apiUrl, p.token, p.user, p.device, title, msg); err != nil {
					slog.Error("sendPushoverNotification", "error", err)
				}
			}()
		}
		handler(ctx, metrics)
	}
}

func sendPushoverNotification(ctx context.Context, apiUrl, token, user, device, title, message string) error {
	data := url.Values{}
	data.Set("token", token)
	data.Set("user", user)
	data.Set("device", device)
	data.Set("title", title)
	data.Set("message", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiUrl, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("create request failed: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover post failed: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("pushover error: %s", body)
	}

	return nil
}
