package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/meridianfx/meridian/pkg/common"
)

func TestMiddlewarePushover_NotifiesOnStateChange(t *testing.T) {
	titles := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		if r.PostFormValue("token") != "tok" || r.PostFormValue("user") != "usr" {
			t.Error("Credentials not forwarded")
		}
		titles <- r.PostFormValue("title")
	}))
	defer srv.Close()

	p := NewPushover("usr", "tok", "dev")
	p.apiUrl = srv.URL

	var handlerCalled int
	handler := func(ctx context.Context, metrics common.AccountMetrics) {
		handlerCalled++
	}
	wrapped := p.WithMetrics(handler)
	ctx := context.Background()

	wrapped(ctx, common.AccountMetrics{AccountID: "acc-1", State: common.AccountStateActive})
	wrapped(ctx, common.AccountMetrics{AccountID: "acc-1", State: common.AccountStateMarginCall})

	select {
	case title := <-titles:
		if title != "Account margin_call" {
			t.Errorf("Expected margin_call title, got %q", title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Notification not delivered")
	}

	// Same state again must not re-notify.
	wrapped(ctx, common.AccountMetrics{AccountID: "acc-1", State: common.AccountStateMarginCall})

	select {
	case title := <-titles:
		t.Errorf("Unexpected notification %q", title)
	case <-time.After(100 * time.Millisecond):
	}

	if handlerCalled != 3 {
		t.Errorf("Expected 3 handler calls, got %d", handlerCalled)
	}
}

func TestMiddlewarePushover_SilentWhileActive(t *testing.T) {
	requests := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- struct{}{}
	}))
	defer srv.Close()

	p := NewPushover("usr", "tok", "dev")
	p.apiUrl = srv.URL

	wrapped := p.WithMetrics(NoopMetricsHdl)
	ctx := context.Background()

	wrapped(ctx, common.AccountMetrics{AccountID: "acc-1", State: common.AccountStateActive})
	wrapped(ctx, common.AccountMetrics{AccountID: "acc-1", State: common.AccountStateActive})

	select {
	case <-requests:
		t.Error("Unexpected notification for active account")
	case <-time.After(100 * time.Millisecond):
	}
}
