package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

func lineChannel(t *testing.T, handler http.HandlerFunc) *LineChannel {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("TEST_LINE_TOKEN", "tok-abc")
	t.Setenv("TEST_LINE_TO", "U123")

	c := NewLine(config.LineConfig{TokenEnv: "TEST_LINE_TOKEN", ToEnv: "TEST_LINE_TO"})
	c.endpoint = srv.URL
	c.now = func() time.Time { return time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC) }
	return c
}

func TestLineSend_Success(t *testing.T) {
	var gotAuth string
	var gotBody []byte

	c := lineChannel(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	})

	err := c.Send(context.Background(), "db-01 is OFFLINE", types.SeverityCritical)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer tok-abc" {
		t.Errorf("authorization: got %q", gotAuth)
	}

	var payload struct {
		To       string `json:"to"`
		Messages []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.To != "U123" {
		t.Errorf("to: got %q, want U123", payload.To)
	}
	if len(payload.Messages) != 1 || payload.Messages[0].Type != "text" {
		t.Fatalf("messages: got %+v", payload.Messages)
	}
	if !strings.Contains(payload.Messages[0].Text, "[CRITICAL]") ||
		!strings.Contains(payload.Messages[0].Text, "db-01 is OFFLINE") {
		t.Errorf("text: got %q", payload.Messages[0].Text)
	}
}

func TestLineSend_HTTPError(t *testing.T) {
	c := lineChannel(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid user id"}`, http.StatusBadRequest)
	})

	err := c.Send(context.Background(), "msg", types.SeverityInfo)
	if err == nil {
		t.Fatal("Send: expected error on HTTP 400")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestLineSend_Unconfigured(t *testing.T) {
	c := NewLine(config.LineConfig{})
	if err := c.Send(context.Background(), "msg", types.SeverityInfo); err == nil {
		t.Fatal("Send without token: expected error")
	}
}
