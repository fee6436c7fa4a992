package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSlackSinkSendSuccess(t *testing.T) {
	var gotBody map[string]string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sink := NewSlackSink(srv.Client(), "xoxb-test", "#autopiloot-ops")
	sink.postURL = srv.URL

	if err := sink.Send(context.Background(), "Daily run complete", "12 videos processed"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotAuth != "Bearer xoxb-test" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotBody["channel"] != "#autopiloot-ops" {
		t.Errorf("unexpected channel: %q", gotBody["channel"])
	}
	if !strings.Contains(gotBody["text"], "Daily run complete") {
		t.Errorf("unexpected text: %q", gotBody["text"])
	}
}

func TestSlackSinkSendRejectedBySlack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	}))
	defer srv.Close()

	sink := NewSlackSink(srv.Client(), "xoxb-test", "#missing")
	sink.postURL = srv.URL

	err := sink.Send(context.Background(), "title", "")
	if err == nil || !strings.Contains(err.Error(), "channel_not_found") {
		t.Fatalf("expected channel_not_found error, got %v", err)
	}
}

func TestSlackSinkRequiresToken(t *testing.T) {
	sink := NewSlackSink(nil, "", "#ops")
	if err := sink.Send(context.Background(), "t", "b"); err == nil {
		t.Fatal("expected error for missing token")
	}
}
