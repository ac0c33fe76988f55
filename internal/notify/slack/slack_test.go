package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linnemanlabs/scribe/internal/draft"
)

func TestNotifyEscalation_PostsToWebhook(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content-type = %q, want application/json", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	e := &draft.Escalation{
		ID:         "01JN123",
		DraftID:    7,
		NoticeID:   "CA-001",
		Reason:     "自信度が閾値を下回っています",
		Confidence: 0.42,
		Channel:    "backoffice",
		Status:     "pending",
	}
	v := &draft.Version{
		ID:         7,
		NoticeID:   "CA-001",
		VersionNo:  3,
		EditorID:   "op-1",
		EditedText: "お客様各位",
		RiskFlag:   "Y",
	}

	if err := n.NotifyEscalation(context.Background(), e, v); err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	blocks, ok := got["blocks"].([]any)
	if !ok {
		t.Fatal("expected blocks array in payload")
	}

	// header, divider, fields, divider, draft, divider, context = 7 blocks
	if len(blocks) != 7 {
		t.Errorf("blocks count = %d, want 7", len(blocks))
	}

	header := blocks[0].(map[string]any)
	headerText := header["text"].(map[string]any)["text"].(string)
	if !strings.Contains(headerText, "CA-001") {
		t.Errorf("header text = %q, want to contain CA-001", headerText)
	}

	ctxSection := blocks[6].(map[string]any)
	elements := ctxSection["elements"].([]any)
	ctxText := elements[0].(map[string]any)["text"].(string)
	if !strings.Contains(ctxText, e.Reason) {
		t.Errorf("context text = %q, want to contain rationale", ctxText)
	}
}

func TestNotifyEscalation_NoOpWithoutURL(t *testing.T) {
	t.Parallel()

	n := New("")
	if err := n.NotifyEscalation(context.Background(), &draft.Escalation{}, &draft.Version{}); err != nil {
		t.Fatalf("NotifyEscalation with empty URL should be no-op, got: %v", err)
	}
}

func TestNotifyEscalation_WebhookError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "channel_not_found", http.StatusNotFound)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.NotifyEscalation(context.Background(), &draft.Escalation{ID: "01JN456"}, &draft.Version{})
	if err == nil {
		t.Fatal("expected error for non-2xx webhook response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v, want to mention status 404", err)
	}
}

func TestNotifyEscalation_TruncatesLongDraft(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL)
	err := n.NotifyEscalation(context.Background(),
		&draft.Escalation{ID: "01JN789"},
		&draft.Version{EditedText: strings.Repeat("x", 4000)})
	if err != nil {
		t.Fatalf("NotifyEscalation: %v", err)
	}

	blocks := got["blocks"].([]any)
	section := blocks[4].(map[string]any)
	text := section["text"].(map[string]any)["text"].(string)
	if len(text) > maxTextLen+len("*Draft*\n\n") {
		t.Errorf("draft text length = %d, expected <= %d", len(text), maxTextLen+len("*Draft*\n\n"))
	}
	if !strings.HasSuffix(text, "...") {
		t.Error("expected truncated draft to end with ...")
	}
}
