package pubsub

import (
	"context"
	"encoding/json"
	"testing"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project string
		name    string
		want    string
	}{
		{"proj", "content-events", "projects/proj/topics/content-events"},
		{"proj", "projects/other/topics/x", "projects/other/topics/x"},
		{"", "content-events", ""},
		{"proj", "  ", ""},
	}
	for _, tc := range cases {
		if got := topicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("topicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestBuildMessageSetsEventTypeAttribute(t *testing.T) {
	msg, err := buildMessage("content.published", map[string]string{"platform": "tiktok"}, map[string]string{"content_id": "abc"})
	if err != nil {
		t.Fatalf("build message: %v", err)
	}
	if msg.Attributes[AttrEventType] != "content.published" {
		t.Fatalf("missing event type attribute: %v", msg.Attributes)
	}
	if msg.Attributes["platform"] != "tiktok" {
		t.Fatalf("missing platform attribute: %v", msg.Attributes)
	}
	var body map[string]string
	if err := json.Unmarshal(msg.Data, &body); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if body["content_id"] != "abc" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestBuildMessageRequiresEventType(t *testing.T) {
	if _, err := buildMessage(" ", nil, nil); err == nil {
		t.Fatal("expected error for empty event type")
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if _, err := c.PublishEvent(context.Background(), "x", nil, nil); err == nil {
		t.Fatal("expected error from nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}
