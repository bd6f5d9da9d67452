package gcs

import (
	"context"
	"strings"
	"testing"

	"github.com/angelmondragon/personacast-backend/pkg/config"
)

func TestPublicURL(t *testing.T) {
	cases := []struct {
		base string
		key  string
		want string
	}{
		{"", "audio/abc.mp3", "https://storage.googleapis.com/media/audio/abc.mp3"},
		{"https://cdn.example.com", "audio/a b.mp3", "https://cdn.example.com/media/audio/a%20b.mp3"},
	}
	for _, tc := range cases {
		if got := publicURL(tc.base, "media", tc.key); got != tc.want {
			t.Fatalf("publicURL(%q, %q) = %q, want %q", tc.base, tc.key, got, tc.want)
		}
	}
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCSConfig{}, config.GCPConfig{}, nil)
	if err == nil || !strings.Contains(err.Error(), "bucket name") {
		t.Fatalf("expected bucket name error, got %v", err)
	}
}

func TestClientOptions(t *testing.T) {
	if got := len(clientOptions(config.GCPConfig{CredentialsJSON: "{}", ApplicationCredentials: "/tmp/x"})); got != 1 {
		t.Fatalf("expected 1 option, got %d", got)
	}
	if got := len(clientOptions(config.GCPConfig{})); got != 0 {
		t.Fatalf("expected no options, got %d", got)
	}
}

func TestUninitializedClient(t *testing.T) {
	var c *Client
	if _, err := c.Upload(context.Background(), "k", "audio/mpeg", strings.NewReader("x")); err == nil {
		t.Fatal("expected error uploading with nil client")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close nil client: %v", err)
	}
}
