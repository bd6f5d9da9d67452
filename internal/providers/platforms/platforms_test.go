package platforms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/angelmondragon/personacast-backend/internal/providers"
	"github.com/angelmondragon/personacast-backend/pkg/config"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestTwitterPublishTruncatesAndBuildsURL(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2/tweets" || r.Header.Get("Authorization") != "Bearer tw" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if n := utf8.RuneCountInString(body["text"]); n != tweetMaxRunes {
			t.Errorf("expected %d runes, got %d", tweetMaxRunes, n)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"1789"}}`))
	})
	tw := NewTwitter(config.TwitterConfig{BaseURL: srv.URL, AccessToken: "tw"}, srv.Client())

	got, err := tw.Publish(context.Background(), Post{Script: strings.Repeat("a", 300)})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.ExternalID != "1789" || got.ExternalURL != "https://x.com/i/web/status/1789" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestTwitterRequiresScript(t *testing.T) {
	tw := NewTwitter(config.TwitterConfig{BaseURL: "http://unused", AccessToken: "tw"}, http.DefaultClient)
	if _, err := tw.Publish(context.Background(), Post{}); err == nil {
		t.Fatal("expected error for empty script")
	}
}

func TestTikTokPublishPullsFromURL(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/post/publish/video/init/" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body tiktokInitRequest
		json.NewDecoder(r.Body).Decode(&body)
		if body.SourceInfo.Source != "PULL_FROM_URL" || body.SourceInfo.VideoURL != "https://cdn/v.mp4" {
			t.Errorf("unexpected source %+v", body.SourceInfo)
		}
		w.Write([]byte(`{"data":{"publish_id":"pub-1"},"error":{"code":"ok"}}`))
	})
	tt := NewTikTok(config.TikTokConfig{BaseURL: srv.URL, AccessToken: "tt"}, srv.Client())

	got, err := tt.Publish(context.Background(), Post{Script: "hi", VideoURL: "https://cdn/v.mp4"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.ExternalID != "pub-1" {
		t.Fatalf("unexpected id %q", got.ExternalID)
	}
}

func TestTikTokRequiresVideo(t *testing.T) {
	tt := NewTikTok(config.TikTokConfig{BaseURL: "http://unused", AccessToken: "tt"}, http.DefaultClient)
	_, err := tt.Publish(context.Background(), Post{Script: "hi"})
	if !errors.Is(err, errVideoRequired) {
		t.Fatalf("expected video required, got %v", err)
	}
}

func TestTikTokErrorPayload(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"code":"spam_risk_too_many_posts","message":"slow down"}}`))
	})
	tt := NewTikTok(config.TikTokConfig{BaseURL: srv.URL, AccessToken: "tt"}, srv.Client())
	_, err := tt.Publish(context.Background(), Post{VideoURL: "https://cdn/v.mp4"})
	if err == nil || !strings.Contains(err.Error(), "spam_risk_too_many_posts") {
		t.Fatalf("expected tiktok error code, got %v", err)
	}
}

func TestInstagramContainerThenPublish(t *testing.T) {
	var calls []string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		switch r.URL.Path {
		case "/acct/media":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["media_type"] != "REELS" || body["video_url"] != "https://cdn/v.mp4" {
				t.Errorf("unexpected container body %v", body)
			}
			w.Write([]byte(`{"id":"container-1"}`))
		case "/acct/media_publish":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["creation_id"] != "container-1" {
				t.Errorf("unexpected creation id %v", body)
			}
			w.Write([]byte(`{"id":"media-9"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ig := NewInstagram(config.InstagramConfig{BaseURL: srv.URL, AccessToken: "ig", AccountID: "acct"}, srv.Client())

	got, err := ig.Publish(context.Background(), Post{Script: "caption", VideoURL: "https://cdn/v.mp4"})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if got.ExternalID != "media-9" {
		t.Fatalf("unexpected id %q", got.ExternalID)
	}
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %v", calls)
	}
}

func TestInstagramContainerFailureStops(t *testing.T) {
	calls := 0
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid video"}}`))
	})
	ig := NewInstagram(config.InstagramConfig{BaseURL: srv.URL, AccessToken: "ig", AccountID: "acct"}, srv.Client())
	_, err := ig.Publish(context.Background(), Post{VideoURL: "https://cdn/v.mp4"})
	var perr *providers.Error
	if !errors.As(err, &perr) || perr.Operation != "create_container" {
		t.Fatalf("expected container error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("publish should not run after a failed container, got %d calls", calls)
	}
}
