package platforms

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/personacast-backend/internal/providers"
	"github.com/angelmondragon/personacast-backend/pkg/config"
)

type TikTok struct {
	http *providers.Client
}

func NewTikTok(cfg config.TikTokConfig, doer providers.HTTPDoer) *TikTok {
	return &TikTok{http: &providers.Client{
		Name:      "tiktok",
		BaseURL:   cfg.BaseURL,
		HTTP:      defaultDoer(doer),
		Authorize: providers.Bearer(cfg.AccessToken),
	}}
}

type tiktokInitRequest struct {
	PostInfo struct {
		Title         string `json:"title"`
		PrivacyLevel  string `json:"privacy_level"`
		DisableDuet   bool   `json:"disable_duet"`
		DisableStitch bool   `json:"disable_stitch"`
	} `json:"post_info"`
	SourceInfo struct {
		Source   string `json:"source"`
		VideoURL string `json:"video_url"`
	} `json:"source_info"`
}

// Publish starts a pull-from-url upload. TikTok processes the post
// asynchronously, so the publish id is the only handle returned.
func (t *TikTok) Publish(ctx context.Context, post Post) (Published, error) {
	if post.VideoURL == "" {
		return Published{}, &providers.Error{Provider: "tiktok", Operation: "publish", Err: errVideoRequired}
	}
	var body tiktokInitRequest
	body.PostInfo.Title = captionFrom(post.Script, 150)
	body.PostInfo.PrivacyLevel = "PUBLIC_TO_EVERYONE"
	body.SourceInfo.Source = "PULL_FROM_URL"
	body.SourceInfo.VideoURL = post.VideoURL

	var resp struct {
		Data struct {
			PublishID string `json:"publish_id"`
		} `json:"data"`
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := t.http.DoJSON(ctx, "publish", http.MethodPost, "/v2/post/publish/video/init/", body, &resp); err != nil {
		return Published{}, err
	}
	if resp.Error.Code != "" && resp.Error.Code != "ok" {
		return Published{}, &providers.Error{Provider: "tiktok", Operation: "publish", Err: fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)}
	}
	if resp.Data.PublishID == "" {
		return Published{}, &providers.Error{Provider: "tiktok", Operation: "publish", Err: errors.New("response missing publish_id")}
	}
	return Published{ExternalID: resp.Data.PublishID}, nil
}
