package platforms

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/angelmondragon/personacast-backend/internal/providers"
	"github.com/angelmondragon/personacast-backend/pkg/config"
)

type Instagram struct {
	http      *providers.Client
	accountID string
}

func NewInstagram(cfg config.InstagramConfig, doer providers.HTTPDoer) *Instagram {
	return &Instagram{
		http: &providers.Client{
			Name:      "instagram",
			BaseURL:   cfg.BaseURL,
			HTTP:      defaultDoer(doer),
			Authorize: providers.Bearer(cfg.AccessToken),
		},
		accountID: cfg.AccountID,
	}
}

type idResponse struct {
	ID string `json:"id"`
}

// Publish creates a REELS media container and publishes it.
func (i *Instagram) Publish(ctx context.Context, post Post) (Published, error) {
	if post.VideoURL == "" {
		return Published{}, &providers.Error{Provider: "instagram", Operation: "publish", Err: errVideoRequired}
	}
	if i.accountID == "" {
		return Published{}, &providers.Error{Provider: "instagram", Operation: "publish", Err: errors.New("account id is not configured")}
	}
	base := "/" + url.PathEscape(i.accountID)

	var container idResponse
	err := i.http.DoJSON(ctx, "create_container", http.MethodPost, base+"/media", map[string]string{
		"media_type": "REELS",
		"video_url":  post.VideoURL,
		"caption":    captionFrom(post.Script, 2200),
	}, &container)
	if err != nil {
		return Published{}, err
	}
	if container.ID == "" {
		return Published{}, &providers.Error{Provider: "instagram", Operation: "create_container", Err: errors.New("response missing id")}
	}

	var media idResponse
	if err := i.http.DoJSON(ctx, "media_publish", http.MethodPost, base+"/media_publish", map[string]string{"creation_id": container.ID}, &media); err != nil {
		return Published{}, err
	}
	if media.ID == "" {
		return Published{}, &providers.Error{Provider: "instagram", Operation: "media_publish", Err: errors.New("response missing id")}
	}
	return Published{
		ExternalID:  media.ID,
		ExternalURL: "https://www.instagram.com/reel/" + media.ID,
	}, nil
}
