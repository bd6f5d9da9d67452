package platforms

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/angelmondragon/personacast-backend/internal/providers"
	"github.com/angelmondragon/personacast-backend/pkg/config"
)

const tweetMaxRunes = 280

type Twitter struct {
	http *providers.Client
}

func NewTwitter(cfg config.TwitterConfig, doer providers.HTTPDoer) *Twitter {
	return &Twitter{http: &providers.Client{
		Name:      "twitter",
		BaseURL:   cfg.BaseURL,
		HTTP:      defaultDoer(doer),
		Authorize: providers.Bearer(cfg.AccessToken),
	}}
}

func (t *Twitter) Publish(ctx context.Context, post Post) (Published, error) {
	text := strings.TrimSpace(post.Script)
	if text == "" {
		return Published{}, &providers.Error{Provider: "twitter", Operation: "publish", Err: errors.New("script is required")}
	}
	if r := []rune(text); len(r) > tweetMaxRunes {
		text = string(r[:tweetMaxRunes])
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := t.http.DoJSON(ctx, "publish", http.MethodPost, "/2/tweets", map[string]string{"text": text}, &resp); err != nil {
		return Published{}, err
	}
	if resp.Data.ID == "" {
		return Published{}, &providers.Error{Provider: "twitter", Operation: "publish", Err: errors.New("response missing id")}
	}
	return Published{
		ExternalID:  resp.Data.ID,
		ExternalURL: "https://x.com/i/web/status/" + resp.Data.ID,
	}, nil
}
