// Package platforms publishes finished content to social networks.
package platforms

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/providers"
)

// Post is the content handed to a platform handler.
type Post struct {
	ContentID string
	Script    string
	VideoURL  string
}

// Published identifies the created post on the platform.
type Published struct {
	ExternalID  string
	ExternalURL string
}

// Handler publishes one post to one platform.
type Handler interface {
	Publish(ctx context.Context, post Post) (Published, error)
}

var errVideoRequired = errors.New("video url is required")

func defaultDoer(doer providers.HTTPDoer) providers.HTTPDoer {
	if doer != nil {
		return doer
	}
	return &http.Client{Timeout: 60 * time.Second}
}
