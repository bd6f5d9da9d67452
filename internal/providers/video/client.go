package video

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/personacast-backend/internal/providers"
	"github.com/angelmondragon/personacast-backend/pkg/config"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

const (
	providerName = "video"
	tokenTTL     = 30 * time.Minute
)

// SubmitRequest describes a text-to-video job.
type SubmitRequest struct {
	Prompt      string
	AspectRatio string
	Duration    int
	Mode        string
}

// TaskStatus is the provider state of a video or lip-sync job.
type TaskStatus struct {
	State    enums.VideoStatus
	VideoURL string
	Message  string
}

// Dispatcher submits and tracks asynchronous video jobs.
type Dispatcher interface {
	Submit(ctx context.Context, req SubmitRequest) (string, error)
	Status(ctx context.Context, taskID string) (TaskStatus, error)
	LipSync(ctx context.Context, videoTaskID, audioURL string) (string, error)
	LipSyncStatus(ctx context.Context, taskID string) (TaskStatus, error)
}

type envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type taskData struct {
	TaskID        string `json:"task_id"`
	TaskStatus    string `json:"task_status"`
	TaskStatusMsg string `json:"task_status_msg"`
	TaskResult    struct {
		Videos []struct {
			URL string `json:"url"`
		} `json:"videos"`
	} `json:"task_result"`
}

type text2VideoRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
	Duration    string `json:"duration"`
	Mode        string `json:"mode"`
}

type lipSyncInput struct {
	TaskID    string `json:"task_id"`
	Mode      string `json:"mode"`
	AudioType string `json:"audio_type"`
	AudioURL  string `json:"audio_url"`
}

type lipSyncRequest struct {
	Input lipSyncInput `json:"input"`
}

// Client talks to a Kling-compatible video API.
type Client struct {
	http *providers.Client
	now  func() time.Time
}

func New(cfg config.VideoProviderConfig, doer providers.HTTPDoer) *Client {
	if doer == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		doer = &http.Client{Timeout: timeout}
	}
	c := &Client{now: time.Now}
	c.http = &providers.Client{
		Name:      providerName,
		BaseURL:   cfg.BaseURL,
		HTTP:      doer,
		Authorize: c.authorizer(strings.TrimSpace(cfg.APIKey), strings.TrimSpace(cfg.SecretKey)),
	}
	return c
}

// authorizer signs a short-lived HS256 token when a secret key is configured
// and otherwise sends the access key as a static bearer token.
func (c *Client) authorizer(accessKey, secretKey string) func(*http.Request) error {
	if secretKey == "" {
		return providers.Bearer(accessKey)
	}
	return func(req *http.Request) error {
		if accessKey == "" {
			return errors.New("missing api credentials")
		}
		now := c.now()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    accessKey,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		}).SignedString([]byte(secretKey))
		if err != nil {
			return fmt.Errorf("sign api token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		return nil
	}
}

func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", &providers.Error{Provider: providerName, Operation: "submit", Err: errors.New("prompt is required")}
	}
	var resp envelope[taskData]
	err := c.http.DoJSON(ctx, "submit", http.MethodPost, "/v1/videos/text2video", text2VideoRequest{
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Duration:    strconv.Itoa(req.Duration),
		Mode:        req.Mode,
	}, &resp)
	if err != nil {
		return "", err
	}
	return taskIDFrom("submit", resp)
}

func (c *Client) Status(ctx context.Context, taskID string) (TaskStatus, error) {
	return c.status(ctx, "status", "/v1/videos/text2video/", taskID)
}

func (c *Client) LipSync(ctx context.Context, videoTaskID, audioURL string) (string, error) {
	if videoTaskID == "" || audioURL == "" {
		return "", &providers.Error{Provider: providerName, Operation: "lip_sync", Err: errors.New("video task id and audio url are required")}
	}
	var resp envelope[taskData]
	err := c.http.DoJSON(ctx, "lip_sync", http.MethodPost, "/v1/videos/lip-sync", lipSyncRequest{
		Input: lipSyncInput{TaskID: videoTaskID, Mode: "audio2video", AudioType: "url", AudioURL: audioURL},
	}, &resp)
	if err != nil {
		return "", err
	}
	return taskIDFrom("lip_sync", resp)
}

func (c *Client) LipSyncStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	return c.status(ctx, "lip_sync_status", "/v1/videos/lip-sync/", taskID)
}

func (c *Client) status(ctx context.Context, op, prefix, taskID string) (TaskStatus, error) {
	if taskID == "" {
		return TaskStatus{}, &providers.Error{Provider: providerName, Operation: op, Err: errors.New("task id is required")}
	}
	var resp envelope[taskData]
	if err := c.http.DoJSON(ctx, op, http.MethodGet, prefix+url.PathEscape(taskID), nil, &resp); err != nil {
		return TaskStatus{}, err
	}
	if resp.Code != 0 {
		return TaskStatus{}, &providers.Error{Provider: providerName, Operation: op, Err: fmt.Errorf("code %d: %s", resp.Code, resp.Message)}
	}
	status := TaskStatus{State: mapState(resp.Data.TaskStatus), Message: resp.Data.TaskStatusMsg}
	if len(resp.Data.TaskResult.Videos) > 0 {
		status.VideoURL = resp.Data.TaskResult.Videos[0].URL
	}
	if status.State == enums.VideoStatusCompleted && status.VideoURL == "" {
		status.State = enums.VideoStatusFailed
		status.Message = "completed without a video url"
	}
	return status, nil
}

func taskIDFrom(op string, resp envelope[taskData]) (string, error) {
	if resp.Code != 0 {
		return "", &providers.Error{Provider: providerName, Operation: op, Err: fmt.Errorf("code %d: %s", resp.Code, resp.Message)}
	}
	if resp.Data.TaskID == "" {
		return "", &providers.Error{Provider: providerName, Operation: op, Err: errors.New("response missing task_id")}
	}
	return resp.Data.TaskID, nil
}

func mapState(raw string) enums.VideoStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "succeed", "succeeded", "completed":
		return enums.VideoStatusCompleted
	case "failed":
		return enums.VideoStatusFailed
	case "processing":
		return enums.VideoStatusProcessing
	default:
		return enums.VideoStatusPending
	}
}
