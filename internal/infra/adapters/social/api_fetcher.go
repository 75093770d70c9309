package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"social-boost-platform/internal/domain/model"
	"social-boost-platform/internal/domain/ports/adapter"
)

var _ adapter.SocialFetcher = (*APIFetcher)(nil)

// APIFetcher reads public counters through the platform's REST API. The API
// gives no authoritative "did user X do Y" lookup; it only exposes profile
// counters and a recent-interactions listing, which is what the verification
// engine builds its signal from.
type APIFetcher struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewAPIFetcher(baseURL, apiKey string, timeout time.Duration) (*APIFetcher, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("api base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIFetcher{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (f *APIFetcher) Name() string { return "platform_api" }

func (f *APIFetcher) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return err
	}
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("platform api %s: http %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *APIFetcher) FetchCounters(ctx context.Context, handle string) (model.Counters, error) {
	var out struct {
		Data struct {
			PostCount    int64 `json:"post_count"`
			LikeCount    int64 `json:"like_count"`
			RetweetCount int64 `json:"retweet_count"`
		} `json:"data"`
	}
	path := "/v2/users/" + url.PathEscape(handle) + "/public_metrics"
	if err := f.get(ctx, path, &out); err != nil {
		return model.Counters{}, err
	}
	return model.Counters{
		Posts:    out.Data.PostCount,
		Likes:    out.Data.LikeCount,
		Retweets: out.Data.RetweetCount,
	}, nil
}

func (f *APIFetcher) CheckInteraction(ctx context.Context, handle, postRef string, kind model.ActionKind) (bool, error) {
	var out struct {
		Data struct {
			Found bool `json:"found"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/v2/users/%s/interactions?post=%s&kind=%s",
		url.PathEscape(handle), url.QueryEscape(postRef), url.QueryEscape(string(kind)))
	if err := f.get(ctx, path, &out); err != nil {
		return false, err
	}
	return out.Data.Found, nil
}
