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

var _ adapter.SocialFetcher = (*ScrapeFetcher)(nil)

// ScrapeFetcher reads counters through a scrape proxy that renders public
// profile pages and normalizes them to JSON. Slower and flakier than the API
// but not subject to its quota, so it serves as the fallback channel.
type ScrapeFetcher struct {
	proxyURL string
	client   *http.Client
}

func NewScrapeFetcher(proxyURL string, timeout time.Duration) (*ScrapeFetcher, error) {
	if proxyURL == "" {
		return nil, fmt.Errorf("scrape proxy url empty")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &ScrapeFetcher{
		proxyURL: proxyURL,
		client:   &http.Client{Timeout: timeout},
	}, nil
}

func (f *ScrapeFetcher) Name() string { return "scrape_proxy" }

func (f *ScrapeFetcher) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.proxyURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scrape proxy %s: http %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *ScrapeFetcher) FetchCounters(ctx context.Context, handle string) (model.Counters, error) {
	var out struct {
		Posts    int64 `json:"posts"`
		Likes    int64 `json:"likes"`
		Retweets int64 `json:"retweets"`
	}
	if err := f.get(ctx, "/profile/"+url.PathEscape(handle), &out); err != nil {
		return model.Counters{}, err
	}
	return model.Counters{Posts: out.Posts, Likes: out.Likes, Retweets: out.Retweets}, nil
}

func (f *ScrapeFetcher) CheckInteraction(ctx context.Context, handle, postRef string, kind model.ActionKind) (bool, error) {
	var out struct {
		Found bool `json:"found"`
	}
	path := fmt.Sprintf("/check?handle=%s&post=%s&kind=%s",
		url.QueryEscape(handle), url.QueryEscape(postRef), url.QueryEscape(string(kind)))
	if err := f.get(ctx, path, &out); err != nil {
		return false, err
	}
	return out.Found, nil
}
