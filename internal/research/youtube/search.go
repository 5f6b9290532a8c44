package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nichefinder/nichefinder/internal/research"
)

const defaultEndpoint = "https://www.googleapis.com/youtube/v3/search"

// Search queries the YouTube Data API v3 search endpoint.
type Search struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// New builds a YouTube search client with the given timeout.
func New(apiKey string, timeout time.Duration) Search {
	return Search{APIKey: apiKey, Client: &http.Client{Timeout: timeout}}
}

func (s Search) Search(ctx context.Context, query string, k int) ([]research.VideoResult, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("order", "relevance")
	params.Set("maxResults", strconv.Itoa(k))
	params.Set("key", s.APIKey)

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create youtube search request: %w", err)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch youtube search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search status %d", resp.StatusCode)
	}

	var raw struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string    `json:"title"`
				Description  string    `json:"description"`
				ChannelTitle string    `json:"channelTitle"`
				PublishedAt  time.Time `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode youtube search: %w", err)
	}

	var out []research.VideoResult
	for _, item := range raw.Items {
		if item.ID.VideoID == "" {
			continue
		}
		if len(out) >= k {
			break
		}
		out = append(out, research.VideoResult{
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
			Description:  item.Snippet.Description,
			VideoID:      item.ID.VideoID,
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return out, nil
}
