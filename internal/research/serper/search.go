package serper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nichefinder/nichefinder/internal/research"
)

const defaultEndpoint = "https://google.serper.dev/search"

// Search queries serper.dev, optionally scoped to one site.
type Search struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// New builds a serper search client with the given timeout.
func New(apiKey string, timeout time.Duration) Search {
	return Search{APIKey: apiKey, Client: &http.Client{Timeout: timeout}}
}

func (s Search) Search(ctx context.Context, query string, site string, k int) ([]research.WebResult, error) {
	// https://serper.dev/ docs
	q := query
	if site != "" {
		q = fmt.Sprintf("%s site:%s", query, site)
	}
	payload := map[string]any{"q": q, "num": k}
	body, _ := json.Marshal(payload)

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serper status %d", resp.StatusCode)
	}

	var raw struct {
		Organic []struct {
			Title    string `json:"title"`
			Link     string `json:"link"`
			Snippet  string `json:"snippet"`
			Position int    `json:"position"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode serper response: %w", err)
	}

	var out []research.WebResult
	for i, r := range raw.Organic {
		if i >= k {
			break
		}
		pos := r.Position
		if pos == 0 {
			pos = i + 1
		}
		out = append(out, research.WebResult{Title: r.Title, Link: r.Link, Snippet: r.Snippet, Position: pos})
	}
	return out, nil
}
