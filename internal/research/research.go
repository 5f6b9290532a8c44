package research

import (
	"context"
	"log"
	"sync"
	"time"
)

// WebResult is a normalized web search hit.
type WebResult struct {
	Title    string `json:"title"`
	Link     string `json:"link"`
	Snippet  string `json:"snippet"`
	Position int    `json:"position"`
}

// VideoResult is a normalized video platform search hit.
type VideoResult struct {
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channelTitle"`
	Description  string    `json:"description"`
	VideoID      string    `json:"videoId"`
	PublishedAt  time.Time `json:"publishedAt"`
}

// ResearchData is the ephemeral aggregate of external search results
// for one query. It is consumed by synthesis and never persisted.
type ResearchData struct {
	Query   string
	Google  []WebResult
	Reddit  []WebResult
	YouTube []VideoResult
}

// WebSearcher issues a web search, optionally restricted to a site.
type WebSearcher interface {
	Search(ctx context.Context, query string, site string, k int) ([]WebResult, error)
}

// VideoSearcher issues a video platform search.
type VideoSearcher interface {
	Search(ctx context.Context, query string, k int) ([]VideoResult, error)
}

// Client fans a query out to the three research sources.
type Client struct {
	Web           WebSearcher
	Video         VideoSearcher
	CommunitySite string
	MaxResults    int
	Logger        *log.Logger
}

// NewClient wires the research sources together.
func NewClient(web WebSearcher, video VideoSearcher, communitySite string, maxResults int, logger *log.Logger) *Client {
	if communitySite == "" {
		communitySite = "reddit.com"
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RESEARCH] ", log.LstdFlags)
	}
	return &Client{Web: web, Video: video, CommunitySite: communitySite, MaxResults: maxResults, Logger: logger}
}

// FetchAll runs the three lookups concurrently and joins them into one
// bundle. A failing source degrades to an empty sequence; the bundle
// itself never fails because one upstream was unavailable.
func (c *Client) FetchAll(ctx context.Context, query string) (ResearchData, error) {
	data := ResearchData{
		Query:   query,
		Google:  []WebResult{},
		Reddit:  []WebResult{},
		YouTube: []VideoResult{},
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		results, err := c.Web.Search(ctx, query, "", c.MaxResults)
		if err != nil {
			sourceFailures.WithLabelValues("google").Inc()
			c.Logger.Printf("web search failed for %q: %v", query, err)
			return
		}
		data.Google = results
	}()

	go func() {
		defer wg.Done()
		results, err := c.Web.Search(ctx, query, c.CommunitySite, c.MaxResults)
		if err != nil {
			sourceFailures.WithLabelValues("reddit").Inc()
			c.Logger.Printf("community search failed for %q: %v", query, err)
			return
		}
		data.Reddit = results
	}()

	go func() {
		defer wg.Done()
		results, err := c.Video.Search(ctx, query, c.MaxResults)
		if err != nil {
			sourceFailures.WithLabelValues("youtube").Inc()
			c.Logger.Printf("video search failed for %q: %v", query, err)
			return
		}
		data.YouTube = results
	}()

	wg.Wait()
	return data, nil
}
