// Package websearch answers free-text queries from the open web.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultEndpoint = "https://api.duckduckgo.com/"

// maxRelated caps how many related topics are folded into a summary.
const maxRelated = 5

// DuckDuckGo queries the DuckDuckGo instant-answer API.
type DuckDuckGo struct {
	endpoint string
	client   *http.Client
}

func NewDuckDuckGo(endpoint string, timeout time.Duration) *DuckDuckGo {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &DuckDuckGo{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type instantAnswer struct {
	Heading        string         `json:"Heading"`
	AbstractText   string         `json:"AbstractText"`
	AbstractSource string         `json:"AbstractSource"`
	AbstractURL    string         `json:"AbstractURL"`
	Answer         string         `json:"Answer"`
	Definition     string         `json:"Definition"`
	RelatedTopics  []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Topics   []relatedTopic `json:"Topics"`
}

// Search implements domain.WebSearch. An answer with no text yields "".
func (d *DuckDuckGo) Search(ctx context.Context, query string) (string, error) {
	u, err := url.Parse(d.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "json")
	q.Set("no_html", "1")
	q.Set("skip_disambig", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("duckduckgo status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var ia instantAnswer
	if err := json.NewDecoder(resp.Body).Decode(&ia); err != nil {
		return "", fmt.Errorf("decode duckduckgo answer: %w", err)
	}

	return summarize(ia), nil
}

func summarize(ia instantAnswer) string {
	var lines []string

	if ia.AbstractText != "" {
		line := ia.AbstractText
		if ia.AbstractSource != "" {
			line += fmt.Sprintf(" (source: %s %s)", ia.AbstractSource, ia.AbstractURL)
		}
		lines = append(lines, strings.TrimSpace(line))
	}
	if ia.Answer != "" {
		lines = append(lines, ia.Answer)
	}
	if ia.Definition != "" {
		lines = append(lines, ia.Definition)
	}

	related := flatten(ia.RelatedTopics)
	if len(related) > maxRelated {
		related = related[:maxRelated]
	}
	for _, t := range related {
		lines = append(lines, "- "+t.Text)
	}

	return strings.Join(lines, "\n")
}

func flatten(topics []relatedTopic) []relatedTopic {
	var out []relatedTopic
	for _, t := range topics {
		if t.Text != "" {
			out = append(out, t)
		}
		out = append(out, flatten(t.Topics)...)
	}
	return out
}
