// Package arxiv talks to the arXiv Atom API (export.arxiv.org) and exposes
// the paper tools built on top of it.
package arxiv

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/i2y/papermcp/internal/domain"
)

// Client queries the arXiv API over plain HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewClient creates a new arXiv API client. baseURL is the query endpoint,
// e.g. "http://export.arxiv.org/api/query".
func NewClient(baseURL string, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: baseURL,
		client:  client,
		logger:  logger.With("component", "arxiv_client"),
	}
}

// Search returns up to maxResults papers matching topic, newest submissions
// first.
func (c *Client) Search(ctx context.Context, topic string, maxResults int) ([]domain.Paper, error) {
	query := url.Values{}
	query.Set("search_query", "all:"+topic)
	query.Set("start", "0")
	query.Set("max_results", strconv.Itoa(maxResults))
	query.Set("sortBy", "submittedDate")
	query.Set("sortOrder", "descending")

	feed, err := c.fetchFeed(ctx, query)
	if err != nil {
		return nil, err
	}

	papers := make([]domain.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		papers = append(papers, entry.toPaper())
	}
	c.logger.DebugContext(ctx, "arXiv search complete", slog.String("topic", topic), slog.Int("count", len(papers)))
	return papers, nil
}

// Abstract returns the summary text of a single paper identified by its
// arXiv ID (e.g. "2301.12345").
func (c *Client) Abstract(ctx context.Context, arxivID string) (string, error) {
	query := url.Values{}
	query.Set("id_list", arxivID)

	feed, err := c.fetchFeed(ctx, query)
	if err != nil {
		return "", err
	}
	// arXiv answers an id_list query for an unknown ID with an empty feed
	// rather than an HTTP error.
	if len(feed.Entries) == 0 || strings.TrimSpace(feed.Entries[0].Summary) == "" {
		return "", domain.UpstreamError(nil, "paper %q not found on arXiv", arxivID)
	}
	return strings.TrimSpace(feed.Entries[0].Summary), nil
}

func (c *Client) fetchFeed(ctx context.Context, query url.Values) (*atomFeed, error) {
	reqURL := c.baseURL + "?" + query.Encode()
	log := c.logger.With(slog.String("url", reqURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, domain.UpstreamError(err, "failed to create arXiv request")
	}

	log.Debug("Querying arXiv API")
	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("arXiv request timed out")
			return nil, domain.TimeoutError("arXiv request timed out")
		}
		log.Error("arXiv request failed", slog.Any("error", err))
		return nil, domain.UpstreamError(err, "arXiv request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read arXiv response", slog.Any("error", err))
		return nil, domain.UpstreamError(err, "failed to read arXiv response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn("arXiv returned non-success status", slog.Int("status_code", resp.StatusCode))
		return nil, domain.UpstreamError(
			fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			"arXiv query failed")
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		log.Error("Failed to parse arXiv feed", slog.Any("error", err))
		return nil, domain.UpstreamError(err, "failed to parse arXiv feed")
	}
	return &feed, nil
}

// Atom feed subset returned by the arXiv query endpoint.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string       `xml:"id"`
	Title     string       `xml:"title"`
	Published string       `xml:"published"`
	Summary   string       `xml:"summary"`
	Authors   []atomAuthor `xml:"author"`
	Links     []atomLink   `xml:"link"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

func (e atomEntry) toPaper() domain.Paper {
	authors := make([]string, 0, len(e.Authors))
	for _, a := range e.Authors {
		authors = append(authors, a.Name)
	}

	var pdfLink string
	for _, l := range e.Links {
		if l.Type == "application/pdf" {
			pdfLink = l.Href
			break
		}
	}

	// Entry IDs look like "http://arxiv.org/abs/2301.12345v1"; the arXiv ID
	// is the last path segment.
	id := e.ID
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	return domain.Paper{
		ID:        id,
		Title:     strings.TrimSpace(e.Title),
		Published: e.Published,
		Authors:   authors,
		PDFLink:   pdfLink,
		Summary:   strings.TrimSpace(e.Summary),
	}
}
