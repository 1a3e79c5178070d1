// Package ctftime talks to the CTFtime events catalog: the JSON API
// for event metadata, and the public event page for the two flags the
// API does not expose (individual-only participation, on-line format).
package ctftime

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultBaseURL = "https://ctftime.org"

// Event is the catalog record for one competition, as served by
// /api/v1/events/<id>/.
type Event struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	URL          string  `json:"url"`
	CTFTimeURL   string  `json:"ctftime_url"`
	Start        string  `json:"start"`
	Finish       string  `json:"finish"`
	Format       string  `json:"format"`
	Weight       float64 `json:"weight"`
	Onsite       bool    `json:"onsite"`
	Restrictions string  `json:"restrictions"`
	Logo         string  `json:"logo"`
}

type Client struct {
	http    *http.Client
	baseURL string
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		baseURL: defaultBaseURL,
		logger:  logger,
	}
}

// NewWithBaseURL is for tests against a local server.
func NewWithBaseURL(baseURL string, logger *slog.Logger) *Client {
	c := New(logger)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// GetEvent fetches the catalog record for a CTFtime event id.
func (c *Client) GetEvent(ctx context.Context, id string) (*Event, error) {
	url := fmt.Sprintf("%s/api/v1/events/%s/", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ctftime: event %s: %w", id, err)
	}
	req.Header.Set("User-Agent", "ctfbot")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ctftime: event %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ctftime: event %s: HTTP %d", id, resp.StatusCode)
	}

	var ev Event
	if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
		return nil, fmt.Errorf("ctftime: event %s: decode: %w", id, err)
	}
	return &ev, nil
}

const soloText = "This event is limited to individual participation! No global rating points."

// Solo reports whether the event page carries the individual-only
// participation notice. The API has no field for it.
func (c *Client) Solo(ctx context.Context, id string) (bool, error) {
	return c.pageHasBoldText(ctx, id, func(s string) bool {
		return strings.Contains(s, soloText)
	})
}

// Online reports whether the event page lists the format as on-line.
func (c *Client) Online(ctx context.Context, id string) (bool, error) {
	return c.pageHasBoldText(ctx, id, func(s string) bool {
		return strings.Contains(s, "On-line")
	})
}

func (c *Client) pageHasBoldText(ctx context.Context, id string, match func(string) bool) (bool, error) {
	url := fmt.Sprintf("%s/event/%s", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("ctftime: page %s: %w", id, err)
	}
	req.Header.Set("User-Agent", "ctfbot")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("ctftime: page %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ctftime: page %s: HTTP %d", id, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return false, fmt.Errorf("ctftime: page %s: parse: %w", id, err)
	}

	found := false
	doc.Find("p b").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if match(strings.TrimSpace(sel.Text())) {
			found = true
			return false
		}
		return true
	})
	return found, nil
}
