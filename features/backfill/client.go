package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tickerspark/archive/features/ingest"
)

const defaultBaseURL = "https://cdn.contentful.com"

// Client fetches published entries from the Contentful Delivery API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	spaceID     string
	accessToken string
	environment string
}

func NewClient(spaceID, accessToken, environment string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		baseURL:     defaultBaseURL,
		spaceID:     spaceID,
		accessToken: accessToken,
		environment: environment,
	}
}

// WithBaseURL points the client at a different API host, used in tests.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Configured reports whether delivery credentials are present. They are only
// required once a backfill is actually invoked.
func (c *Client) Configured() bool {
	return c.spaceID != "" && c.accessToken != ""
}

// EntriesPage is one page of a Delivery API listing.
type EntriesPage struct {
	Total int            `json:"total"`
	Skip  int            `json:"skip"`
	Limit int            `json:"limit"`
	Items []ingest.Entry `json:"items"`
}

// FetchEntries lists published entries of the given content types in stable
// creation order.
func (c *Client) FetchEntries(ctx context.Context, contentTypes []string, skip, limit int) (*EntriesPage, error) {
	params := url.Values{}
	params.Set("access_token", c.accessToken)
	params.Set("sys.contentType.sys.id[in]", strings.Join(contentTypes, ","))
	params.Set("skip", strconv.Itoa(skip))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("order", "sys.createdAt")

	endpoint := fmt.Sprintf("%s/spaces/%s/environments/%s/entries?%s",
		c.baseURL, c.spaceID, c.environment, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("contentful request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("contentful returned %d: %s", resp.StatusCode, string(body))
	}

	var page EntriesPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode contentful response: %w", err)
	}
	return &page, nil
}
