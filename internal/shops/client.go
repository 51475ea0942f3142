// Package shops wraps the Hotpepper gourmet search API and narrows its
// loosely-typed payload into the internal Shop representation at the
// boundary.
package shops

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/yama-shu/gourmet-battle/internal/models"
)

// DefaultBaseURL is the production Hotpepper gourmet search endpoint.
const DefaultBaseURL = "http://webservice.recruit.co.jp/hotpepper/gourmet/v1/"

const (
	// DefaultGenre is the izakaya category, the upstream catch-all.
	DefaultGenre = "G001"
	// DefaultRange is the 1000m radius tier for lat/lng searches.
	DefaultRange = "3"
	// DefaultCount is the result cap when the caller does not set one.
	DefaultCount = 20
	// MaxCount bounds the result cap to keep upstream quota sane.
	MaxCount = 50
)

// ErrInvalidFormat reports an upstream payload without results.shop.
var ErrInvalidFormat = fmt.Errorf("invalid response format from Hotpepper API")

// StatusError reports an upstream non-2xx response; the proxy mirrors its
// status code.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("hotpepper API returned status %d", e.StatusCode)
}

// SearchParams are the supported search criteria. Lat and Lng enable radius
// search and must be set together.
type SearchParams struct {
	Keyword string
	Genre   string
	Lat     string
	Lng     string
	Range   string
	Count   int
}

// HasCriteria reports whether at least one usable criterion is present.
func (p SearchParams) HasCriteria() bool {
	return p.Keyword != "" || p.Genre != "" || (p.Lat != "" && p.Lng != "")
}

// Client calls the Hotpepper gourmet API.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient builds a client for the given endpoint and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// upstream mirrors just enough of the Hotpepper response shape to reshape it.
// results.shop must be present; a pointer distinguishes missing from empty.
type upstream struct {
	Results struct {
		Shop *[]upstreamShop `json:"shop"`
	} `json:"results"`
}

type upstreamShop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URLs struct {
		PC string `json:"pc"`
	} `json:"urls"`
	Photo struct {
		PC struct {
			L string `json:"l"`
		} `json:"pc"`
	} `json:"photo"`
	Genre struct {
		Name string `json:"name"`
	} `json:"genre"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// Search performs one gourmet search and reshapes the result. Records without
// an id or name are dropped.
func (c *Client) Search(ctx context.Context, params SearchParams) ([]models.Shop, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("format", "json")

	genre := params.Genre
	if genre == "" {
		genre = DefaultGenre
	}
	q.Set("genre", genre)

	count := params.Count
	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}
	q.Set("count", fmt.Sprintf("%d", count))

	if params.Keyword != "" {
		q.Set("keyword", params.Keyword)
	}
	if params.Lat != "" && params.Lng != "" {
		q.Set("lat", params.Lat)
		q.Set("lng", params.Lng)
		r := params.Range
		if r == "" {
			r = DefaultRange
		}
		q.Set("range", r)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build hotpepper request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hotpepper API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read hotpepper response: %w", err)
	}

	var data upstream
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, ErrInvalidFormat
	}
	if data.Results.Shop == nil {
		return nil, ErrInvalidFormat
	}

	shops := make([]models.Shop, 0, len(*data.Results.Shop))
	for _, s := range *data.Results.Shop {
		if s.ID == "" || s.Name == "" {
			continue
		}
		shops = append(shops, models.Shop{
			ID:       s.ID,
			Name:     s.Name,
			URL:      s.URLs.PC,
			PhotoURL: s.Photo.PC.L,
			Genre:    s.Genre.Name,
			Address:  s.Address,
			Lat:      s.Lat,
			Lng:      s.Lng,
		})
	}
	return shops, nil
}
