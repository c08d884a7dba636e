package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/sharingcloud/prbot/forgeapi"
	"github.com/sharingcloud/prbot/prerr"
)

// TenorConfig configures the gif-search side of the forge client,
// which proxies to Tenor rather than the forge itself.
type TenorConfig struct {
	APIKey      string
	Endpoint    string // defaults to https://tenor.googleapis.com/v2/search
	OnAPICall   func()
	HTTPClient  *http.Client
}

type tenorSearcher struct {
	cfg    TenorConfig
	client *http.Client
}

// WithTenor attaches Tenor gif search to c.
func (c *Client) WithTenor(cfg TenorConfig) *Client {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	c.tenor = &tenorSearcher{cfg: cfg, client: client}
	return c
}

type tenorResponse struct {
	Results []struct {
		MediaFormats struct {
			GIF struct {
				URL string `json:"url"`
			} `json:"gif"`
		} `json:"media_formats"`
	} `json:"results"`
}

func (c *Client) GifSearch(ctx context.Context, query string) ([]forgeapi.GifResult, error) {
	if c.tenor == nil {
		return nil, nil
	}
	if c.tenor.cfg.OnAPICall != nil {
		c.tenor.cfg.OnAPICall()
	}

	endpoint := c.tenor.cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://tenor.googleapis.com/v2/search"
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, prerr.Config("parse tenor endpoint", err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("key", c.tenor.cfg.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, prerr.IO("build tenor request", err)
	}
	resp, err := c.tenor.client.Do(req)
	if err != nil {
		return nil, prerr.ForgeAPI(0, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, prerr.ForgeAPI(resp.StatusCode, "tenor search failed")
	}

	var body tenorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, prerr.JSON("decode tenor response", err)
	}

	out := make([]forgeapi.GifResult, 0, len(body.Results))
	for _, r := range body.Results {
		if r.MediaFormats.GIF.URL != "" {
			out = append(out, forgeapi.GifResult{URL: r.MediaFormats.GIF.URL})
		}
	}
	return out, nil
}
