package image

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"codeberg.org/snonux/imageserver/internal/keys"
)

const (
	pexelsAPIURL     = "https://api.pexels.com"
	pexelsMaxPerPage = 80
)

// PexelsClient implements Searcher for the Pexels API
type PexelsClient struct {
	keys keys.Set
	clientConfig
}

// pexelsResponse represents the /v1/search response
type pexelsResponse struct {
	TotalResults int           `json:"total_results"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Photos       []pexelsPhoto `json:"photos"`
}

// pexelsPhoto represents a single photo in the response
type pexelsPhoto struct {
	ID              int64     `json:"id"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	URL             string    `json:"url"`
	Photographer    string    `json:"photographer"`
	PhotographerURL string    `json:"photographer_url"`
	Alt             string    `json:"alt"`
	Src             pexelsSrc `json:"src"`
}

type pexelsSrc struct {
	Original  string `json:"original"`
	Large2x   string `json:"large2x"`
	Large     string `json:"large"`
	Medium    string `json:"medium"`
	Small     string `json:"small"`
	Landscape string `json:"landscape"`
	Tiny      string `json:"tiny"`
}

// NewPexelsClient creates a new Pexels API client
func NewPexelsClient(set keys.Set, opts ...ClientOption) *PexelsClient {
	return &PexelsClient{
		keys:         set,
		clientConfig: newClientConfig(pexelsAPIURL, opts),
	}
}

// Name returns the name of the search provider
func (p *PexelsClient) Name() keys.Provider {
	return keys.Pexels
}

// Search performs an image search on Pexels restricted to landscape photos
func (p *PexelsClient) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	if !p.keys.IsAvailable(keys.Pexels) {
		return nil, unavailable(keys.Pexels)
	}

	page = max(page, 1)
	perPage = clamp(perPage, 1, pexelsMaxPerPage)

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("orientation", "landscape")

	reqURL := p.baseURL + "/v1/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Pexels takes the raw key, no scheme prefix
	req.Header.Set("Authorization", p.keys.Pexels)

	var pexResp pexelsResponse
	if err := getJSON(p.httpClient, req, keys.Pexels, &pexResp); err != nil {
		return nil, err
	}

	results := make([]Descriptor, 0, len(pexResp.Photos))
	for _, photo := range pexResp.Photos {
		results = append(results, Descriptor{
			ID:        fmt.Sprintf("pexels-%d", photo.ID),
			URL:       photo.Src.Large,
			FullURL:   photo.Src.Original,
			Thumbnail: photo.Src.Medium,
			Alt:       fallbackAlt(query, photo.Alt),
			Width:     photo.Width,
			Height:    photo.Height,
			Author:    photo.Photographer,
			AuthorURL: photo.PhotographerURL,
			SourceURL: photo.URL,
			Provider:  keys.Pexels,
		})
	}

	return &Page{
		Results:    results,
		Total:      pexResp.TotalResults,
		TotalPages: totalPages(pexResp.TotalResults, perPage),
	}, nil
}
