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
	pixabayAPIURL     = "https://pixabay.com"
	pixabayMinPerPage = 3
	pixabayMaxPerPage = 200
)

// PixabayClient implements Searcher for the Pixabay API
type PixabayClient struct {
	keys keys.Set
	clientConfig
}

// pixabayResponse represents the API response structure
type pixabayResponse struct {
	Total     int            `json:"total"`
	TotalHits int            `json:"totalHits"`
	Hits      []pixabayImage `json:"hits"`
}

// pixabayImage represents a single image in the response
type pixabayImage struct {
	ID            int64  `json:"id"`
	PageURL       string `json:"pageURL"`
	Tags          string `json:"tags"`
	PreviewURL    string `json:"previewURL"`
	WebformatURL  string `json:"webformatURL"`
	LargeImageURL string `json:"largeImageURL"`
	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
	UserID        int64  `json:"user_id"`
	User          string `json:"user"`
}

// NewPixabayClient creates a new Pixabay API client
func NewPixabayClient(set keys.Set, opts ...ClientOption) *PixabayClient {
	return &PixabayClient{
		keys:         set,
		clientConfig: newClientConfig(pixabayAPIURL, opts),
	}
}

// Name returns the name of the search provider
func (p *PixabayClient) Name() keys.Provider {
	return keys.Pixabay
}

// Search performs an image search on Pixabay. Only safe, horizontal photos
// of at least 1920x1080 are requested.
func (p *PixabayClient) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	if !p.keys.IsAvailable(keys.Pixabay) {
		return nil, unavailable(keys.Pixabay)
	}

	page = max(page, 1)
	requested := clamp(perPage, 1, pixabayMaxPerPage)

	var (
		pixResp *pixabayResponse
		hits    []pixabayImage
		err     error
	)
	if requested >= pixabayMinPerPage {
		if pixResp, err = p.fetch(ctx, query, page, requested); err != nil {
			return nil, err
		}
		hits = pixResp.Hits
	} else {
		pixResp, hits, err = p.fetchSmallPage(ctx, query, page, requested)
		if err != nil {
			return nil, err
		}
	}
	if len(hits) > requested {
		hits = hits[:requested]
	}

	results := make([]Descriptor, 0, len(hits))
	for _, hit := range hits {
		results = append(results, Descriptor{
			ID:        fmt.Sprintf("pixabay-%d", hit.ID),
			URL:       hit.WebformatURL,
			FullURL:   hit.LargeImageURL,
			Thumbnail: hit.PreviewURL,
			Alt:       fallbackAlt(query, hit.Tags),
			Width:     hit.ImageWidth,
			Height:    hit.ImageHeight,
			Author:    hit.User,
			AuthorURL: pixabayUserURL(hit.User, hit.UserID),
			SourceURL: hit.PageURL,
			Provider:  keys.Pixabay,
		})
	}

	return &Page{
		Results:    results,
		Total:      pixResp.TotalHits,
		TotalPages: totalPages(pixResp.TotalHits, requested),
	}, nil
}

// fetchSmallPage serves a page smaller than the API minimum. The API pages
// in steps of 3, so the caller's offset is located in those pages and the
// following page is added when the slice crosses a page boundary.
func (p *PixabayClient) fetchSmallPage(ctx context.Context, query string, page, size int) (*pixabayResponse, []pixabayImage, error) {
	offset := (page - 1) * size
	apiPage := offset/pixabayMinPerPage + 1
	skip := offset % pixabayMinPerPage

	first, err := p.fetch(ctx, query, apiPage, pixabayMinPerPage)
	if err != nil {
		return nil, nil, err
	}
	if skip >= len(first.Hits) {
		return first, nil, nil
	}
	hits := first.Hits[skip:]

	// The API rejects pages past the last hit
	if len(hits) < size && apiPage*pixabayMinPerPage < first.TotalHits {
		next, err := p.fetch(ctx, query, apiPage+1, pixabayMinPerPage)
		if err != nil {
			return nil, nil, err
		}
		hits = append(append([]pixabayImage(nil), hits...), next.Hits...)
	}
	return first, hits, nil
}

// fetch requests one API page
func (p *PixabayClient) fetch(ctx context.Context, query string, page, perPage int) (*pixabayResponse, error) {
	params := url.Values{}
	params.Set("key", p.keys.Pixabay)
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("image_type", "photo")
	params.Set("orientation", "horizontal")
	params.Set("safesearch", "true")
	params.Set("min_width", "1920")
	params.Set("min_height", "1080")

	reqURL := p.baseURL + "/api/?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	var pixResp pixabayResponse
	if err := getJSON(p.httpClient, req, keys.Pixabay, &pixResp); err != nil {
		return nil, err
	}
	return &pixResp, nil
}

func pixabayUserURL(user string, id int64) string {
	if user == "" {
		return ""
	}
	return fmt.Sprintf("https://pixabay.com/users/%s-%d/", url.PathEscape(user), id)
}
