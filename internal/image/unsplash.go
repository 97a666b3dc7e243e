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
	unsplashAPIURL     = "https://api.unsplash.com"
	unsplashMaxPerPage = 30
)

// UnsplashClient implements Searcher for the Unsplash API
type UnsplashClient struct {
	keys keys.Set
	clientConfig
}

// unsplashSearchResponse represents the search API response
type unsplashSearchResponse struct {
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Results    []unsplashPhoto `json:"results"`
}

// unsplashPhoto represents a photo in the response
type unsplashPhoto struct {
	ID          string             `json:"id"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Description string             `json:"description"`
	AltDesc     string             `json:"alt_description"`
	URLs        unsplashPhotoURLs  `json:"urls"`
	Links       unsplashPhotoLinks `json:"links"`
	User        unsplashUser       `json:"user"`
}

// unsplashPhotoURLs contains various size URLs
type unsplashPhotoURLs struct {
	Raw     string `json:"raw"`
	Full    string `json:"full"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

// unsplashPhotoLinks contains photo-related links
type unsplashPhotoLinks struct {
	HTML     string `json:"html"`
	Download string `json:"download"`
}

// unsplashUser represents the photo author
type unsplashUser struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Links    struct {
		HTML string `json:"html"`
	} `json:"links"`
}

// NewUnsplashClient creates a new Unsplash API client
func NewUnsplashClient(set keys.Set, opts ...ClientOption) *UnsplashClient {
	return &UnsplashClient{
		keys:         set,
		clientConfig: newClientConfig(unsplashAPIURL, opts),
	}
}

// Name returns the name of the search provider
func (u *UnsplashClient) Name() keys.Provider {
	return keys.Unsplash
}

// Search performs an image search on Unsplash. Results are restricted to
// landscape photos with the strict content filter.
func (u *UnsplashClient) Search(ctx context.Context, query string, page, perPage int) (*Page, error) {
	if !u.keys.IsAvailable(keys.Unsplash) {
		return nil, unavailable(keys.Unsplash)
	}

	page = max(page, 1)
	perPage = clamp(perPage, 1, unsplashMaxPerPage)

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("orientation", "landscape")
	params.Set("content_filter", "high")

	reqURL := u.baseURL + "/search/photos?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.keys.Unsplash)
	req.Header.Set("Accept-Version", "v1")

	var searchResp unsplashSearchResponse
	if err := getJSON(u.httpClient, req, keys.Unsplash, &searchResp); err != nil {
		return nil, err
	}

	results := make([]Descriptor, 0, len(searchResp.Results))
	for _, photo := range searchResp.Results {
		results = append(results, Descriptor{
			ID:        "unsplash-" + photo.ID,
			URL:       photo.URLs.Regular,
			FullURL:   photo.URLs.Full,
			Thumbnail: photo.URLs.Small,
			Alt:       fallbackAlt(query, photo.AltDesc, photo.Description),
			Width:     photo.Width,
			Height:    photo.Height,
			Author:    fallbackAlt("", photo.User.Name, photo.User.Username),
			AuthorURL: photo.User.Links.HTML,
			SourceURL: photo.Links.HTML,
			Provider:  keys.Unsplash,
		})
	}

	pages := searchResp.TotalPages
	if pages == 0 {
		pages = totalPages(searchResp.Total, perPage)
	}

	return &Page{
		Results:    results,
		Total:      searchResp.Total,
		TotalPages: pages,
	}, nil
}
