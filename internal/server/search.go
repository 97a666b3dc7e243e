package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"codeberg.org/snonux/imageserver/internal"
	"codeberg.org/snonux/imageserver/internal/image"
	"codeberg.org/snonux/imageserver/internal/keys"
)

const allProviders = "all"

const invalidProviderMessage = "Invalid provider. Valid options: all, unsplash, pexels, pixabay"

// searchResponse is the body of GET /search
type searchResponse struct {
	Query    string             `json:"query"`
	Provider string             `json:"provider"`
	Page     int                `json:"page"`
	PerPage  int                `json:"perPage"`
	Total    int                `json:"total"`
	Results  []image.Descriptor `json:"results"`
}

// bulkSearchRequest is the body of POST /bulk-search
type bulkSearchRequest struct {
	Queries  []string `json:"queries"`
	Provider string   `json:"provider"`
	PerPage  int      `json:"perPage"`
}

type healthResponse struct {
	Status    string          `json:"status"`
	Service   string          `json:"service"`
	Version   string          `json:"version"`
	Providers []keys.Provider `json:"providers"`
	Timestamp string          `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	providers := s.aggregator().Providers()
	if providers == nil {
		providers = []keys.Provider{}
	}
	s.respondWithJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Service:   ServiceName,
		Version:   internal.Version,
		Providers: providers,
		Timestamp: s.timestamp(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := strings.TrimSpace(params.Get("query"))
	if query == "" {
		s.respondWithError(w, http.StatusBadRequest, "Query parameter is required")
		return
	}

	providerName, provider, ok := parseProviderParam(params.Get("provider"))
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, invalidProviderMessage)
		return
	}

	page, err := positiveParam(params, "page", 1)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	perPage, err := positiveParam(params, "per_page", defaultPerPage)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	perPage = min(perPage, maxPerPage)

	var results []image.Descriptor
	if provider == "" {
		results, err = s.aggregator().SearchAll(r.Context(), query, page, perPage)
	} else {
		var p *image.Page
		if p, err = s.aggregator().Search(r.Context(), provider, query, page, perPage); err == nil {
			results = p.Results
		}
	}
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	if results == nil {
		results = []image.Descriptor{}
	}

	s.respondWithJSON(w, http.StatusOK, searchResponse{
		Query:    query,
		Provider: providerName,
		Page:     page,
		PerPage:  perPage,
		Total:    len(results),
		Results:  results,
	})
}

func (s *Server) handleBulkSearch(w http.ResponseWriter, r *http.Request) {
	var req bulkSearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		// A queries value that is not a list of strings fails here
		s.respondWithError(w, http.StatusBadRequest, image.ErrInvalidQueries.Error())
		return
	}

	_, provider, ok := parseProviderParam(req.Provider)
	if !ok {
		s.respondWithError(w, http.StatusBadRequest, invalidProviderMessage)
		return
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = defaultBulkSize
	}
	perPage = min(perPage, maxPerPage)

	result, err := s.aggregator().BulkSearch(r.Context(), req.Queries, provider, perPage)
	if err != nil {
		s.respondWithFailure(w, r, err)
		return
	}
	s.respondWithJSON(w, http.StatusOK, result)
}

// parseProviderParam accepts "all", an empty value or a provider name. An
// empty Provider means all providers.
func parseProviderParam(value string) (string, keys.Provider, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" || value == allProviders {
		return allProviders, "", true
	}
	p, err := keys.ParseProvider(value)
	if err != nil {
		return "", "", false
	}
	return string(p), p, true
}

func positiveParam(params url.Values, name string, def int) (int, error) {
	raw := params.Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}
