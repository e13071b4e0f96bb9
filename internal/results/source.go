package results

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/errors"
)

const (
	defaultTimeout  = 30 * time.Second
	maxPayloadBytes = 64 << 20
)

// Source provides a raw results payload
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	fmt.Stringer
}

// FileSource reads a payload exported from the survey backend
type FileSource struct {
	Path string
}

// Fetch reads the file
func (s FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.New(err).
			Component("results").
			Category(errors.CategoryFileIO).
			Context("path", s.Path).
			Build()
	}
	return data, nil
}

func (s FileSource) String() string {
	return s.Path
}

// HTTPSource downloads the payload from a results endpoint
type HTTPSource struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewHTTPSource creates a source for url with an optional bearer token
func NewHTTPSource(url, token string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSource{URL: url, Token: token, Client: &http.Client{Timeout: timeout}}
}

// Fetch performs a GET request and returns the response body
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, http.NoBody)
	if err != nil {
		return nil, errors.ConfigurationError("results", "url", s.URL, "invalid results URL: %v", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "surveygen")
	if s.Token != "" {
		req.Header.Set("Authorization", "Bearer "+s.Token)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errors.New(err).
			Component("results").
			Category(errors.CategoryNetwork).
			Context("url", s.URL).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("results endpoint returned status %d", resp.StatusCode).
			Component("results").
			Category(errors.CategoryHTTP).
			Context("url", s.URL).
			Context("status_code", resp.StatusCode).
			Build()
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return nil, errors.New(err).
			Component("results").
			Category(errors.CategoryNetwork).
			Context("url", s.URL).
			Build()
	}
	return data, nil
}

func (s *HTTPSource) String() string {
	return s.URL
}

// SourceFromSettings returns a file source when path is set, otherwise an HTTP
// source for the configured results URL
func SourceFromSettings(settings *conf.Settings, path string) (Source, error) {
	if path != "" {
		return FileSource{Path: path}, nil
	}
	if settings.Results.URL == "" {
		return nil, errors.ConfigurationError("results", "url", "", "either a results file or results.url is required")
	}
	return NewHTTPSource(settings.Results.URL, settings.Results.Token, settings.Results.Timeout), nil
}
