// Package timezone wraps an optional HTTP lookup service that maps a city
// name to an IANA timezone identifier. It is used only by the /settz
// settings flow; the dispatch tick never calls out here.
package timezone

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

type Lookup struct {
	endpoint string
	client   *http.Client
}

func NewLookup(endpoint string) *Lookup {
	return &Lookup{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type lookupResponse struct {
	Timezone string `json:"timezone"`
}

// Resolve asks the lookup service for the IANA zone of a city and validates
// that the returned identifier actually loads.
func (l *Lookup) Resolve(ctx context.Context, city string) (string, error) {
	u := l.endpoint + "?city=" + url.QueryEscape(city)
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return "", err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("timezone lookup error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("timezone lookup %d: %s", resp.StatusCode, string(b))
	}

	var lr lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", err
	}
	if lr.Timezone == "" {
		return "", fmt.Errorf("timezone lookup returned no zone for %q", city)
	}
	if _, err := time.LoadLocation(lr.Timezone); err != nil {
		return "", fmt.Errorf("timezone lookup returned invalid zone %q: %w", lr.Timezone, err)
	}
	return lr.Timezone, nil
}
