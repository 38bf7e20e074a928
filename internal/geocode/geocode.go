// Package geocode is a client for a Nominatim-style geocoding
// provider: a free-text address resolves to a ranked candidate list
// and only the first candidate's coordinates are used.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/patric-chuzhbe/agenda/internal/models"
)

// ErrNoResults means the provider answered with an empty or unusable
// candidate list for the given address.
var ErrNoResults = errors.New("no geocoding results")

// ErrGeocodeFailed covers transport errors and malformed responses.
var ErrGeocodeFailed = errors.New("geocoding request failed")

type candidate struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Client queries the provider with a bounded timeout and a single
// retry for transient failures. The User-Agent is mandatory for the
// public Nominatim instance.
type Client struct {
	http *resty.Client
}

func New(baseURL, userAgent string, timeout time.Duration) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", userAgent).
		SetTimeout(timeout).
		SetRetryCount(1).
		AddRetryCondition(func(response *resty.Response, err error) bool {
			return err != nil || response.StatusCode() >= http.StatusInternalServerError
		})

	return &Client{http: httpClient}
}

// Resolve geocodes a free-text address to the first ranked candidate's
// coordinates.
func (c *Client) Resolve(ctx context.Context, address string) (models.Coordinates, error) {
	var candidates []candidate
	response, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"format": "json",
			"q":      address,
			"limit":  "1",
		}).
		SetResult(&candidates).
		Get("/search")
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %s", ErrGeocodeFailed, err)
	}
	if !response.IsSuccess() {
		return models.Coordinates{}, fmt.Errorf("%w: unexpected status %d", ErrGeocodeFailed, response.StatusCode())
	}
	if len(candidates) == 0 {
		return models.Coordinates{}, ErrNoResults
	}

	latitude, err := strconv.ParseFloat(candidates[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: bad latitude %q", ErrNoResults, candidates[0].Lat)
	}
	longitude, err := strconv.ParseFloat(candidates[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: bad longitude %q", ErrNoResults, candidates[0].Lon)
	}

	return models.Coordinates{
		Latitude:  latitude,
		Longitude: longitude,
	}, nil
}
