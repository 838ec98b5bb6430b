// Package places wraps the Google Places API (v1) Text Search endpoint
// for rectangle-bounded searches. The client is stateless: one page per
// call, pagination is the caller's continuation token to thread. It
// performs no retries; retry policy belongs to the caller.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://places.googleapis.com"
	searchTextPath = "/v1/places:searchText"

	// fieldMask limits the response to the fields the pipeline consumes.
	fieldMask = "nextPageToken,places.id,places.displayName,places.formattedAddress," +
		"places.addressComponents,places.location,places.primaryType," +
		"places.businessStatus,places.websiteUri,places.types"

	previewLimit = 256
)

// Client performs rectangle-bounded text searches against the places API.
type Client interface {
	SearchRectangle(ctx context.Context, req SearchRequest) (*SearchPage, error)
}

// Rect is a geographic bounding rectangle in degrees.
type Rect struct {
	LowLat   float64
	LowLong  float64
	HighLat  float64
	HighLong float64
}

// SearchRequest describes one page of a rectangle-bounded text search.
// PageToken from a prior page fetches the next page of the same
// query/rectangle. PageSize caps, but does not guarantee, the per-page
// result count.
type SearchRequest struct {
	Query     string
	Rect      Rect
	PageSize  int
	PageToken string
}

// SearchPage is one page of raw search results plus the continuation
// token, empty when the upstream claims no more pages.
type SearchPage struct {
	Places        []Place `json:"places"`
	NextPageToken string  `json:"nextPageToken"`
}

// Place is a raw place record as returned by the API.
type Place struct {
	ID                string             `json:"id"`
	DisplayName       DisplayName        `json:"displayName"`
	FormattedAddress  string             `json:"formattedAddress"`
	AddressComponents []AddressComponent `json:"addressComponents"`
	Location          *LatLng            `json:"location,omitempty"`
	PrimaryType       string             `json:"primaryType"`
	Types             []string           `json:"types"`
	BusinessStatus    string             `json:"businessStatus"`
	WebsiteURI        string             `json:"websiteUri"`
}

// DisplayName holds the place's display name.
type DisplayName struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
}

// AddressComponent is one element of a place's structured address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// New creates a places API client.
func New(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type searchTextRequest struct {
	TextQuery           string              `json:"textQuery"`
	PageSize            int                 `json:"pageSize"`
	LocationRestriction locationRestriction `json:"locationRestriction"`
	PageToken           string              `json:"pageToken,omitempty"`
}

type locationRestriction struct {
	Rectangle rectangle `json:"rectangle"`
}

type rectangle struct {
	Low  LatLng `json:"low"`
	High LatLng `json:"high"`
}

func (c *httpClient) SearchRectangle(ctx context.Context, sr SearchRequest) (*SearchPage, error) {
	body, err := json.Marshal(searchTextRequest{
		TextQuery: sr.Query,
		PageSize:  sr.PageSize,
		LocationRestriction: locationRestriction{
			Rectangle: rectangle{
				Low:  LatLng{Latitude: sr.Rect.LowLat, Longitude: sr.Rect.LowLong},
				High: LatLng{Latitude: sr.Rect.HighLat, Longitude: sr.Rect.HighLong},
			},
		},
		PageToken: sr.PageToken,
	})
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchTextPath, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var page SearchPage
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, &DecodeError{Err: err, Preview: preview(respBody)}
	}

	return &page, nil
}

// preview truncates a response body for error messages.
func preview(body []byte) string {
	if len(body) > previewLimit {
		return string(body[:previewLimit]) + "..."
	}
	return string(body)
}
