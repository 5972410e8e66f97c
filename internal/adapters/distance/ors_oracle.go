package distance

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultORSBaseURL = "https://api.openrouteservice.org"
	DefaultORSProfile = "driving-car"
)

// ORSOracle answers distance matrix, directions and geocoding queries with
// OpenRouteService. Safe for concurrent use.
type ORSOracle struct {
	client  *http.Client
	apiKey  string
	baseURL string
	profile string
	backoff time.Duration
}

type ORSOption func(*ORSOracle)

func WithBaseURL(u string) ORSOption {
	return func(o *ORSOracle) { o.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(c *http.Client) ORSOption {
	return func(o *ORSOracle) { o.client = c }
}

func WithProfile(p string) ORSOption {
	return func(o *ORSOracle) { o.profile = p }
}

// WithBackoff sets the first retry delay; later retries double it.
func WithBackoff(d time.Duration) ORSOption {
	return func(o *ORSOracle) { o.backoff = d }
}

func NewORSOracle(apiKey string, opts ...ORSOption) (*ORSOracle, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ORS api key is empty")
	}

	o := &ORSOracle{
		client:  &http.Client{Timeout: 15 * time.Second},
		apiKey:  apiKey,
		baseURL: DefaultORSBaseURL,
		profile: DefaultORSProfile,
		backoff: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// normalize collapses whitespace so equal addresses share a cache key.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
