package similarity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultConceptNetURL is the public ConceptNet API.
const DefaultConceptNetURL = "https://api.conceptnet.io"

// ConceptNet scores word pairs with the ConceptNet /relatedness endpoint,
// which returns a value in [-1, 1]. Outbound calls are rate limited.
// Upstream failures surface as ErrProviderUnavailable; they are never turned
// into a made-up score.
type ConceptNet struct {
	baseURL string
	lang    string
	client  *http.Client
	limiter *rate.Limiter
}

// ConceptNetOption configures a ConceptNet provider.
type ConceptNetOption func(*ConceptNet)

// WithConceptNetHTTPClient overrides the HTTP client.
func WithConceptNetHTTPClient(c *http.Client) ConceptNetOption {
	return func(p *ConceptNet) { p.client = c }
}

// WithConceptNetLanguage sets the concept language code (default "en").
func WithConceptNetLanguage(lang string) ConceptNetOption {
	return func(p *ConceptNet) {
		if lang != "" {
			p.lang = lang
		}
	}
}

// NewConceptNet creates a provider for baseURL allowing rps requests per second.
// rps <= 0 disables rate limiting.
func NewConceptNet(baseURL string, rps float64, opts ...ConceptNetOption) *ConceptNet {
	if baseURL == "" {
		baseURL = DefaultConceptNetURL
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	p := &ConceptNet{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		lang:    "en",
		client:  &http.Client{Timeout: 5 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *ConceptNet) Name() string { return "conceptnet" }

func (p *ConceptNet) node(word string) string {
	return "/c/" + p.lang + "/" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(word)), " ", "_")
}

// Similarity implements Provider.
func (p *ConceptNet) Similarity(ctx context.Context, a, b string) (float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	q := url.Values{}
	q.Set("node1", p.node(a))
	q.Set("node2", p.node(b))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/relatedness?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: conceptnet: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: conceptnet returned %s", ErrProviderUnavailable, resp.Status)
	}

	var body struct {
		Value *float64 `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: decode conceptnet response: %v", ErrProviderUnavailable, err)
	}
	if body.Value == nil {
		return 0, fmt.Errorf("%w: conceptnet response has no value", ErrProviderUnavailable)
	}
	return clampUnit(*body.Value), nil
}

var _ Provider = (*ConceptNet)(nil)
