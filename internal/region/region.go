package region

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/terra-clan/compare-engine/internal/config"
)

// Lookup errors. Resolve turns all of them into the fallback region.
var (
	ErrNotRoutable   = errors.New("address is not publicly routable")
	ErrBadStatus     = errors.New("unexpected lookup status")
	ErrMissingRegion = errors.New("lookup response has no country code")
	ErrInvalidRegion = errors.New("invalid region code")
)

// ipPlaceholder is replaced by the escaped client address in the lookup URL
const ipPlaceholder = "{ip}"

// Resolver detects a client's region through a geolocation-by-IP endpoint
type Resolver struct {
	urlTemplate string
	httpClient  *http.Client
	limiter     *rate.Limiter
	fallback    string
}

// NewResolver creates a resolver from the region configuration
func NewResolver(cfg config.RegionConfig) *Resolver {
	perMinute := cfg.PerMinute
	if perMinute < 1 {
		perMinute = 45
	}
	fallback, ok := Normalize(cfg.DefaultRegion)
	if !ok {
		fallback = "US"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &Resolver{
		urlTemplate: cfg.LookupURL,
		httpClient:  &http.Client{Timeout: timeout},
		limiter:     rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		fallback:    fallback,
	}
}

// Fallback returns the region used when detection fails
func (r *Resolver) Fallback() string {
	return r.fallback
}

// Resolve returns the client's region, or the fallback on any failure.
// Failures are logged and never returned.
func (r *Resolver) Resolve(ctx context.Context, clientIP string) string {
	code, err := r.Lookup(ctx, clientIP)
	if err != nil {
		slog.Warn("region lookup failed, using default",
			"ip", clientIP,
			"default", r.fallback,
			"error", err,
		)
		return r.fallback
	}
	return code
}

// Lookup queries the geolocation endpoint for clientIP
func (r *Resolver) Lookup(ctx context.Context, clientIP string) (string, error) {
	ip := net.ParseIP(clientIP)
	if ip == nil {
		return "", fmt.Errorf("%w: %q", ErrNotRoutable, clientIP)
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return "", fmt.Errorf("%w: %s", ErrNotRoutable, clientIP)
	}

	ctx, cancel := context.WithTimeout(ctx, r.httpClient.Timeout)
	defer cancel()

	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limited: %w", err)
	}

	endpoint := strings.ReplaceAll(r.urlTemplate, ipPlaceholder, url.PathEscape(ip.String()))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	var body struct {
		CountryCode string `json:"countryCode"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if body.CountryCode == "" {
		return "", ErrMissingRegion
	}

	code, ok := Normalize(body.CountryCode)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegion, body.CountryCode)
	}
	return code, nil
}

// Normalize upper-cases and validates an ISO 3166-1 alpha-2 region code
func Normalize(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 2 || code[0] < 'A' || code[0] > 'Z' || code[1] < 'A' || code[1] > 'Z' {
		return "", false
	}
	reg, err := language.ParseRegion(code)
	if err != nil || !reg.IsCountry() {
		return "", false
	}
	return code, true
}
