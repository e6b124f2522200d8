package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/flexprice/ratelimiter/internal/cache"
	"github.com/flexprice/ratelimiter/internal/config"
	ierr "github.com/flexprice/ratelimiter/internal/errors"
	"github.com/flexprice/ratelimiter/internal/httpclient"
	"github.com/flexprice/ratelimiter/internal/logger"
	"github.com/flexprice/ratelimiter/internal/ratelimit"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

type httpSnapshotDTO struct {
	Entitlements []entitlementDTO `json:"entitlements"`
}

type entitlementDTO struct {
	Name         string     `json:"name"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	PurchaseDate time.Time  `json:"purchase_date"`
	Sandbox      bool       `json:"sandbox"`
}

// HTTPProvider looks up subscription snapshots from a remote
// subscription provider. Transient 5xx/network errors are retried by
// the underlying retryablehttp client before the engine ever sees them
// (§7's ProviderLookupError is reserved for failures that survive
// those retries). A short-TTL cache sits in front of the remote call;
// the fixed-window rate-limit core itself is never cached (§5).
type HTTPProvider struct {
	client   *retryablehttp.Client
	baseURL  string
	testMode bool
	egress   *rate.Limiter
	cache    cache.Cache
	cacheTTL time.Duration
}

// NewHTTPProvider builds an HTTP-backed Subscription Provider Adapter.
func NewHTTPProvider(cfg *config.Configuration, log *logger.Logger, c cache.Cache) *HTTPProvider {
	client := retryablehttp.NewClient()
	client.Logger = log.GetRetryableHTTPLogger()
	client.RetryMax = 3
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.Backoff = exponentialBackoff
	client.HTTPClient.Timeout = time.Duration(cfg.Provider.TimeoutSeconds) * time.Second

	return &HTTPProvider{
		client:   client,
		baseURL:  cfg.Provider.BaseURL,
		testMode: cfg.Provider.TestMode,
		// Throttles how fast the adapter hammers the external provider;
		// distinct from the fixed-window core, which never throttles callers
		// by wall-clock rate (Non-goals: no sliding windows).
		egress:   rate.NewLimiter(rate.Limit(20), 5),
		cache:    c,
		cacheTTL: time.Duration(cfg.Cache.ProviderTTLSeconds) * time.Second,
	}
}

// exponentialBackoff adapts cenkalti/backoff/v4's exponential curve to
// go-retryablehttp's per-attempt Backoff signature.
func exponentialBackoff(min, max time.Duration, attemptNum int, _ *http.Response) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min
	b.MaxInterval = max
	b.Reset()

	var d time.Duration
	for i := 0; i <= attemptNum; i++ {
		d = b.NextBackOff()
	}
	if d == backoff.Stop {
		return max
	}
	return d
}

func (p *HTTPProvider) Lookup(ctx context.Context, userID string) (SubscriptionSnapshot, error) {
	key := cache.GenerateKey(cache.PrefixSubscriptionSnapshot, userID)
	if cached, ok := p.cache.Get(ctx, key); ok {
		if snapshot, ok := cached.(SubscriptionSnapshot); ok {
			return snapshot, nil
		}
	}

	if err := p.egress.Wait(ctx); err != nil {
		return SubscriptionSnapshot{}, ierr.WithError(err).
			WithHint("subscription provider egress throttle was cancelled").
			Mark(ierr.ErrHTTPClient)
	}

	url := fmt.Sprintf("%s/v1/users/%s/entitlements", p.baseURL, userID)
	if p.testMode {
		url += "?test_mode=true"
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return SubscriptionSnapshot{}, ierr.WithError(err).Mark(ierr.ErrHTTPClient)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return SubscriptionSnapshot{}, ierr.WithError(err).
			WithHint("subscription provider request failed").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return NoneSnapshot(), nil
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return SubscriptionSnapshot{}, httpclient.NewError(resp.StatusCode, body)
	}

	var dto httpSnapshotDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return SubscriptionSnapshot{}, ierr.WithError(err).
			WithHint("failed to decode subscription provider response").
			Mark(ierr.ErrHTTPClient)
	}

	snapshot := snapshotFromDTO(dto, p.testMode)
	p.cache.Set(ctx, key, snapshot, p.cacheTTL)
	return snapshot, nil
}

// snapshotFromDTO filters to active, non-sandbox entries (unless
// testMode is set) and takes the earliest purchase date among
// survivors as subscriptionStartedAt (§4.E).
func snapshotFromDTO(dto httpSnapshotDTO, testMode bool) SubscriptionSnapshot {
	now := time.Now().UTC()
	var names []string
	var earliest *time.Time

	for _, e := range dto.Entitlements {
		if e.Sandbox && !testMode {
			continue
		}
		if e.ExpiresAt != nil && e.ExpiresAt.Before(now) {
			continue
		}
		names = append(names, e.Name)
		if earliest == nil || e.PurchaseDate.Before(*earliest) {
			pd := e.PurchaseDate
			earliest = &pd
		}
	}

	if len(names) == 0 {
		return NoneSnapshot()
	}
	return SubscriptionSnapshot{
		Entitlements:          ratelimit.NewEntitlementSet(names...),
		SubscriptionStartedAt: earliest,
	}
}
