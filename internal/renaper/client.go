package renaper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/registro-bienes-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/registro-bienes-backend/pkg/errors"
	"github.com/angelmondragon/registro-bienes-backend/pkg/logger"
	"github.com/angelmondragon/registro-bienes-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/registro-bienes-backend/pkg/redis"
)

const (
	cacheKind          = "renaper"
	responseReadLimit  = 64 << 10
	defaultRetryWait   = 200 * time.Millisecond
	defaultBreakerTrip = 5
)

// Lookup results, used as metric labels.
const (
	resultFound      = "found"
	resultNotFound   = "not_found"
	resultConnection = "connection_error"
	resultInvalid    = "invalid"
)

// Client queries the national identity registry. Each lookup asks both sex
// partitions concurrently and waits for both before resolving.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	timeout    time.Duration
	maxRetries uint64
	retryWait  time.Duration
	breaker    *gobreaker.CircuitBreaker
	cache      pkgredis.Cache
	cacheTTL   time.Duration
	metrics    *metrics.GatewayMetrics
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache stores found records for the configured TTL.
func WithCache(cache pkgredis.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithMetrics records lookup outcomes and partition latency.
func WithMetrics(m *metrics.GatewayMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger used for partition warnings.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		if logg != nil {
			c.logg = logg
		}
	}
}

// NewClient builds the gateway client from config.
func NewClient(cfg config.RenaperConfig, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("renaper base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retryWait := cfg.RetryBackoff
	if retryWait <= 0 {
		retryWait = defaultRetryWait
	}
	trip := cfg.BreakerFailures
	if trip == 0 {
		trip = defaultBreakerTrip
	}

	c := &Client{
		httpClient: &http.Client{},
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		retryWait:  retryWait,
		cacheTTL:   cfg.CacheTTL,
		logg:       logger.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "renaper",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		// Only an unreachable gateway counts against the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || !pkgerrors.Is(err, pkgerrors.CodeConnection)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logg.Warn(c.logg.WithFields(context.Background(), map[string]any{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}), "renaper.breaker_state_changed")
		},
	})
	return c, nil
}

// LookupPerson resolves a document number into a person record. It returns a
// NOT_FOUND error when both partitions answer without data and a
// CONNECTION_ERROR when absence cannot be concluded.
func (c *Client) LookupPerson(ctx context.Context, rawDocument string) (*PersonRecord, error) {
	doc, err := NormalizeDocument(rawDocument)
	if err != nil {
		c.metrics.IncLookup(resultInvalid)
		return nil, err
	}

	if record := c.cached(ctx, doc); record != nil {
		c.metrics.IncLookup(resultFound)
		return record, nil
	}

	out, err := c.breaker.Execute(func() (any, error) {
		return c.resolve(ctx, doc)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = pkgerrors.Wrap(pkgerrors.CodeConnection, err, "identity gateway unavailable")
		}
		c.metrics.IncLookup(resultLabel(err))
		return nil, err
	}

	record := out.(*PersonRecord)
	c.metrics.IncLookup(resultFound)
	c.store(ctx, doc, record)
	return record, nil
}

type partition struct {
	sex    string
	person *PersonRecord
	err    error
}

func (c *Client) resolve(ctx context.Context, doc string) (*PersonRecord, error) {
	results := []*partition{{sex: SexMale}, {sex: SexFemale}}

	// Partition failures are kept in the results, so the group never cancels
	// the sibling request.
	var g errgroup.Group
	for _, p := range results {
		g.Go(func() error {
			p.person, p.err = c.fetch(ctx, doc, p.sex)
			return nil
		})
	}
	_ = g.Wait()

	male, female := results[0], results[1]
	for _, p := range results {
		if p.person == nil {
			continue
		}
		for _, other := range results {
			if other.err != nil {
				c.logg.Warn(c.logg.WithFields(ctx, map[string]any{
					"partition": other.sex,
					"error":     other.err.Error(),
				}), "renaper.partition_failed")
			}
		}
		return p.person, nil
	}

	switch {
	case male.err != nil || female.err != nil:
		cause := multierr.Combine(male.err, female.err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeConnection, cause, "identity gateway unreachable").
			WithDetails(map[string]any{"particiones_fallidas": len(multierr.Errors(cause))})
	default:
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "person not found").
			WithDetails(map[string]any{"nroDoc": doc})
	}
}

// errUpstreamStatus marks non-2xx answers.
type errUpstreamStatus struct {
	status int
}

func (e errUpstreamStatus) Error() string {
	return fmt.Sprintf("gateway responded %d", e.status)
}

// fetch queries one partition. A nil record with a nil error means the
// partition answered without data.
func (c *Client) fetch(ctx context.Context, doc, sex string) (*PersonRecord, error) {
	started := time.Now()
	defer func() { c.metrics.ObserveCall(sex, time.Since(started)) }()

	var record *PersonRecord
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewConstant(c.retryWait))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		rec, err := c.call(ctx, doc, sex)
		if err != nil {
			var status errUpstreamStatus
			if errors.As(err, &status) && status.status < http.StatusInternalServerError && status.status != http.StatusTooManyRequests {
				return err
			}
			return retry.RetryableError(err)
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("partition %s: %w", sex, err)
	}
	return record, nil
}

func (c *Client) call(ctx context.Context, doc, sex string) (*PersonRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(doc, sex), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, responseReadLimit))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errUpstreamStatus{status: resp.StatusCode}
	}

	var payload upstreamPerson
	if err := json.Unmarshal(body, &payload); err != nil || !payload.hasData() {
		return nil, nil
	}
	return payload.record(sex), nil
}

func (c *Client) buildURL(doc, sex string) string {
	q := url.Values{}
	q.Set("nroDoc", doc)
	q.Set("sexo", sex)
	return c.baseURL + "/personas?" + q.Encode()
}

func (c *Client) cached(ctx context.Context, doc string) *PersonRecord {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.Get(ctx, c.cache.CacheKey(cacheKind, doc))
	if err != nil {
		if !pkgredis.IsMiss(err) {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "renaper.cache_read_failed")
		}
		c.metrics.IncCache(false)
		return nil
	}
	var record PersonRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		c.metrics.IncCache(false)
		return nil
	}
	c.metrics.IncCache(true)
	return &record
}

func (c *Client) store(ctx context.Context, doc string, record *PersonRecord) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.CacheKey(cacheKind, doc), string(raw), c.cacheTTL); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "renaper.cache_write_failed")
	}
}

func resultLabel(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeNotFound:
		return resultNotFound
	case pkgerrors.CodeConnection:
		return resultConnection
	default:
		return resultInvalid
	}
}
