package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultGCTime is how long an unobserved entry survives without being read.
const DefaultGCTime = 5 * time.Minute

// QueryStatus is the lifecycle state of a cache entry.
type QueryStatus string

const (
	QueryStatusIdle    QueryStatus = "idle"
	QueryStatusLoading QueryStatus = "loading"
	QueryStatusError   QueryStatus = "error"
	QueryStatusSuccess QueryStatus = "success"
)

// QueryKey is an ordered tuple of scalars. Two keys address the same entry
// only when their canonical JSON encodings are equal.
type QueryKey []any

// NewQueryKey builds the resource/token key used by the dashboard.
func NewQueryKey(resource, token string) QueryKey {
	return QueryKey{resource, token}
}

func (k QueryKey) String() string {
	b, err := json.Marshal([]any(k))
	if err != nil {
		return fmt.Sprint([]any(k))
	}
	return string(b)
}

// Resource returns the leading element when it is a string.
func (k QueryKey) Resource() string {
	if len(k) == 0 {
		return ""
	}
	s, _ := k[0].(string)
	return s
}

// Scope returns the second element when it is a string. Dashboard keys carry
// the session token there.
func (k QueryKey) Scope() string {
	if len(k) < 2 {
		return ""
	}
	s, _ := k[1].(string)
	return s
}

// QueryFunc produces the value for a key.
type QueryFunc func(ctx context.Context) (any, error)

// QueryOptions tunes a single key.
type QueryOptions struct {
	StaleTime time.Duration
}

// QueryState is a copy of an entry handed to readers.
// Data keeps the last successful value even when Status is error.
type QueryState struct {
	Key            QueryKey    `json:"-"`
	Status         QueryStatus `json:"status"`
	Data           any         `json:"data,omitempty"`
	Err            error       `json:"-"`
	Error          string      `json:"error,omitempty"`
	UpdatedAt      time.Time   `json:"updated_at,omitzero"`
	ErrorUpdatedAt time.Time   `json:"error_updated_at,omitzero"`
	IsRefetching   bool        `json:"is_refetching"`
	IsStale        bool        `json:"is_stale"`
	FetchCount     int         `json:"fetch_count"`
}

// HasData reports whether a successful value was ever stored.
func (s QueryState) HasData() bool {
	return !s.UpdatedAt.IsZero()
}

// QueryClient is a keyed cache that coalesces concurrent producers per key,
// serves fresh values without calling the producer and revalidates stale ones
// in the background.
type QueryClient struct {
	mu        sync.Mutex
	entries   map[string]*queryEntry
	flights   singleflight.Group
	gcTime    time.Duration
	now       func() time.Time
	hook      QueryHook
	telemetry Telemetry
}

// QueryClientOption customizes a QueryClient.
type QueryClientOption func(*QueryClient)

// WithGCTime sets the inactivity horizon for unobserved entries.
func WithGCTime(d time.Duration) QueryClientOption {
	return func(c *QueryClient) {
		if d > 0 {
			c.gcTime = d
		}
	}
}

// WithQueryClock injects the clock used for freshness and eviction.
func WithQueryClock(now func() time.Time) QueryClientOption {
	return func(c *QueryClient) {
		if now != nil {
			c.now = now
		}
	}
}

// WithQueryHook publishes state transitions to hook.
func WithQueryHook(hook QueryHook) QueryClientOption {
	return func(c *QueryClient) {
		c.hook = hook
	}
}

// WithQueryTelemetry records fetches and cache hits.
func WithQueryTelemetry(t Telemetry) QueryClientOption {
	return func(c *QueryClient) {
		c.telemetry = t
	}
}

// NewQueryClient builds an empty client.
func NewQueryClient(opts ...QueryClientOption) *QueryClient {
	c := &QueryClient{
		entries: make(map[string]*queryEntry),
		gcTime:  DefaultGCTime,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.telemetry = normalizeTelemetry(c.telemetry)
	return c
}

type queryEntry struct {
	key            QueryKey
	fn             QueryFunc
	staleTime      time.Duration
	status         QueryStatus
	data           any
	err            error
	updatedAt      time.Time
	errorUpdatedAt time.Time
	fetching       bool
	version        uint64
	fetchCount     int
	observers      int
	lastAccess     time.Time
}

func (e *queryEntry) fresh(now time.Time) bool {
	if e.status != QueryStatusSuccess || e.updatedAt.IsZero() {
		return false
	}
	return now.Sub(e.updatedAt) < e.staleTime
}

func (e *queryEntry) snapshot(now time.Time) QueryState {
	state := QueryState{
		Key:            e.key,
		Status:         e.status,
		Data:           e.data,
		Err:            e.err,
		UpdatedAt:      e.updatedAt,
		ErrorUpdatedAt: e.errorUpdatedAt,
		IsRefetching:   e.fetching && !e.updatedAt.IsZero(),
		IsStale:        !e.fresh(now),
		FetchCount:     e.fetchCount,
	}
	if e.err != nil {
		state.Error = e.err.Error()
	}
	return state
}

func (c *QueryClient) entryLocked(id string, key QueryKey, now time.Time) *queryEntry {
	entry, ok := c.entries[id]
	if !ok {
		entry = &queryEntry{
			key:        append(QueryKey(nil), key...),
			status:     QueryStatusIdle,
			lastAccess: now,
		}
		c.entries[id] = entry
	}
	return entry
}

// Fetch reads key. A fresh success is returned as is. A stale success is
// returned immediately with IsRefetching set while the producer runs in the
// background. Anything else waits for the producer, sharing an in-flight call
// when one exists. If ctx ends first the current state is returned with ctx.Err();
// the producer keeps running and its result is stored.
func (c *QueryClient) Fetch(ctx context.Context, key QueryKey, fn QueryFunc, opts QueryOptions) (QueryState, error) {
	if fn == nil {
		return QueryState{}, fmt.Errorf("dashboard: query %q has no producer", key.Resource())
	}
	id := key.String()
	now := c.now()

	c.mu.Lock()
	entry := c.entryLocked(id, key, now)
	entry.fn = fn
	entry.staleTime = opts.StaleTime
	entry.lastAccess = now
	if entry.fresh(now) {
		state := entry.snapshot(now)
		c.mu.Unlock()
		c.telemetry.Record(ctx, "query.cache_hit", map[string]any{"resource": key.Resource()})
		return state, nil
	}
	seen := entry.version
	revalidate := entry.status == QueryStatusSuccess
	state := entry.snapshot(now)
	c.mu.Unlock()

	if revalidate {
		c.flights.DoChan(id, c.flight(ctx, id, seen))
		state.IsRefetching = true
		return state, nil
	}
	return c.await(ctx, id, seen)
}

// Refetch forces a new producer call for a known key and waits for it.
// It joins a call that is already in flight.
func (c *QueryClient) Refetch(ctx context.Context, key QueryKey) (QueryState, error) {
	id := key.String()
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok || entry.fn == nil {
		c.mu.Unlock()
		return QueryState{}, fmt.Errorf("%w: %s", ErrQueryNotFound, key.Resource())
	}
	entry.lastAccess = c.now()
	seen := entry.version
	c.mu.Unlock()
	return c.await(ctx, id, seen)
}

// RefetchStale refetches every matching entry that is not fresh and waits for
// all of them. It backs refetch-on-focus. A nil match selects every entry.
func (c *QueryClient) RefetchStale(ctx context.Context, match func(QueryKey) bool) (int, error) {
	type target struct {
		id   string
		seen uint64
	}
	now := c.now()
	c.mu.Lock()
	targets := make([]target, 0, len(c.entries))
	for id, entry := range c.entries {
		if entry.fn == nil || entry.fresh(now) {
			continue
		}
		if match != nil && !match(entry.key) {
			continue
		}
		entry.lastAccess = now
		targets = append(targets, target{id: id, seen: entry.version})
	}
	c.mu.Unlock()

	var g errgroup.Group
	for _, t := range targets {
		g.Go(func() error {
			_, err := c.await(ctx, t.id, t.seen)
			return err
		})
	}
	return len(targets), g.Wait()
}

// State returns a copy of the entry for key.
func (c *QueryClient) State(key QueryKey) (QueryState, bool) {
	return c.stateByID(key.String())
}

func (c *QueryClient) stateByID(id string) (QueryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[id]
	if !ok {
		return QueryState{Status: QueryStatusIdle, IsStale: true}, false
	}
	return entry.snapshot(c.now()), true
}

// RemoveQueries drops matching entries. In-flight results for them are discarded.
func (c *QueryClient) RemoveQueries(match func(QueryKey) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, entry := range c.entries {
		if match != nil && !match(entry.key) {
			continue
		}
		delete(c.entries, id)
		c.flights.Forget(id)
		removed++
	}
	return removed
}

// Evict removes entries that have no observers, are not fetching and were not
// read within the GC time.
func (c *QueryClient) Evict() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, entry := range c.entries {
		if entry.observers > 0 || entry.fetching {
			continue
		}
		if now.Sub(entry.lastAccess) < c.gcTime {
			continue
		}
		delete(c.entries, id)
		c.flights.Forget(id)
		removed++
	}
	if removed > 0 {
		c.telemetry.Record(context.Background(), "query.evicted", map[string]any{"count": removed})
	}
	return removed
}

// StartGC runs Evict every interval until ctx is done.
func (c *QueryClient) StartGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.Evict()
			}
		}
	}()
}

// Len reports the number of cached entries.
func (c *QueryClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *QueryClient) await(ctx context.Context, id string, seen uint64) (QueryState, error) {
	ch := c.flights.DoChan(id, c.flight(ctx, id, seen))
	select {
	case res := <-ch:
		if res.Err != nil {
			return QueryState{}, res.Err
		}
		state := res.Val.(QueryState)
		return state, state.Err
	case <-ctx.Done():
		state, _ := c.stateByID(id)
		return state, ctx.Err()
	}
}

func (c *QueryClient) flight(ctx context.Context, id string, seen uint64) func() (any, error) {
	detached := context.WithoutCancel(ctx)
	return func() (any, error) {
		return c.execute(detached, id, seen)
	}
}

// execute runs the producer once. A caller that observed version seen and
// arrives after a newer result was stored gets that result instead.
func (c *QueryClient) execute(ctx context.Context, id string, seen uint64) (any, error) {
	c.mu.Lock()
	entry, ok := c.entries[id]
	if !ok || entry.fn == nil {
		c.mu.Unlock()
		return nil, ErrQueryNotFound
	}
	now := c.now()
	if entry.version > seen {
		state := entry.snapshot(now)
		c.mu.Unlock()
		return state, nil
	}
	fn := entry.fn
	entry.fetching = true
	entry.fetchCount++
	if entry.updatedAt.IsZero() {
		entry.status = QueryStatusLoading
	}
	started := entry.snapshot(now)
	c.mu.Unlock()
	c.publish(ctx, started)

	data, err := fn(ctx)

	c.mu.Lock()
	finished := c.now()
	entry.fetching = false
	entry.version++
	entry.lastAccess = finished
	if err != nil {
		entry.status = QueryStatusError
		entry.err = err
		entry.errorUpdatedAt = finished
	} else {
		entry.status = QueryStatusSuccess
		entry.data = data
		entry.err = nil
		entry.updatedAt = finished
	}
	state := entry.snapshot(finished)
	current := c.entries[id] == entry
	c.mu.Unlock()

	c.telemetry.Record(ctx, "query.fetch", map[string]any{
		"resource":    state.Key.Resource(),
		"status":      string(state.Status),
		"duration_ms": finished.Sub(now).Milliseconds(),
	})
	if current {
		c.publish(ctx, state)
	}
	return state, nil
}

func (c *QueryClient) publish(ctx context.Context, state QueryState) {
	if c.hook == nil {
		return
	}
	event := QueryEvent{
		Resource:     state.Key.Resource(),
		Status:       state.Status,
		IsRefetching: state.IsRefetching,
		UpdatedAt:    state.UpdatedAt,
		Error:        state.Error,
		Scope:        state.Key.Scope(),
	}
	if err := c.hook.QueryUpdated(ctx, event); err != nil {
		c.telemetry.Record(ctx, "query.hook_failed", map[string]any{
			"resource": event.Resource,
			"error":    err.Error(),
		})
	}
}

// QueryObserver keeps an entry alive while open.
type QueryObserver struct {
	client *QueryClient
	key    QueryKey
	fn     QueryFunc
	opts   QueryOptions
	once   sync.Once
}

// Observe registers an observer for key. Observed entries are never evicted.
func (c *QueryClient) Observe(key QueryKey, fn QueryFunc, opts QueryOptions) *QueryObserver {
	now := c.now()
	c.mu.Lock()
	entry := c.entryLocked(key.String(), key, now)
	entry.observers++
	if fn != nil {
		entry.fn = fn
		entry.staleTime = opts.StaleTime
	}
	c.mu.Unlock()
	return &QueryObserver{client: c, key: key, fn: fn, opts: opts}
}

// Fetch reads the observed key.
func (o *QueryObserver) Fetch(ctx context.Context) (QueryState, error) {
	return o.client.Fetch(ctx, o.key, o.fn, o.opts)
}

// Close releases the observer. It is safe to call more than once.
func (o *QueryObserver) Close() {
	o.once.Do(func() {
		c := o.client
		c.mu.Lock()
		defer c.mu.Unlock()
		if entry, ok := c.entries[o.key.String()]; ok && entry.observers > 0 {
			entry.observers--
			entry.lastAccess = c.now()
		}
	})
}
