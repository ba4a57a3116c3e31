// Package cache keeps the last successful response of every query and
// shares a single in-flight fetch between concurrent readers of a key.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"recipe-planner/internal/logger"
)

// State describes a key as seen by readers.
type State struct {
	Cached    bool
	Loading   bool
	FetchedAt time.Time
	// Err is the error of the most recent fetch, nil once a fetch succeeds.
	Err error
}

type keyState struct {
	gen       uint64
	flights   int
	waiters   int
	err       error
	fetchedAt time.Time
}

// Client is the query cache shared by every front-end of a session.
type Client struct {
	store     Store
	namespace string
	maxAge    time.Duration
	now       func() time.Time
	log       *logger.Logger

	group singleflight.Group

	mu   sync.Mutex
	keys map[string]*keyState
}

type Option func(*Client)

// WithNamespace scopes every key, so one store can serve several users.
func WithNamespace(ns string) Option {
	return func(c *Client) { c.namespace = ns }
}

// WithMaxAge makes entries older than d count as misses. Zero keeps entries
// until they are invalidated.
func WithMaxAge(d time.Duration) Option {
	return func(c *Client) { c.maxAge = d }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(store Store, opts ...Option) *Client {
	c := &Client{
		store: store,
		now:   time.Now,
		log:   logger.Nop(),
		keys:  make(map[string]*keyState),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Namespace returns the namespace this client was built with.
func (c *Client) Namespace() string { return c.namespace }

func (c *Client) storeKey(k Key) string {
	if c.namespace == "" {
		return k.String()
	}
	return c.namespace + "/" + k.String()
}

// Query returns the cached value for key, or runs fetch once for all
// concurrent callers on a miss. A successful result is stored unless the key
// was invalidated while the fetch was running. Errors from fetch are returned
// unchanged. A caller whose ctx ends stops waiting and gets ctx.Err(); the
// shared fetch keeps running for the others.
func Query[T any](ctx context.Context, c *Client, key Key, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	sk := c.storeKey(key)

	if e, ok := c.lookup(ctx, sk); ok {
		var v T
		if err := json.Unmarshal(e.Data, &v); err == nil {
			c.log.Debug("cache hit", "key", sk)
			return v, nil
		}
		c.log.Warn("dropping undecodable cache entry", "key", sk)
		if err := c.store.Delete(ctx, sk); err != nil {
			c.log.Warn("failed to drop cache entry", "key", sk, "error", err)
		}
	}

	raw, err := c.load(ctx, sk, func(ctx context.Context) (json.RawMessage, error) {
		v, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache: encode %s: %w", key, err)
		}
		return data, nil
	})
	if err != nil {
		return zero, err
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, fmt.Errorf("cache: decode %s: %w", key, err)
	}
	return v, nil
}

// Peek returns the last stored value for key without fetching, ignoring
// MaxAge. ok is false when nothing is stored.
func Peek[T any](ctx context.Context, c *Client, key Key) (v T, ok bool) {
	e, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil {
		return v, false
	}
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return v, false
	}
	return v, true
}

// Mutate runs mutation and, once it has succeeded, invalidates every listed
// key before returning. A failed mutation invalidates nothing.
func Mutate[T any](ctx context.Context, c *Client, mutation func(context.Context) (T, error), invalidates ...Key) (T, error) {
	v, err := mutation(ctx)
	if err != nil {
		return v, err
	}
	if err := c.Invalidate(context.WithoutCancel(ctx), invalidates...); err != nil {
		return v, err
	}
	return v, nil
}

// Invalidate drops the stored entries for keys. Fetches already running for
// them finish but their results are not stored, and the next reader starts a
// new fetch.
func (c *Client) Invalidate(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	sks := make([]string, 0, len(keys))
	c.mu.Lock()
	for _, k := range keys {
		sk := c.storeKey(k)
		c.stateLocked(sk).gen++
		c.group.Forget(sk)
		sks = append(sks, sk)
	}
	c.mu.Unlock()

	c.log.Debug("cache invalidate", "keys", sks)
	if err := c.store.Delete(ctx, sks...); err != nil {
		return fmt.Errorf("failed to invalidate %v: %w", sks, err)
	}
	return nil
}

// Clear drops every entry of this client's namespace. Used on sign-out.
func (c *Client) Clear(ctx context.Context) error {
	c.mu.Lock()
	for sk, st := range c.keys {
		st.gen++
		st.err = nil
		st.fetchedAt = time.Time{}
		c.group.Forget(sk)
	}
	c.mu.Unlock()

	prefix := ""
	if c.namespace != "" {
		prefix = c.namespace + "/"
	}
	c.log.Debug("cache clear", "namespace", c.namespace)
	if err := c.store.DeletePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// State reports whether key is cached, loading or failed.
func (c *Client) State(ctx context.Context, key Key) State {
	sk := c.storeKey(key)
	var s State
	c.mu.Lock()
	if st, ok := c.keys[sk]; ok {
		s.Loading = st.flights > 0
		s.Err = st.err
		s.FetchedAt = st.fetchedAt
	}
	c.mu.Unlock()

	if e, err := c.store.Get(ctx, sk); err == nil {
		s.Cached = true
		s.FetchedAt = e.FetchedAt
	}
	return s
}

func (c *Client) lookup(ctx context.Context, sk string) (Entry, bool) {
	e, err := c.store.Get(ctx, sk)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warn("cache store read failed", "key", sk, "error", err)
		}
		return Entry{}, false
	}
	if c.maxAge > 0 && c.now().Sub(e.FetchedAt) > c.maxAge {
		c.log.Debug("cache entry expired", "key", sk, "fetched_at", e.FetchedAt)
		return Entry{}, false
	}
	return e, true
}

func (c *Client) load(ctx context.Context, sk string, fetch func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.stateLocked(sk).waiters++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.stateLocked(sk).waiters--
		c.mu.Unlock()
	}()

	ch := c.group.DoChan(sk, func() (interface{}, error) {
		// A flight that finished between our store miss and this call has
		// already stored the value.
		if e, ok := c.lookup(context.WithoutCancel(ctx), sk); ok {
			c.log.Debug("cache hit after miss", "key", sk)
			return e.Data, nil
		}
		gen := c.begin(sk)
		c.log.Debug("cache fetch", "key", sk)
		raw, err := fetch(context.WithoutCancel(ctx))
		c.finish(sk, gen, raw, err)
		return raw, err
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

func (c *Client) begin(sk string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stateLocked(sk)
	st.flights++
	return st.gen
}

// finish records the outcome of a fetch. The write happens under c.mu so an
// Invalidate cannot slip between the generation check and the store.
func (c *Client) finish(sk string, gen uint64, raw json.RawMessage, fetchErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.stateLocked(sk)
	st.flights--
	if st.gen != gen {
		c.log.Debug("discarding fetch result for invalidated key", "key", sk)
		return
	}
	st.err = fetchErr
	if fetchErr != nil {
		c.log.Debug("cache fetch failed", "key", sk, "error", fetchErr)
		return
	}

	now := c.now()
	if err := c.store.Set(context.Background(), sk, Entry{Data: raw, FetchedAt: now}); err != nil {
		c.log.Warn("cache store write failed", "key", sk, "error", err)
		return
	}
	st.fetchedAt = now
}

// waiting reports how many callers are blocked on the fetch for sk.
func (c *Client) waiting(sk string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.keys[sk]; ok {
		return st.waiters
	}
	return 0
}

func (c *Client) stateLocked(sk string) *keyState {
	st, ok := c.keys[sk]
	if !ok {
		st = &keyState{}
		c.keys[sk] = st
	}
	return st
}
