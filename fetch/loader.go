package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bluesky-social/indigo/atproto/syntax"
	"github.com/bluesky-social/threadview/thread"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("threadview/fetch")

// Caching, coalescing [thread.Source] on top of a [Fetcher].
type Loader struct {
	Inner  Fetcher
	Cache  Cache
	HitTTL time.Duration
	ErrTTL time.Duration
	Logger *slog.Logger

	lookupChans sync.Map
}

type lookup struct {
	done  chan struct{}
	entry *Entry
}

var _ thread.Source = (*Loader)(nil)

// Capacity and TTLs are for the default in-process cache; swap `Cache` for Redis after construction if desired.
func NewLoader(inner Fetcher, capacity int, hitTTL, errTTL time.Duration) *Loader {
	return &Loader{
		Inner:  inner,
		Cache:  NewMemoryCache(capacity, hitTTL),
		HitTTL: hitTTL,
		ErrTTL: errTTL,
		Logger: slog.Default().With("system", "loader"),
	}
}

func (l *Loader) isStale(e *Entry) bool {
	return e.Err != "" && time.Since(e.Updated) > l.ErrTTL
}

func (l *Loader) LoadPost(ctx context.Context, service string, uri syntax.ATURI, cid string) (*thread.Post, error) {
	key := "post|" + service + "|" + uri.String()
	if cid != "" {
		key += "|" + cid
	}
	e, err := l.load(ctx, "record", key, func(ctx context.Context) (*Entry, error) {
		rec, err := l.Inner.GetRecord(ctx, service, uri, cid)
		if err != nil {
			return nil, err
		}
		return &Entry{Record: rec}, nil
	})
	if err != nil {
		return nil, err
	}
	if e.Record == nil {
		return nil, fmt.Errorf("cache entry for %s has no record", uri)
	}
	return DecodePost(uri, e.Record)
}

func (l *Loader) LoadProfile(ctx context.Context, service, identifier string) (*thread.Profile, error) {
	key := "profile|" + service + "|" + identifier
	e, err := l.load(ctx, "profile", key, func(ctx context.Context) (*Entry, error) {
		prof, err := l.Inner.GetProfile(ctx, service, identifier)
		if err != nil {
			return nil, err
		}
		return &Entry{Profile: prof}, nil
	})
	if err != nil {
		return nil, err
	}
	if e.Profile == nil {
		return nil, fmt.Errorf("cache entry for %s has no profile", identifier)
	}
	return DecodeProfile(e.Profile)
}

// Returns the entry for a key, from cache or by calling `fetch`. Concurrent misses on the same key share one fetch.
func (l *Loader) load(ctx context.Context, kind, key string, fetch func(context.Context) (*Entry, error)) (*Entry, error) {
	e, ok := l.Cache.Get(ctx, key)
	if ok && !l.isStale(e) {
		cacheHits.WithLabelValues(kind).Inc()
		return e, entryErr(e)
	}
	cacheMisses.WithLabelValues(kind).Inc()

	// Coalesce multiple requests for the same key
	res := &lookup{done: make(chan struct{})}
	val, loaded := l.lookupChans.LoadOrStore(key, res)
	if loaded {
		requestsCoalesced.WithLabelValues(kind).Inc()
		other := val.(*lookup)
		select {
		case <-other.done:
			if other.entry == nil {
				// the leading caller's context ended before its fetch did; fetch again under ours
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				return l.load(ctx, kind, key, fetch)
			}
			return other.entry, entryErr(other.entry)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Cleanup the coalesce map and release waiters
	defer func() {
		l.lookupChans.Delete(key)
		close(res.done)
	}()

	ctx, span := tracer.Start(ctx, "fetch."+kind, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("key", key))

	e, err := fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		// cancellation is the caller's problem, not a property of the record
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		e = &Entry{
			Err:      err.Error(),
			NotFound: errors.Is(err, thread.ErrNotFound),
		}
	}
	e.Updated = time.Now()
	res.entry = e

	ttl := l.HitTTL
	if e.Err != "" {
		ttl = l.ErrTTL
	}
	if err := l.Cache.Set(ctx, key, e, ttl); err != nil {
		l.logger().Error("record cache write failed", "key", key, "err", err)
	}
	return e, entryErr(e)
}

func (l *Loader) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

// reconstitutes an error from a cache entry
func entryErr(e *Entry) error {
	if e.Err == "" {
		return nil
	}
	return &cachedError{msg: e.Err, notFound: e.NotFound}
}

type cachedError struct {
	msg      string
	notFound bool
}

func (e *cachedError) Error() string {
	return e.msg
}

func (e *cachedError) Is(target error) bool {
	return e.notFound && target == thread.ErrNotFound
}
