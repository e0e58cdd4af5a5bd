package source

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/deathrecord/domain/cache"
	"github.com/emergent-company/deathrecord/pkg/logger"
	"github.com/emergent-company/deathrecord/pkg/tracing"
)

// cachedResult is the JSON form of a LookupResult persisted in the cache,
// since domain/cache is deliberately byte-oriented.
type cachedResult struct {
	Entry     SourceEntry          `json:"entry"`
	Biography *RawBiographySnippet `json:"biography,omitempty"`
	Death     *RawDeathSnippet     `json:"death,omitempty"`
	ErrKind   ErrorKind            `json:"errKind,omitempty"`
	ErrMsg    string               `json:"errMsg,omitempty"`
}

// Base implements the template method every concrete source wraps its
// performLookup call in: cache probe, cooperative rate limiting, a
// timeout-bounded call, and cache store of successful or definitively
// failed results. Concrete sources embed Base and call Run from their
// Lookup method.
type Base struct {
	desc   Descriptor
	cache  cache.Cache
	log    *slog.Logger
	ttl    time.Duration
	negTTL time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// NewBase builds the shared template-method state for one source
// instance. ttl/negTTL control how long successful vs definitively-failed
// results are cached.
func NewBase(desc Descriptor, c cache.Cache, log *slog.Logger, ttl, negTTL time.Duration) Base {
	return Base{
		desc:   desc,
		cache:  c,
		log:    log.With(logger.Scope("source"), slog.String("source", string(desc.Type))),
		ttl:    ttl,
		negTTL: negTTL,
	}
}

func (b *Base) Descriptor() Descriptor { return b.desc }
func (b *Base) Name() string           { return b.desc.Name }
func (b *Base) Type() Type             { return b.desc.Type }

// perform is the signature concrete sources implement: the single network
// call this source makes, unaware of caching, rate limiting, or timeouts.
type perform func(ctx context.Context, actor Actor) LookupResult

// Run executes the full template method around fn: cache probe, rate
// limit, timeout-bounded dispatch, and cache store.
func (b *Base) Run(ctx context.Context, actor Actor, fn perform) LookupResult {
	ctx, span := tracing.Start(ctx, "source.lookup",
		attribute.String("enrichcore.source.type", string(b.desc.Type)),
		attribute.String("enrichcore.actor.id", actor.ID),
	)
	defer span.End()

	key := b.cacheKey(actor)

	if cached, ok := b.probeCache(ctx, key); ok {
		return cached
	}

	if err := b.waitTurn(ctx); err != nil {
		return LookupResult{ErrKind: ErrorTimeout, ErrMsg: err.Error()}
	}

	callCtx := ctx
	var cancel context.CancelFunc
	if b.desc.RequestTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.desc.RequestTimeout)
		defer cancel()
	}

	result := fn(callCtx, actor)
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !result.Success() {
		result = LookupResult{ErrKind: ErrorTimeout, ErrMsg: "request timeout exceeded"}
	}
	if result.Success() && result.Entry.RetrievedAt.IsZero() {
		result.Entry.RetrievedAt = time.Now()
		if result.Biography != nil {
			result.Biography.Entry.RetrievedAt = result.Entry.RetrievedAt
		}
		if result.Death != nil {
			result.Death.Entry.RetrievedAt = result.Entry.RetrievedAt
		}
	}

	b.storeCache(ctx, key, result)
	return result
}

func (b *Base) cacheKey(actor Actor) string {
	id := actor.ID
	if id == "" {
		id = actor.Name
	}
	return cache.Key("enrichcore", string(b.desc.Type), id)
}

func (b *Base) probeCache(ctx context.Context, key string) (LookupResult, bool) {
	raw, found, err := b.cache.Get(ctx, key)
	if err != nil || !found {
		return LookupResult{}, false
	}

	var cr cachedResult
	if err := json.Unmarshal(raw, &cr); err != nil {
		return LookupResult{}, false
	}

	return LookupResult{
		Entry:     cr.Entry,
		Biography: cr.Biography,
		Death:     cr.Death,
		ErrKind:   cr.ErrKind,
		ErrMsg:    cr.ErrMsg,
	}, true
}

// isTransient reports whether an error kind reflects a momentary upstream
// condition that a later retry might resolve, as opposed to a durable
// fact about this actor/source pairing worth caching.
func isTransient(kind ErrorKind) bool {
	switch kind {
	case ErrorRateLimited, ErrorTimeout, ErrorUpstreamError:
		return true
	default:
		return false
	}
}

func (b *Base) storeCache(ctx context.Context, key string, result LookupResult) {
	if result.ErrKind != "" && isTransient(result.ErrKind) {
		return
	}

	cr := cachedResult{
		Entry:     result.Entry,
		Biography: result.Biography,
		Death:     result.Death,
		ErrKind:   result.ErrKind,
		ErrMsg:    result.ErrMsg,
	}
	raw, err := json.Marshal(cr)
	if err != nil {
		return
	}

	ttl := b.ttl
	if result.ErrKind != "" {
		ttl = b.negTTL
	}
	if err := b.cache.Set(ctx, key, raw, ttl); err != nil {
		b.log.Warn("cache store failed", logger.Error(err))
	}
}

// waitTurn blocks cooperatively until minDelay has elapsed since the last
// call this instance made, without busy-waiting or pinning a goroutine.
func (b *Base) waitTurn(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	wait := time.Duration(0)
	if !b.lastCall.IsZero() {
		elapsed := time.Since(b.lastCall)
		if elapsed < b.desc.MinDelay {
			wait = b.desc.MinDelay - elapsed
		}
	}
	b.mu.Unlock()

	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	b.mu.Lock()
	b.lastCall = time.Now()
	b.mu.Unlock()
	return nil
}

// GateAndScore applies the minimum-content-length gate and computes
// biographical confidence for cleaned text, returning the failure kind
// when the gate rejects it.
func GateAndScore(text string, minLength int) (float64, ErrorKind) {
	if len(text) < minLength {
		return 0, ErrorContentTooShort
	}
	confidence := CalculateBiographicalConfidence(text)
	if confidence == 0 {
		return 0, ErrorContentIrrelevant
	}
	return confidence, ""
}
