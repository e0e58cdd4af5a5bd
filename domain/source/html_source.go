package source

import (
	"context"
	"fmt"
	"net/url"

	"github.com/emergent-company/deathrecord/domain/content"
	"github.com/emergent-company/deathrecord/domain/fetch"
)

// htmlMinContentLength is the minimum-content-length gate for page-scraping
// sources, within the documented 80-200 character range.
const htmlMinContentLength = 150

// urlBuilder produces the page URL a scraping source fetches for an actor,
// typically a search-results or article URL templated on the actor's name.
type urlBuilder func(actor Actor) string

// HTMLSource is the shared implementation for every source that scrapes a
// publicly reachable HTML page rather than calling a JSON API: the
// reference/editorial sites, the scraped news outlets, and DuckDuckGo's
// HTML search all share this shape, differing only in their URL template
// and descriptor.
type HTMLSource struct {
	Base
	fetcher *fetch.HttpFetcher
	cleaner *content.ContentCleaner
	buildURL urlBuilder
	available func() bool
}

// NewHTMLSource builds a scraping source. available may be nil, meaning
// the source has no credential requirement and is always available.
func NewHTMLSource(base Base, fetcher *fetch.HttpFetcher, cleaner *content.ContentCleaner, buildURL urlBuilder, available func() bool) *HTMLSource {
	return &HTMLSource{Base: base, fetcher: fetcher, cleaner: cleaner, buildURL: buildURL, available: available}
}

func (s *HTMLSource) IsAvailable() bool {
	if s.available == nil {
		return true
	}
	return s.available()
}

func (s *HTMLSource) Lookup(ctx context.Context, actor Actor) LookupResult {
	return s.Run(ctx, actor, s.performLookup)
}

func (s *HTMLSource) performLookup(ctx context.Context, actor Actor) LookupResult {
	target := s.buildURL(actor)

	result, err := s.fetcher.Fetch(ctx, target, fetch.Options{
		Timeout:              s.Descriptor().RequestTimeout,
		AllowArchiveFallback: s.Descriptor().SupportsArchiveFallback,
		Headers:              map[string]string{"User-Agent": "deathrecord-enrichment/1.0"},
	})
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
	}

	if result.StatusCode != 200 {
		return LookupResult{ErrKind: MapHTTPStatus(result.StatusCode), ErrMsg: fmt.Sprintf("status %d", result.StatusCode)}
	}

	cleaned, err := s.cleaner.Clean(result.Body, result.ContentType)
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
	}

	if !NameMatches(actor.Name, cleaned.Title) && cleaned.Title != "" {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "title does not match actor name"}
	}

	confidence, kind := GateAndScore(cleaned.Text, htmlMinContentLength)
	if kind != "" {
		return LookupResult{ErrKind: kind}
	}

	entry := SourceEntry{
		Type:             s.Type(),
		ReliabilityTier:  s.Descriptor().Tier,
		ReliabilityScore: s.Descriptor().ReliabilityScore(),
		CostUSD:          s.Descriptor().EstimatedCostPerQuery,
		URL:              result.FinalURL,
		ArticleTitle:     cleaned.Title,
		ContentType:      result.ContentType,
		Confidence:       confidence,
	}

	return LookupResult{
		Entry: entry,
		Biography: &RawBiographySnippet{
			Entry:      entry,
			Text:       cleaned.Text,
			Confidence: confidence,
		},
	}
}

// searchURL is a convenience urlBuilder factory for sources whose page is
// a simple "?q=<name>"-style search or article-lookup endpoint.
func searchURL(base, param string) urlBuilder {
	return func(actor Actor) string {
		q := url.QueryEscape(actor.Name)
		return fmt.Sprintf("%s?%s=%s", base, param, q)
	}
}
