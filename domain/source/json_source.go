package source

import (
	"context"
	"fmt"

	"github.com/emergent-company/deathrecord/domain/fetch"
)

// jsonMinContentLength is the minimum-content-length gate for API-backed
// sources, within the documented 80-200 character range; API payloads
// tend to be denser than scraped HTML so the gate sits lower.
const jsonMinContentLength = 80

// jsonParser turns a fetched API response body into a snippet, or a
// failure LookupResult when the payload carries no usable match (e.g. a
// SPARQL query with zero bindings, or a search API with zero hits).
type jsonParser func(actor Actor, body []byte) LookupResult

// JSONSource is the shared implementation for every source that calls a
// JSON API rather than scraping an HTML page: structured-data, search,
// archival, and book-corpus sources all share this shape, differing only
// in their request URL and response parser.
type JSONSource struct {
	Base
	fetcher   *fetch.HttpFetcher
	buildURL  urlBuilder
	parse     jsonParser
	headers   map[string]string
	available func() bool
}

// NewJSONSource builds an API-backed source. available may be nil,
// meaning the source has no credential requirement.
func NewJSONSource(base Base, fetcher *fetch.HttpFetcher, buildURL urlBuilder, parse jsonParser, available func() bool) *JSONSource {
	return &JSONSource{Base: base, fetcher: fetcher, buildURL: buildURL, parse: parse, available: available}
}

// WithHeaders attaches fixed request headers (e.g. an API key passed as a
// header rather than a query parameter) and returns the same instance for
// chaining at construction time.
func (s *JSONSource) WithHeaders(headers map[string]string) *JSONSource {
	s.headers = headers
	return s
}

func (s *JSONSource) IsAvailable() bool {
	if s.available == nil {
		return true
	}
	return s.available()
}

func (s *JSONSource) Lookup(ctx context.Context, actor Actor) LookupResult {
	return s.Run(ctx, actor, s.performLookup)
}

func (s *JSONSource) performLookup(ctx context.Context, actor Actor) LookupResult {
	target := s.buildURL(actor)

	headers := map[string]string{"User-Agent": "deathrecord-enrichment/1.0", "Accept": "application/json"}
	for k, v := range s.headers {
		headers[k] = v
	}

	result, err := s.fetcher.Fetch(ctx, target, fetch.Options{
		Timeout: s.Descriptor().RequestTimeout,
		Headers: headers,
	})
	if err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: err.Error()}
	}

	if result.StatusCode != 200 {
		return LookupResult{ErrKind: MapAPIStatus(result.StatusCode), ErrMsg: fmt.Sprintf("status %d", result.StatusCode)}
	}

	parsed := s.parse(actor, result.Body)
	if !parsed.Success() {
		return parsed
	}

	parsed.Entry.Type = s.Type()
	parsed.Entry.ReliabilityTier = s.Descriptor().Tier
	parsed.Entry.ReliabilityScore = s.Descriptor().ReliabilityScore()
	parsed.Entry.CostUSD = s.Descriptor().EstimatedCostPerQuery
	if parsed.Entry.URL == "" {
		parsed.Entry.URL = result.FinalURL
	}
	if parsed.Biography != nil {
		parsed.Biography.Entry = parsed.Entry
	}
	if parsed.Death != nil {
		parsed.Death.Entry = parsed.Entry
	}
	return parsed
}

// textSnippet builds a successful LookupResult carrying a biography
// snippet from extracted text, gating on minimum length and scoring
// biographical confidence the same way HTMLSource does.
func textSnippet(query, text string) LookupResult {
	confidence, kind := GateAndScore(text, jsonMinContentLength)
	if kind != "" {
		return LookupResult{ErrKind: kind}
	}
	entry := SourceEntry{Query: query, Confidence: confidence}
	return LookupResult{
		Entry: entry,
		Biography: &RawBiographySnippet{
			Text:       text,
			Confidence: confidence,
		},
	}
}
