// Package source implements the uniform Source contract and its ~25
// concrete lookups: the boundary between the orchestrator and every
// external encyclopedia, news archive, book corpus, search engine, and
// grounded-search LLM this system draws from.
package source

import (
	"context"
	"time"
)

// Type is a stable identifier for one concrete source, used in joins and
// telemetry. It never changes once assigned.
type Type string

const (
	TypeWikidata        Type = "wikidata"
	TypeWikipedia       Type = "wikipedia"
	TypeBritannica      Type = "britannica"
	TypeBiographyCom    Type = "biography_com"
	TypeSmithsonian     Type = "smithsonian"
	TypeHistory         Type = "history"
	TypePeople          Type = "people"
	TypeBBC             Type = "bbc"
	TypeNYT             Type = "nyt"
	TypeGuardian        Type = "guardian"
	TypeAP              Type = "ap"
	TypeVariety         Type = "variety"
	TypeTMZ             Type = "tmz"
	TypeIMDbBio         Type = "imdb_bio"
	TypeGoogleCSE       Type = "google_cse"
	TypeBing            Type = "bing"
	TypeDuckDuckGo      Type = "duckduckgo"
	TypeBrave           Type = "brave"
	TypeInternetArchive Type = "internet_archive"
	TypeChroniclingAm   Type = "chronicling_america"
	TypeTrove           Type = "trove"
	TypeEuropeana       Type = "europeana"
	TypeGoogleBooks     Type = "google_books"
	TypeOpenLibrary     Type = "open_library"
	TypeIABooks         Type = "ia_books"
	TypeGeminiGrounded  Type = "gemini_grounded"
	TypeClaudeGrounded  Type = "claude_grounded"
)

// Family is the coarse provenance grouping the early-stop rule counts
// against, not an inheritance relation. Two sources sharing a family (e.g.
// Wikidata and Wikipedia both "wikimedia") count as one qualifying family.
type Family string

const (
	FamilyWikimedia     Family = "wikimedia"
	FamilyBritannica    Family = "britannica"
	FamilyCompilation   Family = "compilation"
	FamilyTier1News     Family = "tier1_news"
	FamilyTradePress    Family = "trade_press"
	FamilyTabloid       Family = "tabloid"
	FamilyFilmography   Family = "filmography"
	FamilyWebSearch     Family = "web_search"
	FamilyArchival      Family = "archival"
	FamilyBookCorpus    Family = "book_corpus"
	FamilyGroundedModel Family = "grounded_model"
)

// Category is the coarse pipeline bucket used by per-category enable/disable
// configuration and the fixed tier order.
type Category string

const (
	CategoryFree       Category = "free"
	CategoryReference  Category = "reference"
	CategoryBooks      Category = "books"
	CategoryWebSearch  Category = "webSearch"
	CategoryNews       Category = "news"
	CategoryObituary   Category = "obituary"
	CategoryArchives   Category = "archives"
	CategoryAI         Category = "ai"
)

// TierOrder is the fixed, documented category priority order the
// orchestrator builds its source list in. Category membership, not
// alphabetical order, drives which sources run first.
var TierOrder = []Category{
	CategoryFree,
	CategoryReference,
	CategoryBooks,
	CategoryWebSearch,
	CategoryNews,
	CategoryObituary,
	CategoryArchives,
	CategoryAI,
}

// ReliabilityTier is the a-priori trust level of a source, fixed per tier
// and invariant across queries.
type ReliabilityTier string

const (
	TierStructuredData       ReliabilityTier = "structured_data"
	TierTier1News            ReliabilityTier = "tier_1_news"
	TierTradePress           ReliabilityTier = "trade_press"
	TierSecondaryCompilation ReliabilityTier = "secondary_compilation"
	TierMarginalEditorial    ReliabilityTier = "marginal_editorial"
	TierArchival             ReliabilityTier = "archival"
	TierWebSearch            ReliabilityTier = "web_search"
	TierAI                   ReliabilityTier = "ai"
)

// Score returns the fixed reliability score for a tier. Reliability is
// derived deterministically from tier membership; it is never set
// per-instance.
func (t ReliabilityTier) Score() float64 {
	switch t {
	case TierStructuredData, TierTier1News:
		return 0.95
	case TierArchival, TierTradePress:
		return 0.90
	case TierSecondaryCompilation:
		return 0.85
	case TierMarginalEditorial:
		return 0.65
	case TierWebSearch:
		return 0.50
	case TierAI:
		return 0.70
	default:
		return 0
	}
}

// ErrorKind is the fixed taxonomy every failed LookupResult is classified
// into, never a raw error string.
type ErrorKind string

const (
	ErrorNotConfigured     ErrorKind = "not_configured"
	ErrorRateLimited       ErrorKind = "rate_limited"
	ErrorBlocked           ErrorKind = "blocked"
	ErrorTimeout           ErrorKind = "timeout"
	ErrorNotFound          ErrorKind = "not_found"
	ErrorContentTooShort   ErrorKind = "content_too_short"
	ErrorContentIrrelevant ErrorKind = "content_irrelevant"
	ErrorUpstreamError     ErrorKind = "upstream_error"
)

// MapHTTPStatus applies the uniform status→ErrorKind policy fixed for this
// implementation: 401/403 signal blocked access for scraping sources (an
// API-key source overrides this to not_configured via MapAPIStatus), 404
// and 429 map directly, and everything else is an upstream error.
func MapHTTPStatus(status int) ErrorKind {
	switch {
	case status == 401 || status == 403:
		return ErrorBlocked
	case status == 404:
		return ErrorNotFound
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorUpstreamError
	default:
		return ErrorUpstreamError
	}
}

// MapAPIStatus is the status mapping for API-key sources, where a 401
// signals a missing or revoked key rather than a scraping block.
func MapAPIStatus(status int) ErrorKind {
	if status == 401 {
		return ErrorNotConfigured
	}
	return MapHTTPStatus(status)
}

// Descriptor is the static metadata every concrete source publishes.
// Reliability score is derived from Tier, never set directly.
type Descriptor struct {
	Type                  Type
	Name                  string
	Category              Category
	Family                Family
	Tier                  ReliabilityTier
	IsFree                bool
	EstimatedCostPerQuery float64
	MinDelay              time.Duration
	RequestTimeout        time.Duration
	// SupportsArchiveFallback marks scraping-style sources that may retry
	// a blocked fetch against an archival mirror; API-key sources never do.
	SupportsArchiveFallback bool
}

// ReliabilityScore returns d.Tier.Score(), the one true source of truth
// for a descriptor's reliability.
func (d Descriptor) ReliabilityScore() float64 { return d.Tier.Score() }

// SourceEntry records one lookup attempt, successful or not, for
// telemetry and for the synthesizer's reliability-ordering pass.
type SourceEntry struct {
	Type             Type
	RetrievedAt       time.Time
	Confidence       float64
	ReliabilityTier  ReliabilityTier
	ReliabilityScore float64
	CostUSD          float64
	URL              string
	Publication      string
	ArticleTitle     string
	Domain           string
	ContentType      string
	Query            string
}

// RawBiographySnippet is one source's contribution to the biography flow.
type RawBiographySnippet struct {
	Entry      SourceEntry
	Text       string
	Confidence float64
}

// RawDeathSnippet is one source's contribution to the death-circumstances
// flow.
type RawDeathSnippet struct {
	Entry               SourceEntry
	Circumstances       string
	RumoredCircumstances string
	NotableFactors      []string
	LocationOfDeath     string
	AdditionalContext   string
	RelatedCelebrities  []string
	Confidence          float64
}

// LookupResult is the outcome of one source call. On success at least one
// of Biography/Death is set (wikidata sets both); on failure ErrKind names
// the error kind and ErrMsg describes it.
type LookupResult struct {
	Entry     SourceEntry
	Biography *RawBiographySnippet
	Death     *RawDeathSnippet
	ErrKind   ErrorKind
	ErrMsg    string
}

// Success reports whether the lookup produced a usable snippet.
func (r LookupResult) Success() bool {
	return r.ErrKind == "" && (r.Biography != nil || r.Death != nil)
}

// Actor is the minimal view of an enrichment subject a source needs.
type Actor struct {
	ID              string
	ExternalID      string
	Name            string
	Birthday        *time.Time
	Deathday        *time.Time
	PlaceOfBirth    string
	PriorCause      string
	Popularity      float64
	RawBiography    string
}

// Source is the uniform contract every concrete lookup implements.
type Source interface {
	Name() string
	Type() Type
	Descriptor() Descriptor
	IsAvailable() bool
	Lookup(ctx context.Context, actor Actor) LookupResult
}
