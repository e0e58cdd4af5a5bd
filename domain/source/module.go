package source

import (
	"log/slog"
	"net/http"

	"go.uber.org/fx"

	"github.com/emergent-company/deathrecord/domain/cache"
	"github.com/emergent-company/deathrecord/domain/content"
	"github.com/emergent-company/deathrecord/domain/fetch"
	"github.com/emergent-company/deathrecord/internal/config"
	"github.com/emergent-company/deathrecord/pkg/adk"
)

// Module builds the full ~25-source catalog as concrete Source instances
// and provides them as a single ordered slice; domain/orchestrator builds
// its tier-ordered pipeline from this slice at construction time. The
// ContentCleaner every source shares comes from content.Module.
var Module = fx.Module("source",
	fx.Provide(
		fetch.NewHttpFetcher,
		func() *http.Client { return &http.Client{} },
		func(doer *http.Client) fetch.HTTPDoer { return doer },
		ProvideSources,
	),
)

// ProvideSources builds every concrete source this system knows about,
// wiring each to the shared fetcher, cleaner, and cache, and gating the
// keyed sources on the credentials SourceCredentials carries.
func ProvideSources(
	fetcher *fetch.HttpFetcher,
	cleaner *content.ContentCleaner,
	c cache.Cache,
	cfg *config.Config,
	factory *adk.ModelFactory,
	log *slog.Logger,
) []Source {
	cc := cfg.Cache
	creds := cfg.Sources
	llm := cfg.LLM

	base := func(t Type) Base {
		return NewBase(descriptors[t], c, log, cc.DefaultTTL, cc.NegativeTTL)
	}

	html := func(t Type, build urlBuilder, available func() bool) Source {
		return NewHTMLSource(base(t), fetcher, cleaner, build, available)
	}
	jsonSrc := func(t Type, build urlBuilder, parse jsonParser, available func() bool) Source {
		return NewJSONSource(base(t), fetcher, build, parse, available)
	}

	sources := []Source{
		// Structured data / encyclopedia: always available, no credential.
		jsonSrc(TypeWikidata, wikidataURL, parseWikidata, nil),
		jsonSrc(TypeWikipedia, wikipediaSummaryURL, parseWikipedia, nil),

		// Reference / editorial scraping: always available.
		html(TypeBritannica, searchURL("https://www.britannica.com/search", "query"), nil),
		html(TypeBiographyCom, searchURL("https://www.biography.com/search", "q"), nil),
		html(TypeSmithsonian, searchURL("https://www.smithsonianmag.com/search", "q"), nil),
		html(TypeHistory, searchURL("https://www.history.com/search", "q"), nil),
		html(TypeIMDbBio, searchURL("https://www.imdb.com/find", "q"), nil),

		// News. BBC, AP, Variety, People, TMZ scrape; NYT and Guardian call
		// their public content APIs and are gated on an API key.
		html(TypeBBC, searchURL("https://www.bbc.co.uk/search", "q"), nil),
		jsonSrc(TypeNYT, nytURL(creds.NYTAPIKey), parseNYT, available(creds.NYTAPIKey)),
		jsonSrc(TypeGuardian, guardianURL(creds.GuardianAPIKey), parseGuardian, available(creds.GuardianAPIKey)),
		html(TypeAP, searchURL("https://apnews.com/search", "q"), nil),
		html(TypeVariety, searchURL("https://variety.com", "s"), nil),
		html(TypePeople, searchURL("https://people.com/search", "q"), nil),
		html(TypeTMZ, searchURL("https://www.tmz.com/search", "q"), nil),

		// Web search. DuckDuckGo HTML is keyless; the rest need an API key.
		html(TypeDuckDuckGo, func(a Actor) string { return "https://html.duckduckgo.com/html/?q=" + deathQuery(a) }, nil),
		jsonSrc(TypeGoogleCSE, googleCSEURL(googleCSECreds{creds.GoogleCSEAPIKey, creds.GoogleCSEEngineID}), parseGoogleCSE,
			available(creds.GoogleCSEAPIKey, creds.GoogleCSEEngineID)),
		bingSource(base(TypeBing), fetcher, creds.BingSearchAPIKey),
		jsonSrc(TypeBrave, braveURL, parseBrave, available(creds.BraveSearchAPIKey)),

		// Archival. Internet Archive and Chronicling America are keyless
		// federal/nonprofit corpora; Trove and Europeana need a key.
		jsonSrc(TypeInternetArchive, internetArchiveURL, parseInternetArchive, nil),
		jsonSrc(TypeChroniclingAm, chroniclingAmericaURL, parseChroniclingAmerica, nil),
		jsonSrc(TypeTrove, troveURL(creds.TroveAPIKey), parseTrove, available(creds.TroveAPIKey)),
		jsonSrc(TypeEuropeana, europeanaURL(creds.EuropeanaAPIKey), parseEuropeana, available(creds.EuropeanaAPIKey)),

		// Book corpora, all keyless (Google Books works unauthenticated at
		// a lower quota; a key only raises the ceiling).
		jsonSrc(TypeGoogleBooks, googleBooksURL(creds.GoogleBooksAPIKey), parseGoogleBooks, nil),
		jsonSrc(TypeOpenLibrary, openLibraryURL, parseOpenLibrary, nil),
		jsonSrc(TypeIABooks, iaBooksURL, parseIABooks, nil),

		// AI grounded search.
		NewGeminiGroundedSource(base(TypeGeminiGrounded), factory, llm.GroundedSearchModel, log),
	}

	if claude := NewClaudeGroundedSource(base(TypeClaudeGrounded), llm.AnthropicAPIKey, llm.AnthropicModel, llm.MaxOutputTokens, log); claude != nil {
		sources = append(sources, claude)
	}

	return sources
}

// bingSource wires the Bing Search v7 source, whose API key is passed as
// a header rather than a query parameter.
func bingSource(b Base, fetcher *fetch.HttpFetcher, apiKey string) Source {
	return NewJSONSource(b, fetcher, bingURL, parseBing, available(apiKey)).
		WithHeaders(map[string]string{"Ocp-Apim-Subscription-Key": apiKey})
}

// available builds an IsAvailable predicate requiring every given
// credential to be non-empty.
func available(creds ...string) func() bool {
	return func() bool {
		for _, c := range creds {
			if c == "" {
				return false
			}
		}
		return true
	}
}
