package source

import (
	"encoding/json"
	"net/url"
)

// wikipediaSummaryURL targets the REST "page summary" endpoint, which
// returns a clean-text extract directly so this source needs no HTML
// scraping despite belonging to the same family as Wikidata.
func wikipediaSummaryURL(actor Actor) string {
	return "https://en.wikipedia.org/api/rest_v1/page/summary/" + url.PathEscape(actor.Name)
}

type wikipediaSummary struct {
	Title      string `json:"title"`
	Extract    string `json:"extract"`
	Type       string `json:"type"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// parseWikipedia rejects disambiguation pages and pages whose title
// doesn't match the actor, per the documented name-match policy.
func parseWikipedia(actor Actor, body []byte) LookupResult {
	var summary wikipediaSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed wikipedia summary"}
	}
	if summary.Type == "disambiguation" {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "disambiguation page"}
	}
	if !NameMatches(actor.Name, summary.Title) {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "title does not match actor name"}
	}

	result := textSnippet(actor.Name, summary.Extract)
	if result.Success() {
		result.Entry.URL = summary.ContentURLs.Desktop.Page
		result.Entry.ArticleTitle = summary.Title
	}
	return result
}
