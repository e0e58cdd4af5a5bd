package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// deathQuery is the query string every web-search source issues: the
// actor's name plus terms that bias results toward death-circumstance
// coverage rather than general filmography pages.
func deathQuery(actor Actor) string {
	return actor.Name + " death cause obituary"
}

// --- Google Programmable Search Engine (google_cse) ---

func googleCSEURL(creds googleCSECreds) urlBuilder {
	return func(actor Actor) string {
		return fmt.Sprintf(
			"https://www.googleapis.com/customsearch/v1?key=%s&cx=%s&q=%s",
			url.QueryEscape(creds.apiKey), url.QueryEscape(creds.engineID), url.QueryEscape(deathQuery(actor)),
		)
	}
}

type googleCSECreds struct {
	apiKey, engineID string
}

type googleCSEResponse struct {
	Items []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"items"`
}

func parseGoogleCSE(actor Actor, body []byte) LookupResult {
	var resp googleCSEResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed google cse response"}
	}
	return parseSearchResultPage(actor, func(i int) (title, snippet, link string) {
		return resp.Items[i].Title, resp.Items[i].Snippet, resp.Items[i].Link
	}, len(resp.Items))
}

// --- Bing Search v7 (bing) ---

func bingURL(actor Actor) string {
	return "https://api.bing.microsoft.com/v7.0/search?q=" + url.QueryEscape(deathQuery(actor))
}

type bingResponse struct {
	WebPages struct {
		Value []struct {
			Name    string `json:"name"`
			Snippet string `json:"snippet"`
			URL     string `json:"url"`
		} `json:"value"`
	} `json:"webPages"`
}

func parseBing(actor Actor, body []byte) LookupResult {
	var resp bingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed bing response"}
	}
	n := len(resp.WebPages.Value)
	return parseSearchResultPage(actor, func(i int) (string, string, string) {
		v := resp.WebPages.Value[i]
		return v.Name, v.Snippet, v.URL
	}, n)
}

// --- Brave Search (brave) ---

func braveURL(actor Actor) string {
	return "https://api.search.brave.com/res/v1/web/search?q=" + url.QueryEscape(deathQuery(actor))
}

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
		} `json:"results"`
	} `json:"web"`
}

func parseBrave(actor Actor, body []byte) LookupResult {
	var resp braveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed brave response"}
	}
	n := len(resp.Web.Results)
	return parseSearchResultPage(actor, func(i int) (string, string, string) {
		r := resp.Web.Results[i]
		return r.Title, r.Description, r.URL
	}, n)
}

// parseSearchResultPage is the shared result-aggregation logic across
// every search-engine source: concatenate result snippets into one text
// blob (search results rarely carry enough text in a single hit to meet
// the content gate alone) and keep the first matching result's URL as
// provenance.
func parseSearchResultPage(actor Actor, at func(i int) (title, snippet, link string), n int) LookupResult {
	var b strings.Builder
	var firstURL, firstTitle string
	for i := 0; i < n; i++ {
		title, snippet, link := at(i)
		if !NameMatches(actor.Name, title) && !strings.Contains(strings.ToLower(snippet), strings.ToLower(actor.Name)) {
			continue
		}
		if firstURL == "" {
			firstURL, firstTitle = link, title
		}
		b.WriteString(title)
		b.WriteString(". ")
		b.WriteString(snippet)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "no relevant search results"}
	}

	result := textSnippet(deathQuery(actor), b.String())
	if result.Success() {
		result.Entry.URL = firstURL
		result.Entry.ArticleTitle = firstTitle
	}
	return result
}
