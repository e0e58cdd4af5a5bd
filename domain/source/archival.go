package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// --- Internet Archive full-text search (internet_archive) ---

func internetArchiveURL(actor Actor) string {
	q := url.QueryEscape(fmt.Sprintf(`"%s" AND mediatype:texts`, actor.Name))
	return "https://archive.org/advancedsearch.php?q=" + q + "&fl[]=identifier&fl[]=title&fl[]=description&rows=5&output=json"
}

type archiveOrgResponse struct {
	Response struct {
		Docs []struct {
			Identifier  string `json:"identifier"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"docs"`
	} `json:"response"`
}

func parseInternetArchive(actor Actor, body []byte) LookupResult {
	var resp archiveOrgResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed archive.org response"}
	}
	return parseDocPage(actor, len(resp.Response.Docs), func(i int) (title, text, link string) {
		d := resp.Response.Docs[i]
		return d.Title, d.Description, "https://archive.org/details/" + d.Identifier
	})
}

// --- Chronicling America (chronicling_america) ---

func chroniclingAmericaURL(actor Actor) string {
	return "https://chroniclingamerica.loc.gov/search/pages/results/?andtext=" + url.QueryEscape(actor.Name) + "&format=json&rows=5"
}

type chroniclingAmericaResponse struct {
	Items []struct {
		Title   string `json:"title"`
		OCREng  string `json:"ocr_eng"`
		URL     string `json:"id"`
	} `json:"items"`
}

func parseChroniclingAmerica(actor Actor, body []byte) LookupResult {
	var resp chroniclingAmericaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed chronicling america response"}
	}
	return parseDocPage(actor, len(resp.Items), func(i int) (string, string, string) {
		it := resp.Items[i]
		return it.Title, it.OCREng, it.URL
	})
}

// --- Trove (trove), requires an API key ---

func troveURL(apiKey string) urlBuilder {
	return func(actor Actor) string {
		q := url.QueryEscape(actor.Name)
		return fmt.Sprintf("https://api.trove.nla.gov.au/v3/result?q=%s&category=newspaper&n=5&encoding=json&key=%s", q, url.QueryEscape(apiKey))
	}
}

type troveResponse struct {
	Category []struct {
		Records struct {
			Article []struct {
				Heading string `json:"heading"`
				Snippet string `json:"snippet"`
				TroveURL string `json:"troveUrl"`
			} `json:"article"`
		} `json:"records"`
	} `json:"category"`
}

func parseTrove(actor Actor, body []byte) LookupResult {
	var resp troveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed trove response"}
	}
	if len(resp.Category) == 0 {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "no trove results"}
	}
	articles := resp.Category[0].Records.Article
	return parseDocPage(actor, len(articles), func(i int) (string, string, string) {
		a := articles[i]
		return a.Heading, a.Snippet, a.TroveURL
	})
}

// --- Europeana (europeana), requires an API key ---

func europeanaURL(apiKey string) urlBuilder {
	return func(actor Actor) string {
		q := url.QueryEscape(actor.Name)
		return fmt.Sprintf("https://api.europeana.eu/record/v2/search.json?query=%s&rows=5&wskey=%s", q, url.QueryEscape(apiKey))
	}
}

type europeanaResponse struct {
	Items []struct {
		Title       []string `json:"title"`
		DcDescription []string `json:"dcDescription"`
		GUID        string   `json:"guid"`
	} `json:"items"`
}

func parseEuropeana(actor Actor, body []byte) LookupResult {
	var resp europeanaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed europeana response"}
	}
	return parseDocPage(actor, len(resp.Items), func(i int) (string, string, string) {
		it := resp.Items[i]
		title := strings.Join(it.Title, " ")
		desc := strings.Join(it.DcDescription, " ")
		return title, desc, it.GUID
	})
}

// parseDocPage is the shared aggregation for archival document-search
// APIs: concatenate matching snippets, same shape as search-engine
// sources but field names differ per provider.
func parseDocPage(actor Actor, n int, at func(i int) (title, text, link string)) LookupResult {
	var b strings.Builder
	var firstURL, firstTitle string
	for i := 0; i < n; i++ {
		title, text, link := at(i)
		if !NameMatches(actor.Name, title) && !strings.Contains(strings.ToLower(text), strings.ToLower(actor.Name)) {
			continue
		}
		if firstURL == "" {
			firstURL, firstTitle = link, title
		}
		b.WriteString(title)
		b.WriteString(". ")
		b.WriteString(text)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "no relevant archival results"}
	}

	result := textSnippet(actor.Name, b.String())
	if result.Success() {
		result.Entry.URL = firstURL
		result.Entry.ArticleTitle = firstTitle
	}
	return result
}
