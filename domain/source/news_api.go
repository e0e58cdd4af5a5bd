package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// --- New York Times Article Search API (nyt) ---

func nytURL(apiKey string) urlBuilder {
	return func(actor Actor) string {
		q := url.QueryEscape(actor.Name + " obituary")
		return fmt.Sprintf("https://api.nytimes.com/svc/search/v2/articlesearch.json?q=%s&api-key=%s", q, url.QueryEscape(apiKey))
	}
}

type nytResponse struct {
	Response struct {
		Docs []struct {
			Headline struct {
				Main string `json:"main"`
			} `json:"headline"`
			Snippet string `json:"snippet"`
			WebURL  string `json:"web_url"`
		} `json:"docs"`
	} `json:"response"`
}

func parseNYT(actor Actor, body []byte) LookupResult {
	var resp nytResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed nyt response"}
	}
	n := len(resp.Response.Docs)
	return parseSearchResultPage(actor, func(i int) (string, string, string) {
		d := resp.Response.Docs[i]
		return d.Headline.Main, d.Snippet, d.WebURL
	}, n)
}

// --- The Guardian Content API (guardian) ---

func guardianURL(apiKey string) urlBuilder {
	return func(actor Actor) string {
		q := url.QueryEscape(actor.Name + " obituary")
		return fmt.Sprintf("https://content.guardianapis.com/search?q=%s&show-fields=trailText,bodyText&api-key=%s", q, url.QueryEscape(apiKey))
	}
}

type guardianResponse struct {
	Response struct {
		Results []struct {
			WebTitle string `json:"webTitle"`
			WebURL   string `json:"webUrl"`
			Fields   struct {
				TrailText string `json:"trailText"`
				BodyText  string `json:"bodyText"`
			} `json:"fields"`
		} `json:"results"`
	} `json:"response"`
}

func parseGuardian(actor Actor, body []byte) LookupResult {
	var resp guardianResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed guardian response"}
	}

	var b strings.Builder
	var firstURL, firstTitle string
	for _, r := range resp.Response.Results {
		if !NameMatches(actor.Name, r.WebTitle) && !strings.Contains(strings.ToLower(r.Fields.BodyText), strings.ToLower(actor.Name)) {
			continue
		}
		if firstURL == "" {
			firstURL, firstTitle = r.WebURL, r.WebTitle
		}
		b.WriteString(r.WebTitle)
		b.WriteString(". ")
		if r.Fields.BodyText != "" {
			b.WriteString(r.Fields.BodyText)
		} else {
			b.WriteString(r.Fields.TrailText)
		}
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "no relevant guardian results"}
	}

	result := textSnippet(actor.Name+" obituary", b.String())
	if result.Success() {
		result.Entry.URL = firstURL
		result.Entry.ArticleTitle = firstTitle
	}
	return result
}
