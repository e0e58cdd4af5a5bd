package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// --- Google Books (google_books) ---

func googleBooksURL(apiKey string) urlBuilder {
	return func(actor Actor) string {
		q := url.QueryEscape(fmt.Sprintf("intitle:biography %s", actor.Name))
		u := "https://www.googleapis.com/books/v1/volumes?q=" + q
		if apiKey != "" {
			u += "&key=" + url.QueryEscape(apiKey)
		}
		return u
	}
}

type googleBooksResponse struct {
	Items []struct {
		VolumeInfo struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			InfoLink    string `json:"infoLink"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func parseGoogleBooks(actor Actor, body []byte) LookupResult {
	var resp googleBooksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed google books response"}
	}
	return parseDocPage(actor, len(resp.Items), func(i int) (string, string, string) {
		v := resp.Items[i].VolumeInfo
		return v.Title, v.Description, v.InfoLink
	})
}

// --- Open Library (open_library) ---

func openLibraryURL(actor Actor) string {
	return "https://openlibrary.org/search.json?q=" + url.QueryEscape(actor.Name) + "&fields=title,first_sentence,key&limit=5"
}

type openLibraryResponse struct {
	Docs []struct {
		Title          string   `json:"title"`
		Key            string   `json:"key"`
		FirstSentence  []string `json:"first_sentence"`
	} `json:"docs"`
}

func parseOpenLibrary(actor Actor, body []byte) LookupResult {
	var resp openLibraryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed open library response"}
	}
	return parseDocPage(actor, len(resp.Docs), func(i int) (string, string, string) {
		d := resp.Docs[i]
		return d.Title, strings.Join(d.FirstSentence, " "), "https://openlibrary.org" + d.Key
	})
}

// --- Internet Archive full-text book search (ia_books) ---

func iaBooksURL(actor Actor) string {
	q := url.QueryEscape(fmt.Sprintf(`"%s" AND mediatype:texts AND collection:(biography)`, actor.Name))
	return "https://archive.org/advancedsearch.php?q=" + q + "&fl[]=identifier&fl[]=title&fl[]=description&rows=5&output=json"
}

func parseIABooks(actor Actor, body []byte) LookupResult {
	return parseInternetArchive(actor, body)
}
