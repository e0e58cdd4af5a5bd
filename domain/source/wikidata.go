package source

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// sparqlEndpoint is the public Wikidata Query Service endpoint every
// wikidata lookup queries; no credential is required.
const sparqlEndpoint = "https://query.wikidata.org/sparql"

// wikidataQuery asks for a human (Q5) sharing the actor's label, plus
// whatever place-of-death, cause-of-death, and description values
// Wikidata holds. LIMIT bounds accidental fan-out on common names; the
// caller disambiguates among returned bindings with NameMatches.
const wikidataQuery = `SELECT ?personLabel ?descriptionLabel ?placeOfDeathLabel ?causeOfDeathLabel WHERE {
  ?person rdfs:label "%s"@en.
  ?person wdt:P31 wd:Q5.
  OPTIONAL { ?person wdt:P20 ?placeOfDeath. }
  OPTIONAL { ?person wdt:P509 ?causeOfDeath. }
  OPTIONAL { ?person schema:description ?description. FILTER(LANG(?description) = "en") }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }
} LIMIT 5`

func wikidataURL(actor Actor) string {
	q := fmt.Sprintf(wikidataQuery, strings.ReplaceAll(actor.Name, `"`, `\"`))
	return sparqlEndpoint + "?format=json&query=" + url.QueryEscape(q)
}

// wikidataBinding is the SPARQL JSON results shape for the fields the
// query above selects.
type wikidataBinding struct {
	PersonLabel       sparqlValue `json:"personLabel"`
	DescriptionLabel  sparqlValue `json:"descriptionLabel"`
	PlaceOfDeathLabel sparqlValue `json:"placeOfDeathLabel"`
	CauseOfDeathLabel sparqlValue `json:"causeOfDeathLabel"`
}

type sparqlValue struct {
	Value string `json:"value"`
}

type sparqlResponse struct {
	Results struct {
		Bindings []wikidataBinding `json:"bindings"`
	} `json:"results"`
}

// parseWikidata matches the candidate whose personLabel matches the
// actor's name, per the documented name-match tie-break, and folds any
// place/cause-of-death triples into a RawDeathSnippet alongside the
// description as biographical text.
func parseWikidata(actor Actor, body []byte) LookupResult {
	var resp sparqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return LookupResult{ErrKind: ErrorUpstreamError, ErrMsg: "malformed sparql response"}
	}

	var match *wikidataBinding
	for i := range resp.Results.Bindings {
		b := &resp.Results.Bindings[i]
		if NameMatches(actor.Name, b.PersonLabel.Value) {
			match = b
			break
		}
	}
	if match == nil {
		return LookupResult{ErrKind: ErrorNotFound, ErrMsg: "no matching wikidata entity"}
	}

	text := match.DescriptionLabel.Value
	if match.PlaceOfDeathLabel.Value != "" {
		text += ". Place of death: " + match.PlaceOfDeathLabel.Value
	}
	if match.CauseOfDeathLabel.Value != "" {
		text += ". Cause of death: " + match.CauseOfDeathLabel.Value
	}

	result := textSnippet(actor.Name, text)
	if !result.Success() {
		return result
	}
	result.Death = &RawDeathSnippet{
		Circumstances:   match.CauseOfDeathLabel.Value,
		LocationOfDeath: match.PlaceOfDeathLabel.Value,
		Confidence:      result.Entry.Confidence,
	}
	return result
}
