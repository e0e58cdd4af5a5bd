package synthesis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/emergent-company/deathrecord/domain/source"
)

// RawSource is one successful source lookup carried forward into
// synthesis: at least one of Biography/Death is set, mirroring
// source.LookupResult's own shape.
type RawSource struct {
	Entry     source.SourceEntry
	Biography *source.RawBiographySnippet
	Death     *source.RawDeathSnippet
}

// orderSources orders raw sources by (reliability tier, snippet
// confidence), highest first, per the synthesis algorithm. Sort is
// stable so sources already in priority order from the orchestrator keep
// that relative order within a tier/confidence tie.
func orderSources(raw []RawSource) []RawSource {
	ordered := make([]RawSource, len(raw))
	copy(ordered, raw)
	sort.SliceStable(ordered, func(i, j int) bool {
		si, sj := ordered[i].Entry, ordered[j].Entry
		if si.ReliabilityScore != sj.ReliabilityScore {
			return si.ReliabilityScore > sj.ReliabilityScore
		}
		return si.Confidence > sj.Confidence
	})
	return ordered
}

// buildPrompt assembles the synthesis prompt: actor identity, each
// snippet with its attribution, and instructions to prefer
// higher-reliability sources on conflict, separate fact from rumor, and
// return null rather than fabricate.
func buildPrompt(a source.Actor, raw []RawSource) string {
	var b strings.Builder

	b.WriteString("You are assembling a factual death-circumstances and biography record ")
	b.WriteString("for a film/TV actor from the source excerpts below.\n\n")

	b.WriteString("ACTOR\n")
	fmt.Fprintf(&b, "name: %s\n", a.Name)
	if a.Birthday != nil {
		fmt.Fprintf(&b, "birthday: %s\n", a.Birthday.Format(time.DateOnly))
	}
	if a.Deathday != nil {
		fmt.Fprintf(&b, "deathday: %s\n", a.Deathday.Format(time.DateOnly))
	}
	if a.PlaceOfBirth != "" {
		fmt.Fprintf(&b, "place of birth: %s\n", a.PlaceOfBirth)
	}
	if a.PriorCause != "" {
		fmt.Fprintf(&b, "previously recorded cause of death: %s\n", a.PriorCause)
	}
	b.WriteString("\nSOURCES (ordered most to least reliable; prefer earlier sources on conflict)\n")

	for i, rs := range orderSources(raw) {
		fmt.Fprintf(&b, "\n[%d] %s (tier=%s, reliability=%.2f, confidence=%.2f)", i+1, rs.Entry.Type, rs.Entry.ReliabilityTier, rs.Entry.ReliabilityScore, rs.Entry.Confidence)
		if rs.Entry.Publication != "" {
			fmt.Fprintf(&b, " publication=%s", rs.Entry.Publication)
		}
		if rs.Entry.URL != "" {
			fmt.Fprintf(&b, " url=%s", rs.Entry.URL)
		}
		b.WriteString("\n")
		switch {
		case rs.Biography != nil:
			b.WriteString(rs.Biography.Text)
		case rs.Death != nil:
			if rs.Death.Circumstances != "" {
				fmt.Fprintf(&b, "circumstances: %s\n", rs.Death.Circumstances)
			}
			if rs.Death.RumoredCircumstances != "" {
				fmt.Fprintf(&b, "rumored: %s\n", rs.Death.RumoredCircumstances)
			}
			if rs.Death.LocationOfDeath != "" {
				fmt.Fprintf(&b, "location: %s\n", rs.Death.LocationOfDeath)
			}
			if rs.Death.AdditionalContext != "" {
				b.WriteString(rs.Death.AdditionalContext)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("\nINSTRUCTIONS\n")
	b.WriteString("- Prefer higher-reliability sources when sources conflict.\n")
	b.WriteString("- Keep verified circumstances separate from rumored circumstances; never present a rumor as fact.\n")
	b.WriteString("- Cite the contributing source number inline where practical, e.g. \"[2]\".\n")
	b.WriteString("- Return null for any field the sources do not support. Never fabricate a fact.\n")
	fmt.Fprintf(&b, "- notableFactors must be drawn only from this vocabulary: %s\n", strings.Join(sortedVocabulary(), ", "))
	b.WriteString("- Respond with a single JSON object matching the provided schema, nothing else.\n")

	return b.String()
}

func sortedVocabulary() []string {
	out := make([]string, 0, len(notableFactors))
	for f := range notableFactors {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
