package source

import "strings"

// NameMatches implements the disambiguation tie-break policy every
// structured-data source uses when a query returns multiple candidates:
// case-insensitive exact match, then substring match, then last-name
// match. Ambiguous or unrelated candidates should be rejected by the
// caller with error-kind not_found rather than passed here.
func NameMatches(actorName, candidate string) bool {
	a := strings.ToLower(strings.TrimSpace(actorName))
	c := strings.ToLower(strings.TrimSpace(candidate))
	if a == "" || c == "" {
		return false
	}

	if a == c {
		return true
	}
	if strings.Contains(c, a) || strings.Contains(a, c) {
		return true
	}

	return lastName(a) == lastName(c)
}

func lastName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// MatchByBirthYear prefers disambiguating on birth year when the caller
// has one for both the actor and a candidate, per the documented
// tie-break order (birth year, then full-name match, then last name).
func MatchByBirthYear(actorYear, candidateYear int) bool {
	return actorYear != 0 && candidateYear != 0 && actorYear == candidateYear
}
