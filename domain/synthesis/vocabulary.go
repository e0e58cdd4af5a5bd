package synthesis

// notableFactors is the closed vocabulary the synthesis model is
// instructed to draw from. Values outside this set are stripped from the
// structured record and recorded as rejected-factor telemetry instead of
// being silently dropped.
var notableFactors = map[string]bool{
	"drug_related":          true,
	"accident":              true,
	"illness_terminal":       true,
	"illness_acute":          true,
	"suicide":                true,
	"homicide":               true,
	"complications_surgery":  true,
	"age_related":            true,
	"covid_19":               true,
	"overdose_accidental":    true,
	"overdose_intentional":   true,
	"found_deceased":         true,
	"hospice":                true,
	"natural_causes":         true,
}

// validFactors returns in, rejected, split by vocabulary membership. The
// caller is responsible for recording rejected entries as telemetry.
func validFactors(in []string) (valid []string, rejected []string) {
	seen := make(map[string]bool, len(in))
	for _, f := range in {
		if seen[f] {
			continue
		}
		seen[f] = true
		if notableFactors[f] {
			valid = append(valid, f)
		} else {
			rejected = append(rejected, f)
		}
	}
	return valid, rejected
}
