package synthesis

import "google.golang.org/genai"

// enrichmentSchema is the structured-output schema the Gemini synthesis
// call is constrained to. Confidence fields are left nullable strings so
// the model can return null rather than guess, per the null-rather-than-
// fabricate rule.
func enrichmentSchema() *genai.Schema {
	confidenceEnum := &genai.Schema{
		Type:     genai.TypeString,
		Enum:     []string{"high", "medium", "low"},
		Nullable: genai.Ptr(true),
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"circumstances":         {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"rumoredCircumstances":  {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"locationOfDeath":       {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"causeOfDeath":          {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"notableFactors":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"causeConfidence":       confidenceEnum,
			"detailsConfidence":     confidenceEnum,
			"birthdayConfidence":    confidenceEnum,
			"deathdayConfidence":    confidenceEnum,
			"lastProject":           {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"posthumousReleases":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"careerStatusAtDeath":   {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"relatedCelebrities":    {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"relatedDeaths":         {Type: genai.TypeString, Nullable: genai.Ptr(true)},
			"narrative":             {Type: genai.TypeString, Nullable: genai.Ptr(true)},
		},
		Required: []string{"circumstances", "notableFactors"},
	}
}
