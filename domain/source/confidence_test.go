package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBiographicalConfidence_NoMatches(t *testing.T) {
	assert.Equal(t, 0.0, CalculateBiographicalConfidence("The weather today is sunny."))
}

func TestCalculateBiographicalConfidence_SingleFamily(t *testing.T) {
	got := CalculateBiographicalConfidence("He died of cancer last year.")
	assert.InDelta(t, 0.12, got, 0.001)
}

func TestCalculateBiographicalConfidence_MultipleFamilies(t *testing.T) {
	text := "Born in Ohio, he grew up poor, graduated from college, starred in dozens of films, married twice, later divorced, and died of cancer."
	got := CalculateBiographicalConfidence(text)
	assert.InDelta(t, 0.12*6, got, 0.001)
}

func TestCalculateBiographicalConfidence_NeverExceedsCap(t *testing.T) {
	text := "Born in Ohio, grew up poor, married, divorced, graduated college, studied acting, " +
		"began acting career, starred in films, known for his roles, died of cancer, diagnosed with illness."
	got := CalculateBiographicalConfidence(text)
	assert.LessOrEqual(t, got, 0.95)
}
