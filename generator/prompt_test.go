package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSimulationPromptIsDeterministic(t *testing.T) {
	req := SimulationRequest{
		Name:          "Projectile Motion",
		Subject:       "Physics",
		Department:    "Science",
		Course:        "Grade 11",
		Description:   "Launch a ball at an angle and plot its path.",
		Complexity:    TierMedium,
		Interactivity: TierHigh,
	}
	first := BuildSimulationPrompt(req)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, BuildSimulationPrompt(req))
	}
}

func TestBuildSimulationPromptPendulum(t *testing.T) {
	out := BuildSimulationPrompt(SimulationRequest{Name: "Pendulum", Subject: "Physics", Complexity: TierLow})

	assert.Contains(t, out, "Pendulum")
	assert.Contains(t, out, "Physics")
	assert.Contains(t, out, "Complexity Level: low")
	assert.Contains(t, out, complexityHints[TierLow])
}

func TestBuildSimulationPromptMissingFields(t *testing.T) {
	out := BuildSimulationPrompt(SimulationRequest{})

	assert.Contains(t, out, "Simulation Name: \n")
	assert.Contains(t, out, "- Complexity Level: \n")
	assert.Contains(t, out, "- Interactivity Level: \n")
}

func TestBuildSimulationPromptIncludesAllFields(t *testing.T) {
	out := BuildSimulationPrompt(SimulationRequest{
		Name:          "Titration",
		Subject:       "Chemistry",
		Department:    "Chemical Sciences",
		Course:        "CHEM 101",
		Description:   "Acid-base titration with a pH curve.",
		Complexity:    TierHigh,
		Interactivity: TierMedium,
	})
	for _, want := range []string{"Titration", "Chemistry", "Chemical Sciences", "CHEM 101", "Acid-base titration with a pH curve.", "Complexity Level: high", "Interactivity Level: medium"} {
		assert.Contains(t, out, want)
	}
}

func TestParseTier(t *testing.T) {
	got, err := ParseTier(" High ")
	require.NoError(t, err)
	assert.Equal(t, TierHigh, got)

	got, err = ParseTier("")
	require.NoError(t, err)
	assert.Equal(t, Tier(""), got)

	_, err = ParseTier("extreme")
	assert.Error(t, err)
}
