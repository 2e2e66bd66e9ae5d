package matching

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholds_Valid(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
}

func TestDefaultThresholds_RangesFollowHeuristicOrder(t *testing.T) {
	th := DefaultThresholds()

	assert.GreaterOrEqual(t, th.ExactEmailSameName, th.ExactEmail)
	assert.GreaterOrEqual(t, th.ExactEmail, th.NameSwapTwoTokens)
	assert.GreaterOrEqual(t, th.NameSwap, th.FirstNameSameOrgInitial)
	assert.GreaterOrEqual(t, th.ContainmentMax, th.ContainmentMin)
	assert.Greater(t, th.CharacterOverlap, th.FirstNameOnly)
	assert.Greater(t, th.FirstNameOnly, th.LooseFirstName)
}

func TestThresholds_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"confidence above max", func(th *Thresholds) { th.ExactEmail = 120 }},
		{"negative confidence", func(th *Thresholds) { th.FirstNameOnly = -1 }},
		{"inverted containment range", func(th *Thresholds) { th.ContainmentMin = 80 }},
		{"max too high", func(th *Thresholds) { th.MaxConfidence = 100 }},
		{"bad overlap ratio", func(th *Thresholds) { th.OverlapRatio = 1.5 }},
		{"zero min length", func(th *Thresholds) { th.FirstNameMinLength = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)
			assert.Error(t, th.Validate())
		})
	}
}

func TestLoadThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("first_name_only: 45\norganization_bonus: 5\n"), 0o600))

	th, err := LoadThresholds(path)
	require.NoError(t, err)
	assert.Equal(t, 45, th.FirstNameOnly)
	assert.Equal(t, 5, th.OrganizationBonus)
	assert.Equal(t, DefaultThresholds().ExactEmail, th.ExactEmail)
}

func TestLoadThresholds_EmptyPath(t *testing.T) {
	th, err := LoadThresholds("")
	require.NoError(t, err)
	assert.Equal(t, DefaultThresholds(), th)
}

func TestLoadThresholds_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("exact_email: 150\n"), 0o600))

	_, err := LoadThresholds(path)
	assert.Error(t, err)
}
