package matching

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Thresholds holds every confidence value and cut-off the matcher uses.
// Heuristic control flow never embeds a number directly.
type Thresholds struct {
	// Confidence per heuristic
	ExactEmail              int `yaml:"exact_email"`
	ExactEmailSameName      int `yaml:"exact_email_same_name"`
	ExactName               int `yaml:"exact_name"`
	NameSwap                int `yaml:"name_swap"`
	NameSwapTwoTokens       int `yaml:"name_swap_two_tokens"`
	FirstNameSameOrg        int `yaml:"first_name_same_org"`
	FirstNameSameOrgInitial int `yaml:"first_name_same_org_initial"`
	ContainmentMin          int `yaml:"containment_min"`
	ContainmentMax          int `yaml:"containment_max"`
	LastNameSameOrg         int `yaml:"last_name_same_org"`
	CharacterOverlap        int `yaml:"character_overlap"`
	FirstNameOnly           int `yaml:"first_name_only"`
	LengthContainment       int `yaml:"length_containment"`
	LooseFirstName          int `yaml:"loose_first_name"`
	OrganizationBonus       int `yaml:"organization_bonus"`
	MaxConfidence           int `yaml:"max_confidence"`

	// Applicability cut-offs
	ContainmentMinLength       int     `yaml:"containment_min_length"`
	OverlapRatio               float64 `yaml:"overlap_ratio"`
	OverlapMaxLengthDiff       int     `yaml:"overlap_max_length_diff"`
	OverlapMaxLength           int     `yaml:"overlap_max_length"`
	FirstNameMinLength         int     `yaml:"first_name_min_length"`
	LooseFirstNamePrefix       int     `yaml:"loose_first_name_prefix"`
	LengthContainmentMinLength int     `yaml:"length_containment_min_length"`
}

// DefaultThresholds returns the production threshold table
func DefaultThresholds() Thresholds {
	return Thresholds{
		ExactEmail:              90,
		ExactEmailSameName:      95,
		ExactName:               90,
		NameSwap:                80,
		NameSwapTwoTokens:       85,
		FirstNameSameOrg:        70,
		FirstNameSameOrgInitial: 75,
		ContainmentMin:          55,
		ContainmentMax:          70,
		LastNameSameOrg:         55,
		CharacterOverlap:        60,
		FirstNameOnly:           40,
		LengthContainment:       50,
		LooseFirstName:          35,
		OrganizationBonus:       10,
		MaxConfidence:           99,

		ContainmentMinLength:       4,
		OverlapRatio:               0.85,
		OverlapMaxLengthDiff:       2,
		OverlapMaxLength:           12,
		FirstNameMinLength:         3,
		LooseFirstNamePrefix:       3,
		LengthContainmentMinLength: 2,
	}
}

// Validate checks that every confidence fits in [0, MaxConfidence] and the
// cut-offs are usable
func (t Thresholds) Validate() error {
	var errs []error

	if t.MaxConfidence < 1 || t.MaxConfidence > 99 {
		errs = append(errs, fmt.Errorf("max_confidence must be between 1 and 99, got %d", t.MaxConfidence))
	}

	confidences := map[string]int{
		"exact_email":                 t.ExactEmail,
		"exact_email_same_name":       t.ExactEmailSameName,
		"exact_name":                  t.ExactName,
		"name_swap":                   t.NameSwap,
		"name_swap_two_tokens":        t.NameSwapTwoTokens,
		"first_name_same_org":         t.FirstNameSameOrg,
		"first_name_same_org_initial": t.FirstNameSameOrgInitial,
		"containment_min":             t.ContainmentMin,
		"containment_max":             t.ContainmentMax,
		"last_name_same_org":          t.LastNameSameOrg,
		"character_overlap":           t.CharacterOverlap,
		"first_name_only":             t.FirstNameOnly,
		"length_containment":          t.LengthContainment,
		"loose_first_name":            t.LooseFirstName,
	}
	for name, v := range confidences {
		if v < 0 || v > t.MaxConfidence {
			errs = append(errs, fmt.Errorf("%s must be between 0 and %d, got %d", name, t.MaxConfidence, v))
		}
	}

	if t.ContainmentMin > t.ContainmentMax {
		errs = append(errs, fmt.Errorf("containment_min (%d) exceeds containment_max (%d)", t.ContainmentMin, t.ContainmentMax))
	}
	if t.OrganizationBonus < 0 {
		errs = append(errs, fmt.Errorf("organization_bonus must not be negative, got %d", t.OrganizationBonus))
	}
	if t.OverlapRatio <= 0 || t.OverlapRatio > 1 {
		errs = append(errs, fmt.Errorf("overlap_ratio must be in (0, 1], got %v", t.OverlapRatio))
	}
	if t.OverlapMaxLengthDiff < 0 || t.OverlapMaxLength < 1 {
		errs = append(errs, errors.New("overlap length limits must be positive"))
	}
	if t.ContainmentMinLength < 1 || t.FirstNameMinLength < 1 || t.LooseFirstNamePrefix < 1 || t.LengthContainmentMinLength < 1 {
		errs = append(errs, errors.New("minimum lengths must be at least 1"))
	}

	return errors.Join(errs...)
}

// LoadThresholds reads a YAML override file on top of the defaults. Keys
// missing from the file keep their default value.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Thresholds{}, fmt.Errorf("failed to read thresholds file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Thresholds{}, fmt.Errorf("failed to parse thresholds file %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return Thresholds{}, fmt.Errorf("invalid thresholds in %s: %w", path, err)
	}
	return t, nil
}
