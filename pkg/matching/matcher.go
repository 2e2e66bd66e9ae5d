// Package matching scores whether two same-kind entities describe the same
// real-world identity
package matching

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
)

// Heuristic identifies which rule produced a match
type Heuristic string

const (
	HeuristicExactEmail        Heuristic = "exact_email"
	HeuristicExactName         Heuristic = "exact_name"
	HeuristicNameSwap          Heuristic = "name_swap"
	HeuristicFirstNameSameOrg  Heuristic = "first_name_same_org"
	HeuristicContainment       Heuristic = "containment"
	HeuristicLastNameSameOrg   Heuristic = "last_name_same_org"
	HeuristicCharacterOverlap  Heuristic = "character_overlap"
	HeuristicFirstNameOnly     Heuristic = "first_name_only"
	HeuristicLengthContainment Heuristic = "length_containment"
	HeuristicLooseFirstName    Heuristic = "loose_first_name"
)

const (
	reasonExactEmail       = "Same email address"
	reasonExactName        = "Same name"
	reasonNameSwap         = "Name parts swapped"
	reasonFirstNameSameOrg = "Same first name and organization"
	reasonContainment      = "Name contained in other"
	reasonLastNameSameOrg  = "Same last name and organization"
	reasonOverlap          = "Similar spelling"
	reasonFirstNameOnly    = "Same first name"
	reasonLooseFirstName   = "Similar first name"
	reasonSameOrganization = "Same organization"
)

// Match is a positive duplicate verdict
type Match struct {
	Confidence int       `json:"confidence"`
	Reason     string    `json:"reason"`
	Heuristic  Heuristic `json:"heuristic"`
}

// Profile is the normalized view of an entity the heuristics compare.
// Scanning prepares each entity once and reuses the profile for every pair.
type Profile struct {
	Entity  *models.Entity
	name    string
	compact string
	tokens  []string
	first   string
	last    string
	email   string
	org     string
}

// Prepare normalizes an entity for matching
func Prepare(e *models.Entity) Profile {
	var name, org string
	if e.Kind == models.EntityKindCompany {
		name = normalizers.NormalizeCompanyName(e.Name)
		org = normalizers.NormalizeDomain(e.Organization())
	} else {
		name = normalizers.NormalizeName(e.Name)
		org = normalizers.NormalizeOrganization(e.Organization())
	}

	tokens := normalizers.Tokens(name)
	return Profile{
		Entity:  e,
		name:    name,
		compact: normalizers.RemoveWhitespace(name),
		tokens:  tokens,
		first:   normalizers.FirstToken(name),
		last:    normalizers.LastToken(name),
		email:   normalizers.NormalizeEmail(e.Email()),
		org:     org,
	}
}

// Matcher applies the ordered heuristics
type Matcher struct {
	thresholds Thresholds
}

// NewMatcher creates a Matcher with the given threshold table
func NewMatcher(thresholds Thresholds) *Matcher {
	return &Matcher{thresholds: thresholds}
}

// Thresholds returns the matcher's threshold table
func (m *Matcher) Thresholds() Thresholds {
	return m.thresholds
}

// Match compares two same-kind entities with the base heuristic set
func (m *Matcher) Match(a, b *models.Entity) (Match, bool) {
	return m.MatchProfiles(Prepare(a), Prepare(b))
}

// MatchExpanded compares with the base set and, when nothing matches, the
// expanded heuristics used for targeted lookups
func (m *Matcher) MatchExpanded(a, b *models.Entity) (Match, bool) {
	return m.MatchProfilesExpanded(Prepare(a), Prepare(b))
}

// MatchProfiles is Match over prepared profiles
func (m *Matcher) MatchProfiles(a, b Profile) (Match, bool) {
	if a.Entity.Kind != b.Entity.Kind {
		return Match{}, false
	}
	match, encodesOrg, ok := m.base(a, b)
	if !ok {
		return Match{}, false
	}
	return m.withOrganizationBonus(match, encodesOrg, a, b), true
}

// MatchProfilesExpanded is MatchExpanded over prepared profiles
func (m *Matcher) MatchProfilesExpanded(a, b Profile) (Match, bool) {
	if match, ok := m.MatchProfiles(a, b); ok {
		return match, true
	}
	if a.Entity.Kind != b.Entity.Kind {
		return Match{}, false
	}
	match, ok := m.expanded(a, b)
	if !ok {
		return Match{}, false
	}
	return m.withOrganizationBonus(match, false, a, b), true
}

// base runs heuristics 1-8 in order. The bool result reports whether the
// winning heuristic already required organization equality.
func (m *Matcher) base(a, b Profile) (Match, bool, bool) {
	t := m.thresholds
	sameOrg := a.org != "" && a.org == b.org
	named := a.name != "" && b.name != ""

	if a.email != "" && a.email == b.email {
		confidence := t.ExactEmail
		if named && sharesToken(a.tokens, b.tokens) {
			confidence = t.ExactEmailSameName
		}
		return Match{Confidence: confidence, Reason: reasonExactEmail, Heuristic: HeuristicExactEmail}, false, true
	}

	if !named {
		return Match{}, false, false
	}

	if a.name == b.name {
		return Match{Confidence: t.ExactName, Reason: reasonExactName, Heuristic: HeuristicExactName}, false, true
	}

	if len(a.tokens) >= 2 && len(b.tokens) >= 2 && a.first == b.last && a.last == b.first {
		confidence := t.NameSwap
		if len(a.tokens) == 2 && len(b.tokens) == 2 {
			confidence = t.NameSwapTwoTokens
		}
		return Match{Confidence: confidence, Reason: reasonNameSwap, Heuristic: HeuristicNameSwap}, false, true
	}

	if sameOrg && a.first == b.first {
		confidence := t.FirstNameSameOrg
		if sameLastInitial(a, b) {
			confidence = t.FirstNameSameOrgInitial
		}
		return Match{Confidence: confidence, Reason: reasonFirstNameSameOrg, Heuristic: HeuristicFirstNameSameOrg}, true, true
	}

	la, lb := utf8.RuneCountInString(a.name), utf8.RuneCountInString(b.name)
	if la >= t.ContainmentMinLength && lb >= t.ContainmentMinLength && contains(a.name, b.name) {
		spread := float64(t.ContainmentMax - t.ContainmentMin)
		confidence := t.ContainmentMin + int(math.Round(spread*containmentRatio(a.name, b.name)))
		return Match{Confidence: confidence, Reason: reasonContainment, Heuristic: HeuristicContainment}, false, true
	}

	if sameOrg && a.last == b.last {
		return Match{Confidence: t.LastNameSameOrg, Reason: reasonLastNameSameOrg, Heuristic: HeuristicLastNameSameOrg}, true, true
	}

	ca, cb := utf8.RuneCountInString(a.compact), utf8.RuneCountInString(b.compact)
	if ca <= t.OverlapMaxLength && cb <= t.OverlapMaxLength && abs(ca-cb) <= t.OverlapMaxLengthDiff &&
		CharacterOverlap(a.compact, b.compact) > t.OverlapRatio {
		return Match{Confidence: t.CharacterOverlap, Reason: reasonOverlap, Heuristic: HeuristicCharacterOverlap}, false, true
	}

	if a.first == b.first && utf8.RuneCountInString(a.first) >= t.FirstNameMinLength {
		return Match{Confidence: t.FirstNameOnly, Reason: reasonFirstNameOnly, Heuristic: HeuristicFirstNameOnly}, false, true
	}

	return Match{}, false, false
}

// expanded runs the targeted-lookup fallbacks
func (m *Matcher) expanded(a, b Profile) (Match, bool) {
	t := m.thresholds
	if a.name == "" || b.name == "" {
		return Match{}, false
	}

	la, lb := utf8.RuneCountInString(a.name), utf8.RuneCountInString(b.name)
	if la >= t.LengthContainmentMinLength && lb >= t.LengthContainmentMinLength && contains(a.name, b.name) {
		return Match{Confidence: t.LengthContainment, Reason: reasonContainment, Heuristic: HeuristicLengthContainment}, true
	}

	if a.first != "" && b.first != "" {
		if a.first == b.first || commonPrefixLength(a.first, b.first) >= t.LooseFirstNamePrefix &&
			(strings.HasPrefix(a.first, b.first) || strings.HasPrefix(b.first, a.first)) {
			return Match{Confidence: t.LooseFirstName, Reason: reasonLooseFirstName, Heuristic: HeuristicLooseFirstName}, true
		}
	}

	return Match{}, false
}

func (m *Matcher) withOrganizationBonus(match Match, encodesOrg bool, a, b Profile) Match {
	if encodesOrg || a.org == "" || a.org != b.org {
		return match
	}
	match.Confidence = min(match.Confidence+m.thresholds.OrganizationBonus, m.thresholds.MaxConfidence)
	match.Reason = match.Reason + "; " + reasonSameOrganization
	return match
}

func contains(a, b string) bool {
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func sharesToken(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func sameLastInitial(a, b Profile) bool {
	if len(a.tokens) < 2 || len(b.tokens) < 2 {
		return false
	}
	ra, _ := utf8.DecodeRuneInString(a.last)
	rb, _ := utf8.DecodeRuneInString(b.last)
	return ra == rb
}
