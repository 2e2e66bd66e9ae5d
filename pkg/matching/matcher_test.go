package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/models"
)

func contact(id, name string, attrs map[models.Field]string) *models.Entity {
	return &models.Entity{
		ID:             id,
		OrgID:          "org-1",
		Kind:           models.EntityKindContact,
		Name:           name,
		Attributes:     attrs,
		ApprovalStatus: models.ApprovalStatusApproved,
	}
}

func company(id, name, domain string) *models.Entity {
	return &models.Entity{
		ID:             id,
		OrgID:          "org-1",
		Kind:           models.EntityKindCompany,
		Name:           name,
		Attributes:     map[models.Field]string{models.FieldDomain: domain},
		ApprovalStatus: models.ApprovalStatusApproved,
	}
}

func TestMatcher_NameSwap(t *testing.T) {
	m := NewMatcher(DefaultThresholds())

	a := contact("1", "Jake Ryan", nil)
	b := contact("2", "Ryan Jake", map[models.Field]string{models.FieldEmail: "jake@x.com"})

	match, ok := m.Match(a, b)
	require.True(t, ok)
	assert.GreaterOrEqual(t, match.Confidence, 80)
	assert.Contains(t, match.Reason, "swap")
	assert.Equal(t, HeuristicNameSwap, match.Heuristic)
}

func TestMatcher_ExactEmailIsCaseInsensitive(t *testing.T) {
	m := NewMatcher(DefaultThresholds())

	a := contact("1", "Alice Cooper", map[models.Field]string{models.FieldEmail: "A@B.com"})
	b := contact("2", "Bob Dylan", map[models.Field]string{models.FieldEmail: "a@b.com"})

	match, ok := m.Match(a, b)
	require.True(t, ok)
	assert.Equal(t, HeuristicExactEmail, match.Heuristic)
	assert.Equal(t, "Same email address", match.Reason)
	assert.GreaterOrEqual(t, match.Confidence, 90)
	assert.LessOrEqual(t, match.Confidence, 95)
}

func TestMatcher_ExactEmailWithSharedNameScoresHigher(t *testing.T) {
	m := NewMatcher(DefaultThresholds())
	email := map[models.Field]string{models.FieldEmail: "jo@x.com"}

	plain, ok := m.Match(contact("1", "Jo March", email), contact("2", "Amy Lawrence", email))
	require.True(t, ok)
	shared, ok := m.Match(contact("1", "Jo March", email), contact("2", "Josephine March", email))
	require.True(t, ok)

	assert.Greater(t, shared.Confidence, plain.Confidence)
}

func TestMatcher_Heuristics(t *testing.T) {
	acme := map[models.Field]string{models.FieldOrganization: "Acme Inc"}

	tests := []struct {
		name      string
		a, b      *models.Entity
		heuristic Heuristic
		reason    string
	}{
		{
			name:      "exact normalized name",
			a:         contact("1", "Jake Ryan Jr.", nil),
			b:         contact("2", "jake ryan", nil),
			heuristic: HeuristicExactName,
			reason:    "Same name",
		},
		{
			name:      "first name and organization",
			a:         contact("1", "Jake Ryan", acme),
			b:         contact("2", "Jake Thompson", map[models.Field]string{models.FieldOrganization: "ACME, Inc."}),
			heuristic: HeuristicFirstNameSameOrg,
			reason:    "Same first name and organization",
		},
		{
			name:      "containment",
			a:         contact("1", "Jon Smith", nil),
			b:         contact("2", "Jon Smithers", nil),
			heuristic: HeuristicContainment,
			reason:    "Name contained in other",
		},
		{
			name:      "last name and organization",
			a:         contact("1", "Peter Parker", acme),
			b:         contact("2", "May Parker", acme),
			heuristic: HeuristicLastNameSameOrg,
			reason:    "Same last name and organization",
		},
		{
			name:      "character overlap",
			a:         contact("1", "Katherine Lee", nil),
			b:         contact("2", "Katharine Lee", nil),
			heuristic: HeuristicCharacterOverlap,
			reason:    "Similar spelling",
		},
		{
			name:      "first name only",
			a:         contact("1", "Alice Smith", nil),
			b:         contact("2", "Alice Jones", nil),
			heuristic: HeuristicFirstNameOnly,
			reason:    "Same first name",
		},
	}

	m := NewMatcher(DefaultThresholds())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match, ok := m.Match(tt.a, tt.b)
			require.True(t, ok)
			assert.Equal(t, tt.heuristic, match.Heuristic)
			assert.Equal(t, tt.reason, match.Reason)

			reversed, ok := m.Match(tt.b, tt.a)
			require.True(t, ok)
			assert.Equal(t, match, reversed, "matching is symmetric")
		})
	}
}

func TestMatcher_ContainmentConfidenceWithinRange(t *testing.T) {
	th := DefaultThresholds()
	m := NewMatcher(th)

	match, ok := m.Match(contact("1", "Jon Smith", nil), contact("2", "Jon Smithers", nil))
	require.True(t, ok)
	assert.GreaterOrEqual(t, match.Confidence, th.ContainmentMin)
	assert.LessOrEqual(t, match.Confidence, th.ContainmentMax)
}

func TestMatcher_NoMatch(t *testing.T) {
	m := NewMatcher(DefaultThresholds())

	tests := []struct {
		name string
		a, b *models.Entity
	}{
		{"unrelated names", contact("1", "Alice Smith", nil), contact("2", "Bob Jones", nil)},
		{"short first names", contact("1", "Al Smith", nil), contact("2", "Al Jones", nil)},
		{"blank names", contact("1", "", nil), contact("2", "", nil)},
		{"different kinds", contact("1", "Acme", nil), company("2", "Acme", "acme.com")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := m.Match(tt.a, tt.b)
			assert.False(t, ok)
		})
	}
}

func TestMatcher_OrganizationBonus(t *testing.T) {
	th := DefaultThresholds()
	m := NewMatcher(th)
	acme := map[models.Field]string{models.FieldOrganization: "Acme"}

	without, ok := m.Match(contact("1", "Jake Ryan", nil), contact("2", "Ryan Jake", nil))
	require.True(t, ok)
	with, ok := m.Match(contact("1", "Jake Ryan", acme), contact("2", "Ryan Jake", acme))
	require.True(t, ok)

	assert.Equal(t, without.Confidence+th.OrganizationBonus, with.Confidence)
	assert.Contains(t, with.Reason, "Same organization")
	assert.NotContains(t, without.Reason, "Same organization")
}

func TestMatcher_OrganizationBonusNotAppliedTwice(t *testing.T) {
	th := DefaultThresholds()
	m := NewMatcher(th)
	acme := map[models.Field]string{models.FieldOrganization: "Acme"}

	match, ok := m.Match(contact("1", "Jake Ryan", acme), contact("2", "Jake Thompson", acme))
	require.True(t, ok)
	assert.Equal(t, HeuristicFirstNameSameOrg, match.Heuristic)
	assert.Equal(t, th.FirstNameSameOrg, match.Confidence)
	assert.NotContains(t, match.Reason, "Same organization")
}

func TestMatcher_ConfidenceCapped(t *testing.T) {
	th := DefaultThresholds()
	m := NewMatcher(th)

	match, ok := m.Match(company("1", "Acme Inc", "acme.com"), company("2", "ACME Corporation", "https://www.acme.com"))
	require.True(t, ok)
	assert.Equal(t, HeuristicExactName, match.Heuristic)
	assert.Equal(t, th.MaxConfidence, match.Confidence)
}

func TestMatcher_RelativeOrdering(t *testing.T) {
	m := NewMatcher(DefaultThresholds())
	acme := map[models.Field]string{models.FieldOrganization: "Acme"}
	email := map[models.Field]string{models.FieldEmail: "x@y.com"}

	score := func(a, b *models.Entity) int {
		match, ok := m.Match(a, b)
		require.True(t, ok)
		return match.Confidence
	}

	exactEmail := score(contact("1", "Alpha Beta", email), contact("2", "Gamma Delta", email))
	swap := score(contact("1", "Jake Ryan", nil), contact("2", "Ryan Jake", nil))
	firstOrg := score(contact("1", "Jake Ryan", acme), contact("2", "Jake Thompson", acme))
	overlap := score(contact("1", "Katherine Lee", nil), contact("2", "Katharine Lee", nil))
	firstOnly := score(contact("1", "Alice Smith", nil), contact("2", "Alice Jones", nil))

	assert.Greater(t, exactEmail, swap)
	assert.Greater(t, swap, firstOrg)
	assert.Greater(t, firstOrg, overlap)
	assert.Greater(t, overlap, firstOnly)
}

func TestMatcher_Expanded(t *testing.T) {
	m := NewMatcher(DefaultThresholds())

	t.Run("length containment", func(t *testing.T) {
		a, b := contact("1", "Al", nil), contact("2", "Alfred", nil)
		_, ok := m.Match(a, b)
		assert.False(t, ok)

		match, ok := m.MatchExpanded(a, b)
		require.True(t, ok)
		assert.Equal(t, HeuristicLengthContainment, match.Heuristic)
	})

	t.Run("loose first name", func(t *testing.T) {
		a, b := contact("1", "Jon Smith", nil), contact("2", "Jonathan Doe", nil)
		_, ok := m.Match(a, b)
		assert.False(t, ok)

		match, ok := m.MatchExpanded(a, b)
		require.True(t, ok)
		assert.Equal(t, HeuristicLooseFirstName, match.Heuristic)
	})

	t.Run("base heuristics win", func(t *testing.T) {
		match, ok := m.MatchExpanded(contact("1", "Jake Ryan", nil), contact("2", "Ryan Jake", nil))
		require.True(t, ok)
		assert.Equal(t, HeuristicNameSwap, match.Heuristic)
	})
}

func TestCharacterOverlap(t *testing.T) {
	assert.InDelta(t, 1.0, CharacterOverlap("abc", "cba"), 0.0001)
	assert.InDelta(t, 0.0, CharacterOverlap("", ""), 0.0001)
	assert.InDelta(t, 0.5, CharacterOverlap("aabb", "ab"), 0.0001)
}
