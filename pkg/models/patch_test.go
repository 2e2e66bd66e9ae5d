package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPatch(t *testing.T) {
	tests := []struct {
		name    string
		kind    EntityKind
		raw     map[string]string
		want    map[Field]string
		wantErr bool
	}{
		{
			name: "contact fields accepted",
			kind: EntityKindContact,
			raw:  map[string]string{"phone": "+1 555 0100", "Title": " CFO "},
			want: map[Field]string{FieldPhone: "+1 555 0100", FieldTitle: "CFO"},
		},
		{
			name: "blank values dropped",
			kind: EntityKindContact,
			raw:  map[string]string{"phone": "  ", "email": "a@b.com"},
			want: map[Field]string{FieldEmail: "a@b.com"},
		},
		{
			name:    "company field rejected on contact",
			kind:    EntityKindContact,
			raw:     map[string]string{"domain": "acme.com"},
			wantErr: true,
		},
		{
			name:    "name is not mergeable",
			kind:    EntityKindCompany,
			raw:     map[string]string{"name": "Acme"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			kind:    EntityKind("meeting"),
			raw:     map[string]string{"phone": "1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPatch(tt.kind, tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPatch)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Fields)
		})
	}
}

func TestPatch_Without(t *testing.T) {
	p := Patch{Kind: EntityKindContact, Fields: map[Field]string{FieldPhone: "1", FieldEmail: "a@b.com"}}

	trimmed := p.Without(FieldPhone)

	assert.Equal(t, []Field{FieldEmail}, trimmed.Keys())
	assert.Len(t, p.Fields, 2, "original patch is untouched")
}

func TestEntity_Organization(t *testing.T) {
	contact := &Entity{Kind: EntityKindContact, Attributes: map[Field]string{FieldOrganization: " Acme "}}
	company := &Entity{Kind: EntityKindCompany, Attributes: map[Field]string{FieldDomain: "acme.com"}}

	assert.Equal(t, "Acme", contact.Organization())
	assert.Equal(t, "acme.com", company.Organization())
	assert.Equal(t, "", (&Entity{Kind: EntityKindContact}).Organization())
}
