package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	keep := &Entity{Kind: EntityKindContact, Attributes: map[Field]string{
		FieldEmail: "jake@x.com",
		FieldTitle: "  ",
	}}

	r := Reconcile(keep, map[Field]string{
		FieldEmail:  "other@x.com",
		FieldTitle:  "CFO",
		FieldPhone:  "555",
		FieldNotes:  "",
		FieldDomain: "acme.com",
	})

	assert.Equal(t, map[Field]string{FieldPhone: "555", FieldTitle: "CFO"}, r.Patch)
	assert.Equal(t, []Field{FieldPhone, FieldTitle}, r.Applied)
	assert.Equal(t, []Field{FieldEmail}, r.Skipped)
	assert.Equal(t, "jake@x.com", keep.Email(), "keep is not mutated")
}
