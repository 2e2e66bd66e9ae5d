package models

// Field names a mergeable scalar attribute
type Field string

const (
	FieldEmail          Field = "email"
	FieldPhone          Field = "phone"
	FieldOrganization   Field = "organization"
	FieldTitle          Field = "title"
	FieldDateOfBirth    Field = "date_of_birth"
	FieldAddress        Field = "address"
	FieldWebsite        Field = "website"
	FieldLinkedIn       Field = "linkedin"
	FieldBankingPartner Field = "banking_partner"
	FieldCustodian      Field = "custodian"
	FieldCompanyID      Field = "company_id"
	FieldNotes          Field = "notes"
	FieldDomain         Field = "domain"
	FieldIndustry       Field = "industry"
	FieldDescription    Field = "description"
)

var mergeableFields = map[EntityKind][]Field{
	EntityKindContact: {
		FieldEmail,
		FieldPhone,
		FieldOrganization,
		FieldTitle,
		FieldDateOfBirth,
		FieldAddress,
		FieldWebsite,
		FieldLinkedIn,
		FieldBankingPartner,
		FieldCustodian,
		FieldCompanyID,
		FieldNotes,
	},
	EntityKindCompany: {
		FieldDomain,
		FieldIndustry,
		FieldWebsite,
		FieldPhone,
		FieldAddress,
		FieldLinkedIn,
		FieldDescription,
		FieldBankingPartner,
		FieldCustodian,
	},
}

// MergeableFields returns the allow-list of reconcilable fields for a kind,
// in column order
func MergeableFields(kind EntityKind) []Field {
	fields := mergeableFields[kind]
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// IsMergeable reports whether f is on the kind's allow-list
func IsMergeable(kind EntityKind, f Field) bool {
	for _, candidate := range mergeableFields[kind] {
		if candidate == f {
			return true
		}
	}
	return false
}

// OrganizationField is the attribute compared for organization equality
func OrganizationField(kind EntityKind) Field {
	if kind == EntityKindCompany {
		return FieldDomain
	}
	return FieldOrganization
}
