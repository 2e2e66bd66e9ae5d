package relationship

import "github.com/Ramsey-B/clover/pkg/models"

// edgeTable maps an (entity kind, edge type) pair onto its join table
type edgeTable struct {
	name         string
	targetColumn string
	entityColumn string
}

var edgeTables = map[models.EntityKind]map[models.EdgeType]edgeTable{
	models.EntityKindContact: {
		models.EdgeTypeMeeting:     {name: "meeting_contacts", targetColumn: "meeting_id", entityColumn: "contact_id"},
		models.EdgeTypeTask:        {name: "task_contacts", targetColumn: "task_id", entityColumn: "contact_id"},
		models.EdgeTypeDocument:    {name: "document_contacts", targetColumn: "document_id", entityColumn: "contact_id"},
		models.EdgeTypeInteraction: {name: "interaction_contacts", targetColumn: "interaction_id", entityColumn: "contact_id"},
	},
	models.EntityKindCompany: {
		models.EdgeTypeDocument:    {name: "document_companies", targetColumn: "document_id", entityColumn: "company_id"},
		models.EdgeTypeTask:        {name: "task_companies", targetColumn: "task_id", entityColumn: "company_id"},
		models.EdgeTypeInteraction: {name: "interaction_companies", targetColumn: "interaction_id", entityColumn: "company_id"},
	},
}

// edgeTypes lists a kind's join tables in a stable order
func edgeTypes(kind models.EntityKind) []models.EdgeType {
	order := []models.EdgeType{models.EdgeTypeDocument, models.EdgeTypeInteraction, models.EdgeTypeMeeting, models.EdgeTypeTask}
	out := make([]models.EdgeType, 0, len(order))
	for _, t := range order {
		if _, ok := edgeTables[kind][t]; ok {
			out = append(out, t)
		}
	}
	return out
}
