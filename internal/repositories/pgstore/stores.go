// Package pgstore assembles the Postgres repositories into the store bundle
package pgstore

import (
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories"
	"github.com/Ramsey-B/clover/internal/repositories/activity"
	"github.com/Ramsey-B/clover/internal/repositories/alias"
	"github.com/Ramsey-B/clover/internal/repositories/entity"
	"github.com/Ramsey-B/clover/internal/repositories/relationship"
	"github.com/Ramsey-B/clover/internal/repositories/scanjob"
	"github.com/Ramsey-B/clover/internal/repositories/suggestion"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/models"
)

// NewStores wires every repository to db
func NewStores(db database.DB, logger ectologger.Logger) repositories.Stores {
	return repositories.Stores{
		Contacts:      entity.NewRepository(db, logger, models.EntityKindContact),
		Companies:     entity.NewRepository(db, logger, models.EntityKindCompany),
		Relationships: relationship.NewRepository(db, logger),
		Aliases:       alias.NewRepository(db, logger),
		Audit:         activity.NewRepository(db, logger),
		Suggestions:   suggestion.NewRepository(db, logger),
		ScanJobs:      scanjob.NewRepository(db, logger),
		Tx:            database.NewTransactor(db),
	}
}
