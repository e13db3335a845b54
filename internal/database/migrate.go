package database

import (
	"context"
	"fmt"

	"loralinka/internal/models"

	"github.com/uptrace/bun"
)

// tables in dependency order; referenced tables first.
var tables = []any{
	(*models.KinCatalog)(nil),
	(*models.AccidentType)(nil),
	(*models.MedicalCondition)(nil),
	(*models.User)(nil),
	(*models.EmergencyContact)(nil),
	(*models.UserCondition)(nil),
	(*models.EmergencyUnit)(nil),
	(*models.Emergency)(nil),
}

// Migrate creates missing tables and indexes. Existing tables are left untouched.
func Migrate(ctx context.Context, db *bun.DB) error {
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, model := range tables {
			if _, err := tx.NewCreateTable().
				Model(model).
				IfNotExists().
				WithForeignKeys().
				Exec(ctx); err != nil {
				return fmt.Errorf("create table %T: %w", model, err)
			}
		}

		indexes := []struct {
			name    string
			model   any
			columns []string
		}{
			{"idx_emergencies_assigned_unit", (*models.Emergency)(nil), []string{"assigned_unit"}},
			{"idx_emergencies_user_id", (*models.Emergency)(nil), []string{"user_id"}},
			{"idx_emergencies_status", (*models.Emergency)(nil), []string{"status"}},
			{"idx_emergency_unit_location", (*models.EmergencyUnit)(nil), []string{"latitud", "longitud"}},
		}
		for _, idx := range indexes {
			if _, err := tx.NewCreateIndex().
				Model(idx.model).
				Index(idx.name).
				Column(idx.columns...).
				IfNotExists().
				Exec(ctx); err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}
		return nil
	})
}
