package services

import (
	"context"

	"loralinka/internal/models"

	"github.com/uptrace/bun"
)

// CatalogService serves the read-only lookup tables.
type CatalogService struct {
	db *bun.DB
}

func NewCatalogService(db *bun.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) MedicalConditions(ctx context.Context) ([]models.MedicalCondition, error) {
	return listCatalog[models.MedicalCondition](ctx, s.db, "medical_condition_id")
}

func (s *CatalogService) MedicalCondition(ctx context.Context, id int64) (*models.MedicalCondition, error) {
	return getCatalog[models.MedicalCondition](ctx, s.db, "medical_condition_id", "medical condition", id)
}

func (s *CatalogService) KinTypes(ctx context.Context) ([]models.KinCatalog, error) {
	return listCatalog[models.KinCatalog](ctx, s.db, "kin_id")
}

func (s *CatalogService) KinType(ctx context.Context, id int64) (*models.KinCatalog, error) {
	return getCatalog[models.KinCatalog](ctx, s.db, "kin_id", "kin catalog item", id)
}

func (s *CatalogService) AccidentTypes(ctx context.Context) ([]models.AccidentType, error) {
	return listCatalog[models.AccidentType](ctx, s.db, "accident_type_id")
}

func (s *CatalogService) AccidentType(ctx context.Context, id int64) (*models.AccidentType, error) {
	return getCatalog[models.AccidentType](ctx, s.db, "accident_type_id", "accident type", id)
}

// Units lists every unit by id, the catalog view of the units table.
func (s *CatalogService) Units(ctx context.Context) ([]models.EmergencyUnit, error) {
	return listCatalog[models.EmergencyUnit](ctx, s.db, "emergency_unit_id")
}

func (s *CatalogService) Unit(ctx context.Context, id int64) (*models.EmergencyUnit, error) {
	return getCatalog[models.EmergencyUnit](ctx, s.db, "emergency_unit_id", "emergency unit", id)
}

func listCatalog[T any](ctx context.Context, db bun.IDB, pk string) ([]T, error) {
	rows := make([]T, 0)
	err := db.NewSelect().Model(&rows).OrderExpr("? ASC", bun.Ident(pk)).Scan(ctx)
	return rows, err
}

func getCatalog[T any](ctx context.Context, db bun.IDB, pk, entity string, id int64) (*T, error) {
	row := new(T)
	if err := db.NewSelect().Model(row).Where("? = ?", bun.Ident(pk), id).Scan(ctx); err != nil {
		return nil, noRows(err, entity, id)
	}
	return row, nil
}
