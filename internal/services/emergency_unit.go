package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"loralinka/internal/logger"
	"loralinka/internal/models"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type EmergencyUnitService struct {
	db   *bun.DB
	logr *logger.Logger
}

func NewEmergencyUnitService(db *bun.DB, logr *logger.Logger) *EmergencyUnitService {
	return &EmergencyUnitService{db: db, logr: logr}
}

// Create registers a unit. Names are unique; a taken name is ErrUnitNameTaken.
func (s *EmergencyUnitService) Create(ctx context.Context, req models.CreateUnitRequest) (*models.EmergencyUnit, error) {
	unit := &models.EmergencyUnit{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureNameFree(ctx, tx, req.Name, 0); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(unit).Exec(ctx)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUnitNameTaken
		}
		return nil, err
	}

	s.logr.Info("emergency unit created", zap.Int64("unit_id", unit.ID), zap.String("name", unit.Name))
	return unit, nil
}

func (s *EmergencyUnitService) Get(ctx context.Context, id int64) (*models.EmergencyUnit, error) {
	unit := new(models.EmergencyUnit)
	err := s.db.NewSelect().Model(unit).Where("emergency_unit_id = ?", id).Scan(ctx)
	if err != nil {
		return nil, noRows(err, "emergency unit", id)
	}
	return unit, nil
}

// GetWithStats returns the unit with counts of open and total emergencies referencing it.
func (s *EmergencyUnitService) GetWithStats(ctx context.Context, id int64) (*models.UnitWithStats, error) {
	unit, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	active, err := s.db.NewSelect().
		Model((*models.Emergency)(nil)).
		Where("assigned_unit = ?", id).
		Where("status IN (?)", bun.In([]models.EmergencyStatus{models.StatusPending, models.StatusAssigned})).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active emergencies: %w", err)
	}

	total, err := s.db.NewSelect().
		Model((*models.Emergency)(nil)).
		Where("assigned_unit = ?", id).
		Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count emergencies: %w", err)
	}

	return &models.UnitWithStats{
		EmergencyUnit:     *unit,
		ActiveEmergencies: active,
		TotalEmergencies:  total,
	}, nil
}

// List returns units ordered by name.
func (s *EmergencyUnitService) List(ctx context.Context, skip, limit int) ([]models.EmergencyUnit, error) {
	units := make([]models.EmergencyUnit, 0)
	err := s.db.NewSelect().
		Model(&units).
		OrderExpr("name ASC, emergency_unit_id ASC").
		Offset(skip).
		Limit(limit).
		Scan(ctx)
	return units, err
}

// FindNearby returns the units within radiusKm of a point, ordered by name.
// A bounding box narrows the rows in SQL and the haversine distance decides.
func (s *EmergencyUnitService) FindNearby(ctx context.Context, params models.NearbyQueryParams) ([]models.EmergencyUnit, error) {
	box := boxAround(params.Latitude, params.Longitude, params.RadiusKm)

	var candidates []models.EmergencyUnit
	q := s.db.NewSelect().
		Model(&candidates).
		Where("latitud BETWEEN ? AND ?", box.MinLat, box.MaxLat)

	switch {
	case box.AllLon:
	case box.MinLon <= box.MaxLon:
		q = q.Where("longitud BETWEEN ? AND ?", box.MinLon, box.MaxLon)
	default:
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("longitud >= ?", box.MinLon).WhereOr("longitud <= ?", box.MaxLon)
		})
	}

	if err := q.OrderExpr("name ASC, emergency_unit_id ASC").Scan(ctx); err != nil {
		return nil, err
	}

	units := make([]models.EmergencyUnit, 0, len(candidates))
	for _, u := range candidates {
		if haversineKm(params.Latitude, params.Longitude, u.Latitude, u.Longitude) <= params.RadiusKm {
			units = append(units, u)
		}
	}
	return units, nil
}

// Update applies a partial update. The assignment back-reference is never touched here.
func (s *EmergencyUnitService) Update(ctx context.Context, id int64, req models.UpdateUnitRequest) (*models.EmergencyUnit, error) {
	unit := new(models.EmergencyUnit)
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := tx.NewSelect().Model(unit).Where("emergency_unit_id = ?", id).Scan(ctx); err != nil {
			return noRows(err, "emergency unit", id)
		}

		var columns []string
		if req.Name != nil {
			if err := ensureNameFree(ctx, tx, *req.Name, id); err != nil {
				return err
			}
			unit.Name = *req.Name
			columns = append(columns, "name")
		}
		if req.Latitude != nil {
			unit.Latitude = *req.Latitude
			columns = append(columns, "latitud")
		}
		if req.Longitude != nil {
			unit.Longitude = *req.Longitude
			columns = append(columns, "longitud")
		}
		if len(columns) == 0 {
			return nil
		}

		_, err := tx.NewUpdate().Model(unit).Column(columns...).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUnitNameTaken
		}
		return nil, err
	}
	return unit, nil
}

// Delete removes a unit. Emergencies referencing it are detached in the same
// transaction; the ones it was serving return to pending.
func (s *EmergencyUnitService) Delete(ctx context.Context, id int64) error {
	var detached int64
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := lockUnitEmergencies(ctx, tx, id); err != nil {
			return err
		}
		if _, err := lockUnits(ctx, tx, id); err != nil {
			return err
		}
		n, err := detachUnit(ctx, tx, id)
		if err != nil {
			return err
		}
		detached = n
		_, err = tx.NewDelete().
			Model((*models.EmergencyUnit)(nil)).
			Where("emergency_unit_id = ?", id).
			Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}

	s.logr.Info("emergency unit deleted", zap.Int64("unit_id", id), zap.Int64("detached_emergencies", detached))
	return nil
}

// ensureNameFree fails with ErrUnitNameTaken when another unit (not exceptID) uses name.
func ensureNameFree(ctx context.Context, tx bun.Tx, name string, exceptID int64) error {
	var other models.EmergencyUnit
	err := tx.NewSelect().
		Model(&other).
		Column("emergency_unit_id").
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if other.ID != exceptID {
		return ErrUnitNameTaken
	}
	return nil
}
