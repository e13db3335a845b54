package services

import (
	"context"
	"fmt"
	"time"

	"loralinka/internal/logger"
	"loralinka/internal/models"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

type EmergencyService struct {
	db   *bun.DB
	logr *logger.Logger
}

func NewEmergencyService(db *bun.DB, logr *logger.Logger) *EmergencyService {
	return &EmergencyService{db: db, logr: logr}
}

// Create records a new emergency. Timestamp defaults to now and status to pending;
// a unit supplied up front is claimed through the same path as Assign.
func (s *EmergencyService) Create(ctx context.Context, req models.CreateEmergencyRequest) (*models.Emergency, error) {
	e := &models.Emergency{
		Timestamp:      time.Now().UTC(),
		AccidentTypeID: req.AccidentTypeID,
		UserID:         req.UserID,
		Status:         models.StatusPending,
	}
	if req.Timestamp != nil {
		e.Timestamp = req.Timestamp.UTC()
	}
	if req.Latitude != nil {
		e.Latitude = *req.Latitude
	}
	if req.Longitude != nil {
		e.Longitude = *req.Longitude
	}

	status := models.StatusPending
	if req.Status != nil {
		status = *req.Status
	} else if req.AssignedUnitID != nil {
		status = models.StatusAssigned
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := checkReferences(ctx, tx, req.AccidentTypeID, req.UserID); err != nil {
			return err
		}
		if _, err := tx.NewInsert().Model(e).Exec(ctx); err != nil {
			return fmt.Errorf("insert emergency: %w", err)
		}
		if req.AssignedUnitID == nil && status == models.StatusPending {
			return nil
		}
		return transition(ctx, tx, e, req.AssignedUnitID, status)
	})
	if err != nil {
		return nil, err
	}

	s.logr.Info("emergency created",
		zap.Int64("emergency_id", e.ID),
		zap.Stringer("status", e.Status))
	return s.Get(ctx, e.ID, models.ExpandAll)
}

// Get returns an emergency with the requested related records attached.
func (s *EmergencyService) Get(ctx context.Context, id int64, expand models.Expansions) (*models.Emergency, error) {
	e := new(models.Emergency)
	q := s.db.NewSelect().Model(e).Where("e.emergency_id = ?", id)
	for _, rel := range expand.Relations() {
		q = q.Relation(rel)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, noRows(err, "emergency", id)
	}
	return e, nil
}

// List returns emergencies newest first, optionally narrowed to one status.
func (s *EmergencyService) List(ctx context.Context, params models.EmergencyListParams, expand models.Expansions) ([]models.Emergency, error) {
	emergencies := make([]models.Emergency, 0)
	q := s.db.NewSelect().Model(&emergencies)
	for _, rel := range expand.Relations() {
		q = q.Relation(rel)
	}
	if params.Status != nil {
		q = q.Where("e.status = ?", *params.Status)
	}
	err := q.
		OrderExpr(`e."timestamp" DESC, e.emergency_id DESC`).
		Offset(params.Skip).
		Limit(params.Limit).
		Scan(ctx)
	return emergencies, err
}

// ListByUser returns the emergencies a user reported, newest first.
func (s *EmergencyService) ListByUser(ctx context.Context, userID int64, expand models.Expansions) ([]models.Emergency, error) {
	emergencies := make([]models.Emergency, 0)
	q := s.db.NewSelect().Model(&emergencies).Where("e.user_id = ?", userID)
	for _, rel := range expand.Relations() {
		q = q.Relation(rel)
	}
	err := q.OrderExpr(`e."timestamp" DESC, e.emergency_id DESC`).Scan(ctx)
	return emergencies, err
}

// Assign links an emergency and a unit in both directions and marks the emergency assigned.
// Both records must exist; a unit serving another open emergency is ErrUnitOccupied.
func (s *EmergencyService) Assign(ctx context.Context, emergencyID, unitID int64) (*models.Emergency, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		e, err := lockEmergency(ctx, tx, emergencyID)
		if err != nil {
			return err
		}
		return transition(ctx, tx, e, &unitID, models.StatusAssigned)
	})
	if err != nil {
		return nil, err
	}

	s.logr.Info("unit assigned",
		zap.Int64("emergency_id", emergencyID),
		zap.Int64("unit_id", unitID))
	return s.Get(ctx, emergencyID, models.ExpandAll)
}

// Update applies a partial update. Absent fields are left untouched, except that giving
// a unit to an open emergency without a status marks it assigned. Closing releases the unit.
func (s *EmergencyService) Update(ctx context.Context, id int64, req models.UpdateEmergencyRequest) (*models.Emergency, error) {
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		e, err := lockEmergency(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.AssignedUnitID == nil && req.Status == nil {
			return nil
		}

		status := e.Status
		switch {
		case req.Status != nil:
			status = *req.Status
		case e.Status.Open():
			status = models.StatusAssigned
		}
		return transition(ctx, tx, e, req.AssignedUnitID, status)
	})
	if err != nil {
		return nil, err
	}

	s.logr.Info("emergency updated", zap.Int64("emergency_id", id))
	return s.Get(ctx, id, models.ExpandAll)
}

// checkReferences turns dangling catalog or user ids into ErrNotFound before they hit a foreign key.
func checkReferences(ctx context.Context, tx bun.Tx, accidentTypeID, userID *int64) error {
	if accidentTypeID != nil {
		exists, err := tx.NewSelect().
			Model((*models.AccidentType)(nil)).
			Where("accident_type_id = ?", *accidentTypeID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("accident type", *accidentTypeID)
		}
	}
	if userID != nil {
		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("user_id = ?", *userID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return notFound("user", *userID)
		}
	}
	return nil
}
