package services

import (
	"context"
	"fmt"
	"sort"

	"loralinka/internal/database"
	"loralinka/internal/models"

	"github.com/uptrace/bun"
)

// The functions in this file are the only code that writes emergencies.assigned_unit
// or emergency_unit.assigned_emergency_id. They must run inside a transaction.
//
// Invariant kept here: a unit's assigned_emergency_id is set iff exactly one
// non-closed emergency references that unit through assigned_unit.

// lockEmergency loads an emergency, holding its row lock on Postgres until tx ends.
func lockEmergency(ctx context.Context, tx bun.Tx, id int64) (*models.Emergency, error) {
	e := new(models.Emergency)
	q := tx.NewSelect().Model(e).Where("e.emergency_id = ?", id)
	if database.SupportsRowLocks(tx) {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, noRows(err, "emergency", id)
	}
	return e, nil
}

// lockUnitEmergencies returns the ids of the emergencies referencing a unit, in ascending
// order, holding their row locks on Postgres. Paths that touch both tables lock
// emergencies before units.
func lockUnitEmergencies(ctx context.Context, tx bun.Tx, unitID int64) ([]int64, error) {
	ids := make([]int64, 0)
	q := tx.NewSelect().
		Model((*models.Emergency)(nil)).
		Column("emergency_id").
		Where("assigned_unit = ?", unitID).
		OrderExpr("emergency_id ASC")
	if database.SupportsRowLocks(tx) {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("lock emergencies of unit %d: %w", unitID, err)
	}
	return ids, nil
}

// lockUnits loads units in ascending id order, holding their row locks on Postgres.
// A fixed lock order keeps two concurrent reassignments from deadlocking.
func lockUnits(ctx context.Context, tx bun.Tx, ids ...int64) (map[int64]*models.EmergencyUnit, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	units := make(map[int64]*models.EmergencyUnit, len(ids))
	for _, id := range ids {
		if _, seen := units[id]; seen {
			continue
		}
		u := new(models.EmergencyUnit)
		q := tx.NewSelect().Model(u).Where("eu.emergency_unit_id = ?", id)
		if database.SupportsRowLocks(tx) {
			q = q.For("UPDATE")
		}
		if err := q.Scan(ctx); err != nil {
			return nil, noRows(err, "emergency unit", id)
		}
		units[id] = u
	}
	return units, nil
}

// setAssignment points emergency e at unitID (nil detaches it).
//
// With occupy set the unit's back-reference is claimed for e; a unit already
// serving a different emergency yields ErrUnitOccupied. Without occupy the
// reference is only recorded, which is how closed emergencies keep the unit
// that handled them. Any unit e previously occupied is released.
func setAssignment(ctx context.Context, tx bun.Tx, e *models.Emergency, unitID *int64, occupy bool) error {
	var ids []int64
	if e.AssignedUnitID != nil {
		ids = append(ids, *e.AssignedUnitID)
	}
	if unitID != nil {
		ids = append(ids, *unitID)
	}
	units, err := lockUnits(ctx, tx, ids...)
	if err != nil {
		return err
	}

	if e.AssignedUnitID != nil {
		prev := units[*e.AssignedUnitID]
		keep := occupy && unitID != nil && *unitID == prev.ID
		if !keep {
			if err := releaseUnit(ctx, tx, prev, e.ID); err != nil {
				return err
			}
		}
	}

	if unitID != nil && occupy {
		unit := units[*unitID]
		if unit.AssignedEmergencyID != nil && *unit.AssignedEmergencyID != e.ID {
			return fmt.Errorf("unit %d serves emergency %d: %w", unit.ID, *unit.AssignedEmergencyID, ErrUnitOccupied)
		}
		if !unit.Busy() {
			unit.AssignedEmergencyID = &e.ID
			if _, err := tx.NewUpdate().
				Model(unit).
				Column("assigned_emergency_id").
				WherePK().
				Exec(ctx); err != nil {
				return fmt.Errorf("occupy unit %d: %w", unit.ID, err)
			}
		}
	}

	e.AssignedUnitID = unitID
	if _, err := tx.NewUpdate().
		Model(e).
		Column("assigned_unit").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("set assigned unit of emergency %d: %w", e.ID, err)
	}
	return nil
}

// releaseUnit clears the unit's back-reference if it still points at emergencyID.
func releaseUnit(ctx context.Context, tx bun.Tx, unit *models.EmergencyUnit, emergencyID int64) error {
	if unit.AssignedEmergencyID == nil || *unit.AssignedEmergencyID != emergencyID {
		return nil
	}
	unit.AssignedEmergencyID = nil
	if _, err := tx.NewUpdate().
		Model(unit).
		Column("assigned_emergency_id").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("release unit %d: %w", unit.ID, err)
	}
	return nil
}

// transition moves e to status, optionally pointing it at a new unit.
//
//	pending  -> no unit; supplying a unit is ErrInvalidTransition
//	assigned -> the unit (given or current) is occupied; none at all is ErrInvalidTransition
//	closed   -> the unit (given or current) is kept as a reference and released
func transition(ctx context.Context, tx bun.Tx, e *models.Emergency, unitID *int64, status models.EmergencyStatus) error {
	target := e.AssignedUnitID
	if unitID != nil {
		target = unitID
	}

	var err error
	switch status {
	case models.StatusPending:
		if unitID != nil {
			return fmt.Errorf("%w: a pending emergency cannot hold a unit", ErrInvalidTransition)
		}
		err = setAssignment(ctx, tx, e, nil, false)
	case models.StatusAssigned:
		if target == nil {
			return fmt.Errorf("%w: an assigned emergency needs a unit", ErrInvalidTransition)
		}
		err = setAssignment(ctx, tx, e, target, true)
	case models.StatusClosed:
		err = setAssignment(ctx, tx, e, target, false)
	default:
		return fmt.Errorf("%w: unknown status %d", ErrInvalidTransition, status)
	}
	if err != nil {
		return err
	}

	if e.Status == status {
		return nil
	}
	e.Status = status
	if _, err := tx.NewUpdate().
		Model(e).
		Column("status").
		WherePK().
		Exec(ctx); err != nil {
		return fmt.Errorf("set status of emergency %d: %w", e.ID, err)
	}
	return nil
}

// detachUnit removes every emergency reference to a unit that is about to be deleted.
// Emergencies it was serving go back to pending so they can be reassigned.
func detachUnit(ctx context.Context, tx bun.Tx, unitID int64) (int64, error) {
	res, err := tx.NewUpdate().
		Model((*models.Emergency)(nil)).
		Set("assigned_unit = NULL").
		Set("status = CASE WHEN status = ? THEN ? ELSE status END", models.StatusAssigned, models.StatusPending).
		Where("assigned_unit = ?", unitID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("detach unit %d: %w", unitID, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
