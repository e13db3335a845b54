package models

import (
	"time"

	"github.com/uptrace/bun"
)

type EmergencyStatus int

const (
	StatusPending  EmergencyStatus = 1
	StatusAssigned EmergencyStatus = 2
	StatusClosed   EmergencyStatus = 3
)

func (s EmergencyStatus) Valid() bool {
	return s >= StatusPending && s <= StatusClosed
}

// Open reports whether the emergency still needs (or holds) a unit.
func (s EmergencyStatus) Open() bool {
	return s == StatusPending || s == StatusAssigned
}

func (s EmergencyStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAssigned:
		return "assigned"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type Emergency struct {
	bun.BaseModel `bun:"table:emergencies,alias:e"`

	ID             int64           `bun:"emergency_id,pk,autoincrement" json:"emergency_id"`
	Timestamp      time.Time       `bun:"timestamp,notnull,default:current_timestamp" json:"timestamp"`
	AccidentTypeID *int64          `bun:"tipo_accidente" json:"tipo_accidente"`
	AssignedUnitID *int64          `bun:"assigned_unit" json:"assigned_unit"`
	Latitude       float64         `bun:"latitud,notnull" json:"latitud"`
	Longitude      float64         `bun:"longitud,notnull" json:"longitud"`
	UserID         *int64          `bun:"user_id" json:"user_id"`
	Status         EmergencyStatus `bun:"status,notnull,default:1" json:"status"`

	// Relations, loaded on demand through Expansions
	AccidentType *AccidentType  `bun:"rel:belongs-to,join:tipo_accidente=accident_type_id" json:"accident_type"`
	Unit         *EmergencyUnit `bun:"rel:belongs-to,join:assigned_unit=emergency_unit_id" json:"assigned_unit_rel"`
	Reporter     *UserBasic     `bun:"rel:belongs-to,join:user_id=user_id" json:"user"`
}

// Expansions names the related records attached to an emergency read.
type Expansions struct {
	AccidentType bool
	Unit         bool
	Reporter     bool
}

// ExpandAll is the default view returned by the API.
var ExpandAll = Expansions{AccidentType: true, Unit: true, Reporter: true}

// Relations returns the bun relation names for the enabled expansions.
func (x Expansions) Relations() []string {
	var rels []string
	if x.AccidentType {
		rels = append(rels, "AccidentType")
	}
	if x.Unit {
		rels = append(rels, "Unit")
	}
	if x.Reporter {
		rels = append(rels, "Reporter")
	}
	return rels
}

type CreateEmergencyRequest struct {
	Timestamp      *time.Time       `json:"timestamp"`
	AccidentTypeID *int64           `json:"tipo_accidente"`
	AssignedUnitID *int64           `json:"assigned_unit"`
	Latitude       *float64         `json:"latitud"`
	Longitude      *float64         `json:"longitud"`
	UserID         *int64           `json:"user_id"`
	Status         *EmergencyStatus `json:"status"`
}

// UpdateEmergencyRequest carries a partial update; nil fields are left untouched.
type UpdateEmergencyRequest struct {
	AssignedUnitID *int64           `json:"assigned_unit"`
	Status         *EmergencyStatus `json:"status"`
}

type EmergencyListParams struct {
	Skip   int
	Limit  int
	Status *EmergencyStatus
}
