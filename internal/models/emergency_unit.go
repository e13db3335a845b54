package models

import (
	"github.com/uptrace/bun"
)

// EmergencyUnit is a mobile response resource. AssignedEmergencyID mirrors the
// open emergency currently served by the unit and is nil when the unit is free.
type EmergencyUnit struct {
	bun.BaseModel `bun:"table:emergency_unit,alias:eu"`

	ID                  int64   `bun:"emergency_unit_id,pk,autoincrement" json:"emergency_unit_id"`
	Name                string  `bun:"name,notnull,unique,type:varchar(255)" json:"name"`
	Latitude            float64 `bun:"latitud,notnull" json:"latitud"`
	Longitude           float64 `bun:"longitud,notnull" json:"longitud"`
	AssignedEmergencyID *int64  `bun:"assigned_emergency_id" json:"assigned_emergency_id"`
}

// Busy reports whether the unit currently serves an emergency.
func (u *EmergencyUnit) Busy() bool {
	return u.AssignedEmergencyID != nil
}

// UnitWithStats is the unit projection with counts of the emergencies that reference it.
type UnitWithStats struct {
	EmergencyUnit
	ActiveEmergencies int `json:"active_emergencies"`
	TotalEmergencies  int `json:"total_emergencies"`
}

type CreateUnitRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitud"`
	Longitude float64 `json:"longitud"`
}

// UpdateUnitRequest carries a partial update; nil fields are left untouched.
type UpdateUnitRequest struct {
	Name      *string  `json:"name"`
	Latitude  *float64 `json:"latitud"`
	Longitude *float64 `json:"longitud"`
}

// NearbyQueryParams for the proximity search
type NearbyQueryParams struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}
