package models

import "github.com/uptrace/bun"

// Catalog tables are read-only lookups referenced by id.

type AccidentType struct {
	bun.BaseModel `bun:"table:accident_types,alias:at"`

	ID          int64   `bun:"accident_type_id,pk,autoincrement" json:"accident_type_id"`
	Description *string `bun:"description,type:varchar(255)" json:"description"`
}

type KinCatalog struct {
	bun.BaseModel `bun:"table:kin_catalog,alias:kc"`

	ID   int64   `bun:"kin_id,pk,autoincrement" json:"kin_id"`
	Name *string `bun:"kin_name,type:varchar(255)" json:"kin_name"`
}

type MedicalCondition struct {
	bun.BaseModel `bun:"table:medical_conditions,alias:mc"`

	ID          int64   `bun:"medical_condition_id,pk,autoincrement" json:"medical_condition_id"`
	Description *string `bun:"description,type:varchar(255)" json:"description"`
}
