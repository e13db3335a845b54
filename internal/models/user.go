package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID           int64     `bun:"user_id,pk,autoincrement" json:"user_id"`
	Name         string    `bun:"name,notnull,type:varchar(255)" json:"name"`
	Phone        string    `bun:"phone,notnull,type:varchar(20)" json:"phone"`
	Birthday     *Date     `bun:"birthday,type:date" json:"birthday"`
	PasswordHash string    `bun:"password,notnull,type:varchar(255)" json:"-"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	// Relations
	EmergencyContacts []*EmergencyContact `bun:"rel:has-many,join:user_id=user_id" json:"emergency_contacts"`
	Conditions        []*MedicalCondition `bun:"m2m:user_conditions,join:User=MedicalCondition" json:"conditions"`
}

// UserBasic is the reporter projection embedded in emergency views.
type UserBasic struct {
	bun.BaseModel `bun:"table:users,alias:ub"`

	ID    int64  `bun:"user_id,pk" json:"user_id"`
	Name  string `bun:"name" json:"name"`
	Phone string `bun:"phone" json:"phone"`
}

// EmergencyContact is identified by (user_id, contact_phone); contact_id is a surrogate key.
type EmergencyContact struct {
	bun.BaseModel `bun:"table:emergency_contacts,alias:ec"`

	ID           int64   `bun:"contact_id,pk,autoincrement" json:"contact_id"`
	UserID       int64   `bun:"user_id,notnull,unique:uq_emergency_contacts_user_phone" json:"-"`
	ContactPhone *string `bun:"contact_phone,type:varchar(20),unique:uq_emergency_contacts_user_phone" json:"contact_phone"`
	KinID        *int64  `bun:"kin" json:"kin"`
	ContactName  *string `bun:"contact_name,type:varchar(255)" json:"contact_name"`
}

// UserCondition is the m2m join between users and medical_conditions.
type UserCondition struct {
	bun.BaseModel `bun:"table:user_conditions,alias:uc"`

	UserID             int64             `bun:"user_id,pk"`
	User               *User             `bun:"rel:belongs-to,join:user_id=user_id"`
	MedicalConditionID int64             `bun:"medical_condition_id,pk"`
	MedicalCondition   *MedicalCondition `bun:"rel:belongs-to,join:medical_condition_id=medical_condition_id"`
}

type EmergencyContactInput struct {
	ContactPhone *string `json:"contact_phone"`
	KinID        *int64  `json:"kin"`
	ContactName  *string `json:"contact_name"`
}

type CreateUserRequest struct {
	Name                string                  `json:"name"`
	Phone               string                  `json:"phone"`
	Birthday            *Date                   `json:"birthday"`
	Password            string                  `json:"password"`
	EmergencyContacts   []EmergencyContactInput `json:"emergency_contacts"`
	MedicalConditionIDs []int64                 `json:"medical_condition_ids"`
}

// UpdateUserRequest carries a partial update; nil fields are left untouched.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	Birthday *Date   `json:"birthday"`
	Password *string `json:"password"`
}

type LoginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}
