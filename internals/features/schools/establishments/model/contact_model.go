// file: internals/features/schools/establishments/model/contact_model.go
package model

import "time"

// ContactModel maps the contacts table. contact_cue references the
// establishment by value (same external CUE, not a generated FK); contacts
// whose CUE has no establishment row are dropped at load time.
type ContactModel struct {
	ContactID  int64 `json:"contact_id" gorm:"primaryKey;autoIncrement;column:contact_id"`
	ContactCUE int64 `json:"contact_cue" gorm:"not null;index;column:contact_cue"`

	ContactName    *string `json:"contact_name,omitempty" gorm:"type:text;column:contact_name"`
	ContactSurname *string `json:"contact_surname,omitempty" gorm:"type:text;column:contact_surname"`
	ContactRole    *string `json:"contact_role,omitempty" gorm:"type:text;column:contact_role"`
	ContactPhone   *string `json:"contact_phone,omitempty" gorm:"type:text;column:contact_phone"`
	ContactEmail   *string `json:"contact_email,omitempty" gorm:"type:text;column:contact_email"`

	ContactCreatedAt time.Time `json:"contact_created_at" gorm:"column:contact_created_at;autoCreateTime"`
	ContactUpdatedAt time.Time `json:"contact_updated_at" gorm:"column:contact_updated_at;autoUpdateTime"`
}

func (ContactModel) TableName() string { return "contacts" }
