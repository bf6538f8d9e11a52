// file: internals/features/schools/establishments/model/establishment_model.go
package model

import (
	"time"

	"gorm.io/datatypes"
)

// EstablishmentModel maps the establishments table. The CUE is assigned
// externally and immutable; rows are only written by the migration subsystem.
//
// Connectivity/infrastructure columns from the source are open-ended: anything
// outside the well-known set lands in establishment_extra (jsonb) under its
// normalized key, so new source columns never require DDL.
type EstablishmentModel struct {
	EstablishmentCUE int64 `json:"establishment_cue" gorm:"primaryKey;column:establishment_cue"`

	EstablishmentName     string  `json:"establishment_name" gorm:"type:text;not null;column:establishment_name"`
	EstablishmentDistrict *string `json:"establishment_district,omitempty" gorm:"type:text;column:establishment_district"`
	EstablishmentCity     *string `json:"establishment_city,omitempty" gorm:"type:text;column:establishment_city"`
	EstablishmentAddress  *string `json:"establishment_address,omitempty" gorm:"type:text;column:establishment_address"`

	// Valid only inside [-90,90] / [-180,180]; out-of-range source values are
	// rejected by the mapper, never stored.
	EstablishmentLat *float64 `json:"establishment_lat,omitempty" gorm:"column:establishment_lat"`
	EstablishmentLon *float64 `json:"establishment_lon,omitempty" gorm:"column:establishment_lon"`

	// Site identifier; several establishments may share one predio.
	EstablishmentPredio *string `json:"establishment_predio,omitempty" gorm:"type:text;index;column:establishment_predio"`

	EstablishmentExtra datatypes.JSONMap `json:"establishment_extra" gorm:"type:jsonb;column:establishment_extra"`

	EstablishmentCreatedAt time.Time `json:"establishment_created_at" gorm:"column:establishment_created_at;autoCreateTime"`
	EstablishmentUpdatedAt time.Time `json:"establishment_updated_at" gorm:"column:establishment_updated_at;autoUpdateTime"`
}

func (EstablishmentModel) TableName() string { return "establishments" }
