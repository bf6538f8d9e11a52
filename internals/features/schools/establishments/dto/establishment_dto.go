// file: internals/features/schools/establishments/dto/establishment_dto.go
package dto

import (
	"time"

	"escuelas_backend/internals/features/schools/establishments/model"
)

/* =========================================================
   RESPONSE DTOs — public read surface (never writable:
   establishments are only created by the migration subsystem)
========================================================= */

type EstablishmentResponse struct {
	EstablishmentCUE      int64                  `json:"establishment_cue"`
	EstablishmentName     string                 `json:"establishment_name"`
	EstablishmentDistrict *string                `json:"establishment_district,omitempty"`
	EstablishmentCity     *string                `json:"establishment_city,omitempty"`
	EstablishmentAddress  *string                `json:"establishment_address,omitempty"`
	EstablishmentLat      *float64               `json:"establishment_lat,omitempty"`
	EstablishmentLon      *float64               `json:"establishment_lon,omitempty"`
	EstablishmentPredio   *string                `json:"establishment_predio,omitempty"`
	EstablishmentExtra    map[string]interface{} `json:"establishment_extra,omitempty"`
	EstablishmentUpdated  time.Time              `json:"establishment_updated_at"`
}

type ContactResponse struct {
	ContactName    *string `json:"contact_name,omitempty"`
	ContactSurname *string `json:"contact_surname,omitempty"`
	ContactRole    *string `json:"contact_role,omitempty"`
	ContactPhone   *string `json:"contact_phone,omitempty"`
	ContactEmail   *string `json:"contact_email,omitempty"`
}

// SharedSiteEntry is a sibling on the same predio.
type SharedSiteEntry struct {
	EstablishmentCUE  int64  `json:"establishment_cue"`
	EstablishmentName string `json:"establishment_name"`
}

type EstablishmentDetailResponse struct {
	EstablishmentResponse
	Contacts   []ContactResponse `json:"contacts"`
	SharedWith []SharedSiteEntry `json:"shared_with"`
}

type AutocompleteItem struct {
	EstablishmentCUE  int64   `json:"establishment_cue"`
	EstablishmentName string  `json:"establishment_name"`
	EstablishmentCity *string `json:"establishment_city,omitempty"`
}

/* =========================================================
   Model converters
========================================================= */

func FromModelEstablishment(m *model.EstablishmentModel) EstablishmentResponse {
	return EstablishmentResponse{
		EstablishmentCUE:      m.EstablishmentCUE,
		EstablishmentName:     m.EstablishmentName,
		EstablishmentDistrict: m.EstablishmentDistrict,
		EstablishmentCity:     m.EstablishmentCity,
		EstablishmentAddress:  m.EstablishmentAddress,
		EstablishmentLat:      m.EstablishmentLat,
		EstablishmentLon:      m.EstablishmentLon,
		EstablishmentPredio:   m.EstablishmentPredio,
		EstablishmentExtra:    m.EstablishmentExtra,
		EstablishmentUpdated:  m.EstablishmentUpdatedAt,
	}
}

func FromModelEstablishments(ms []model.EstablishmentModel) []EstablishmentResponse {
	out := make([]EstablishmentResponse, 0, len(ms))
	for i := range ms {
		out = append(out, FromModelEstablishment(&ms[i]))
	}
	return out
}

func FromModelContact(m *model.ContactModel) ContactResponse {
	return ContactResponse{
		ContactName:    m.ContactName,
		ContactSurname: m.ContactSurname,
		ContactRole:    m.ContactRole,
		ContactPhone:   m.ContactPhone,
		ContactEmail:   m.ContactEmail,
	}
}

func FromModelContacts(ms []model.ContactModel) []ContactResponse {
	out := make([]ContactResponse, 0, len(ms))
	for i := range ms {
		out = append(out, FromModelContact(&ms[i]))
	}
	return out
}
