// file: internals/features/migration/dto/migration_dto.go
package dto

/* =========================================================
   REQUEST DTOs — admin surface (camelCase wire contract)
   authKey is consumed by the auth_admin middleware; it is
   declared here only so BodyParser does not choke on it.
========================================================= */

type MigrateRequest struct {
	Action     string `json:"action" validate:"required,oneof=getState start pause resume continue reset"`
	BatchSize  int    `json:"batchSize" validate:"omitempty,min=1,max=100"`
	StartIndex *int   `json:"startIndex" validate:"omitempty,min=0"`
	AuthKey    string `json:"authKey"`
}

type MigrateSheetRequest struct {
	SheetName string `json:"sheetName" validate:"required"`
	BatchSize int    `json:"batchSize" validate:"omitempty,min=1,max=100"`
	AuthKey   string `json:"authKey"`
}

/* =========================================================
   RESPONSE DTOs
========================================================= */

type RecordCounts struct {
	Establishments int64 `json:"establishments"`
	Contacts       int64 `json:"contacts"`
}
