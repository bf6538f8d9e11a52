package constants

// Default source sheet names, overridable via SHEET_ESTABLISHMENTS / SHEET_CONTACTS.
const (
	SheetEstablishments = "establecimientos"
	SheetContacts       = "contactos"
)
