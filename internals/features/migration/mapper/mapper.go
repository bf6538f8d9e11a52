// file: internals/features/migration/mapper/mapper.go
//
// Pure transformation of loosely-typed sheet rows into typed records. No side
// effects and fully deterministic: the same row always maps to the same record
// (it runs again on every retry of a batch).
package mapper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrMissingCUE  = errors.New("row has no parseable cue")
	ErrOutOfRange  = errors.New("coordinate out of range")
	ErrMissingName = errors.New("establishment has no name")
)

// latin letters with combining marks removed: "Dirección" → "Direccion"
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeKey turns an arbitrary source column header into the target key
// form: lower-case, diacritics stripped, whitespace → "_", anything outside
// [a-z0-9_] removed.
func NormalizeKey(raw string) string {
	s, _, err := transform.String(deaccent, raw)
	if err != nil {
		s = raw
	}
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	lastUnderscore := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastUnderscore = r == '_'
		}
	}
	return strings.Trim(b.String(), "_")
}

// ParseCUE strips every non-digit character and parses the remainder:
// "  60-8818/00 " → 60881800. Empty or non-numeric input is an error; the
// caller drops the record (a zero sentinel would collide across broken rows).
func ParseCUE(raw string) (int64, error) {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, ErrMissingCUE
	}
	cue, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, ErrMissingCUE
	}
	return cue, nil
}

// ParseCoordinate handles the locale decimal comma ("-34,6037" → -34.6037)
// and enforces the axis range. Blank input is a valid null.
func ParseCoordinate(raw string, min, max float64) (*float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid coordinate %q: %w", raw, err)
	}
	if v < min || v > max {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, v, min, max)
	}
	return &v, nil
}

/* =========================================================
   Target records
========================================================= */

type EstablishmentRecord struct {
	CUE      int64
	Name     string
	District *string
	City     *string
	Address  *string
	Lat      *float64
	Lon      *float64
	Predio   *string
	// Extra carries every source column outside the well-known set, keyed by
	// its normalized name. Blank values are omitted (null).
	Extra map[string]interface{}
}

type ContactRecord struct {
	CUE     int64
	Name    *string
	Surname *string
	Role    *string
	Phone   *string
	Email   *string
}

// source headers arrive in Spanish, English or mixed; aliases are matched
// after normalization
var establishmentAliases = map[string]string{
	"cue":       "cue",
	"nombre":    "name",
	"name":      "name",
	"distrito":  "district",
	"district":  "district",
	"localidad": "city",
	"ciudad":    "city",
	"city":      "city",
	"direccion": "address",
	"domicilio": "address",
	"address":   "address",
	"lat":       "lat",
	"latitud":   "lat",
	"lon":       "lon",
	"lng":       "lon",
	"longitud":  "lon",
	"predio":    "predio",
}

var contactAliases = map[string]string{
	"cue":      "cue",
	"nombre":   "name",
	"name":     "name",
	"apellido": "surname",
	"surname":  "surname",
	"cargo":    "role",
	"rol":      "role",
	"role":     "role",
	"telefono": "phone",
	"phone":    "phone",
	"mail":     "email",
	"correo":   "email",
	"email":    "email",
}

// MapEstablishment maps one source row. Unknown columns are preserved in
// Extra and reported in extraKeys so the caller can surface newly-seen
// columns without touching the schema.
func MapEstablishment(row map[string]string) (EstablishmentRecord, []string, error) {
	rec := EstablishmentRecord{Extra: map[string]interface{}{}}
	var extraKeys []string
	cueSeen := false

	for rawKey, rawVal := range row {
		key := NormalizeKey(rawKey)
		if key == "" {
			continue
		}
		val := strings.TrimSpace(rawVal)

		target, known := establishmentAliases[key]
		if !known {
			if val != "" {
				rec.Extra[key] = val
				extraKeys = append(extraKeys, key)
			}
			continue
		}

		switch target {
		case "cue":
			cue, err := ParseCUE(val)
			if err != nil {
				return EstablishmentRecord{}, nil, err
			}
			rec.CUE = cue
			cueSeen = true
		case "name":
			rec.Name = val
		case "district":
			rec.District = textOrNil(val)
		case "city":
			rec.City = textOrNil(val)
		case "address":
			rec.Address = textOrNil(val)
		case "lat":
			lat, err := ParseCoordinate(val, -90, 90)
			if err != nil {
				return EstablishmentRecord{}, nil, fmt.Errorf("lat: %w", err)
			}
			rec.Lat = lat
		case "lon":
			lon, err := ParseCoordinate(val, -180, 180)
			if err != nil {
				return EstablishmentRecord{}, nil, fmt.Errorf("lon: %w", err)
			}
			rec.Lon = lon
		case "predio":
			rec.Predio = textOrNil(val)
		}
	}

	if !cueSeen {
		return EstablishmentRecord{}, nil, ErrMissingCUE
	}
	if rec.Name == "" {
		return EstablishmentRecord{}, nil, ErrMissingName
	}
	return rec, extraKeys, nil
}

// MapContact maps one contact row. A contact without a resolvable CUE cannot
// be attached to anything and is dropped by the caller.
func MapContact(row map[string]string) (ContactRecord, error) {
	rec := ContactRecord{}
	cueSeen := false

	for rawKey, rawVal := range row {
		key := NormalizeKey(rawKey)
		val := strings.TrimSpace(rawVal)

		target, known := contactAliases[key]
		if !known {
			continue
		}
		switch target {
		case "cue":
			cue, err := ParseCUE(val)
			if err != nil {
				return ContactRecord{}, err
			}
			rec.CUE = cue
			cueSeen = true
		case "name":
			rec.Name = textOrNil(val)
		case "surname":
			rec.Surname = textOrNil(val)
		case "role":
			rec.Role = textOrNil(val)
		case "phone":
			rec.Phone = textOrNil(val)
		case "email":
			rec.Email = textOrNil(val)
		}
	}

	if !cueSeen {
		return ContactRecord{}, ErrMissingCUE
	}
	return rec, nil
}

func textOrNil(val string) *string {
	if val == "" {
		return nil
	}
	return &val
}
