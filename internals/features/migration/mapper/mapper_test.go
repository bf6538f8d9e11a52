package mapper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escuelas_backend/internals/features/migration/mapper"
)

func TestNormalizeKey(t *testing.T) {
	cases := map[string]string{
		"CUE":                "cue",
		"Dirección":          "direccion",
		"  Nombre del ISP  ": "nombre_del_isp",
		"Año de instalación": "ano_de_instalacion",
		"Lat.":               "lat",
		"Estado (2024)":      "estado_2024",
		"___":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, mapper.NormalizeKey(in), "input %q", in)
	}
}

func TestParseCUE(t *testing.T) {
	cue, err := mapper.ParseCUE("  60-8818/00 ")
	require.NoError(t, err)
	assert.Equal(t, int64(60881800), cue)

	_, err = mapper.ParseCUE("")
	assert.ErrorIs(t, err, mapper.ErrMissingCUE)

	_, err = mapper.ParseCUE("sin dato")
	assert.ErrorIs(t, err, mapper.ErrMissingCUE)
}

func TestParseCoordinate(t *testing.T) {
	lat, err := mapper.ParseCoordinate("-34,6037", -90, 90)
	require.NoError(t, err)
	require.NotNil(t, lat)
	assert.InDelta(t, -34.6037, *lat, 1e-9)

	blank, err := mapper.ParseCoordinate("   ", -90, 90)
	require.NoError(t, err)
	assert.Nil(t, blank)

	_, err = mapper.ParseCoordinate("120", -90, 90)
	assert.ErrorIs(t, err, mapper.ErrOutOfRange)

	_, err = mapper.ParseCoordinate("-190,5", -180, 180)
	assert.ErrorIs(t, err, mapper.ErrOutOfRange)

	_, err = mapper.ParseCoordinate("norte", -90, 90)
	assert.Error(t, err)
}

func TestMapEstablishment(t *testing.T) {
	row := map[string]string{
		"CUE":           "60-8818/00",
		"Nombre":        "Escuela Primaria N°12",
		"Distrito":      "La Matanza",
		"Localidad":     "San Justo",
		"Dirección":     "Av. Siempreviva 742",
		"Lat":           "-34,6037",
		"Lon":           "-58,3816",
		"Predio":        "606335",
		"Proveedor ISP": "Fibra SA",
		"Estado enlace": "activo",
		"Observaciones": "",
	}

	rec, extras, err := mapper.MapEstablishment(row)
	require.NoError(t, err)

	assert.Equal(t, int64(60881800), rec.CUE)
	assert.Equal(t, "Escuela Primaria N°12", rec.Name)
	require.NotNil(t, rec.District)
	assert.Equal(t, "La Matanza", *rec.District)
	require.NotNil(t, rec.Lat)
	assert.InDelta(t, -34.6037, *rec.Lat, 1e-9)
	require.NotNil(t, rec.Predio)
	assert.Equal(t, "606335", *rec.Predio)

	// unknown columns preserved under normalized keys, blanks dropped
	assert.Equal(t, "Fibra SA", rec.Extra["proveedor_isp"])
	assert.Equal(t, "activo", rec.Extra["estado_enlace"])
	assert.NotContains(t, rec.Extra, "observaciones")
	assert.ElementsMatch(t, []string{"proveedor_isp", "estado_enlace"}, extras)
}

func TestMapEstablishmentRejections(t *testing.T) {
	t.Run("missing cue", func(t *testing.T) {
		_, _, err := mapper.MapEstablishment(map[string]string{"Nombre": "X"})
		assert.ErrorIs(t, err, mapper.ErrMissingCUE)
	})

	t.Run("unparseable cue", func(t *testing.T) {
		_, _, err := mapper.MapEstablishment(map[string]string{"CUE": "s/d", "Nombre": "X"})
		assert.ErrorIs(t, err, mapper.ErrMissingCUE)
	})

	t.Run("out of range lat", func(t *testing.T) {
		_, _, err := mapper.MapEstablishment(map[string]string{"CUE": "1", "Nombre": "X", "Lat": "120"})
		assert.ErrorIs(t, err, mapper.ErrOutOfRange)
	})

	t.Run("missing name", func(t *testing.T) {
		_, _, err := mapper.MapEstablishment(map[string]string{"CUE": "1"})
		assert.ErrorIs(t, err, mapper.ErrMissingName)
	})
}

func TestMapContact(t *testing.T) {
	rec, err := mapper.MapContact(map[string]string{
		"CUE":      "123456",
		"Nombre":   "Ana",
		"Apellido": "García",
		"Cargo":    "Directora",
		"Teléfono": "11-5555-0000",
		"Mail":     "ana@abc.gob.ar",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(123456), rec.CUE)
	require.NotNil(t, rec.Surname)
	assert.Equal(t, "García", *rec.Surname)
	require.NotNil(t, rec.Email)
	assert.Equal(t, "ana@abc.gob.ar", *rec.Email)

	_, err = mapper.MapContact(map[string]string{"Nombre": "Sin CUE"})
	assert.ErrorIs(t, err, mapper.ErrMissingCUE)
}

// mapping is pure: same row, same output, every time
func TestMapEstablishmentDeterministic(t *testing.T) {
	row := map[string]string{"CUE": "99", "Nombre": "E", "Lat": "-1,5", "ISP": "x"}
	first, _, err := mapper.MapEstablishment(row)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, _, err := mapper.MapEstablishment(row)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
