package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	migrationModel "escuelas_backend/internals/features/migration/model"
	schoolModel "escuelas_backend/internals/features/schools/establishments/model"
)

// newTestDB spins up an isolated in-memory sqlite DB with the three owned
// tables. cache=shared keeps the DB alive across pooled connections.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&schoolModel.EstablishmentModel{},
		&schoolModel.ContactModel{},
		&migrationModel.MigrationCheckpointModel{},
	))
	return db
}

// fakeSource serves canned sheet rows and can be told to fail.
type fakeSource struct {
	sheets map[string][]map[string]string
	err    error
	calls  int
}

func (f *fakeSource) GetSheetData(ctx context.Context, sheetName string) ([]map[string]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.sheets[sheetName], nil
}

func establishmentRow(cue, name string, extra map[string]string) map[string]string {
	row := map[string]string{"CUE": cue, "Nombre": name}
	for k, v := range extra {
		row[k] = v
	}
	return row
}
