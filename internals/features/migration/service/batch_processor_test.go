package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"escuelas_backend/internals/features/migration/service"
	schoolModel "escuelas_backend/internals/features/schools/establishments/model"
)

const (
	testSheetEstablishments = "establecimientos"
	testSheetContacts       = "contactos"
)

func newProcessor(t *testing.T, src *fakeSource) *service.BatchProcessor {
	t.Helper()
	db := newTestDB(t)
	return service.NewBatchProcessor(db, src, service.NewCheckpointStore(db),
		testSheetEstablishments, testSheetContacts)
}

func sourceWithRows(n int) *fakeSource {
	rows := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, establishmentRow(fmt.Sprintf("%d", 100000+i), fmt.Sprintf("Escuela %d", i), nil))
	}
	return &fakeSource{sheets: map[string][]map[string]string{
		testSheetEstablishments: rows,
		testSheetContacts:       {},
	}}
}

// 23 rows, batch size 10 → batches of 10, 10 and 3.
func TestProcessBatchFullRun(t *testing.T) {
	src := sourceWithRows(23)
	p := newProcessor(t, src)
	ctx := context.Background()

	first, err := p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, first.ProcessedInBatch)
	assert.Equal(t, 10, first.TotalProcessed)
	assert.Equal(t, 23, first.TotalRecords)
	assert.False(t, first.Completed)
	require.NotNil(t, first.NextBatchStart)
	assert.Equal(t, 10, *first.NextBatchStart)

	second, err := p.ProcessBatch(ctx, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, second.ProcessedInBatch)
	assert.Equal(t, 20, second.TotalProcessed)
	assert.False(t, second.Completed)

	third, err := p.ProcessBatch(ctx, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, third.ProcessedInBatch)
	assert.Equal(t, 23, third.TotalProcessed)
	assert.True(t, third.Completed)
	assert.Nil(t, third.NextBatchStart)

	cp, err := service.NewCheckpointStore(p.DB).Read()
	require.NoError(t, err)
	assert.True(t, cp.CheckpointCompleted)
	assert.Equal(t, 23, cp.CheckpointProcessedRecords)
	assert.Equal(t, 23, cp.CheckpointTotalRecords)

	var count int64
	p.DB.Model(&schoolModel.EstablishmentModel{}).Count(&count)
	assert.Equal(t, int64(23), count)
}

func TestProcessBatchEmpty(t *testing.T) {
	src := sourceWithRows(5)
	p := newProcessor(t, src)
	ctx := context.Background()

	_, err := p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)

	// past the end of the source: the empty-batch signal
	res, err := p.ProcessBatch(ctx, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ProcessedInBatch)
	assert.Equal(t, 5, res.TotalProcessed)
	assert.True(t, res.Completed)
}

// A batch aimed past the end of a fresh source must not fabricate progress:
// nothing was migrated, so the checkpoint stays at zero and the run is not
// marked complete.
func TestProcessBatchPastEndOnFreshCheckpoint(t *testing.T) {
	src := sourceWithRows(23)
	p := newProcessor(t, src)

	res, err := p.ProcessBatch(context.Background(), 50, 10)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ProcessedInBatch)
	assert.Equal(t, 0, res.TotalProcessed)
	assert.False(t, res.Completed)

	// the suggested next start points back at the real frontier
	require.NotNil(t, res.NextBatchStart)
	assert.Equal(t, 0, *res.NextBatchStart)

	cp, err := service.NewCheckpointStore(p.DB).Read()
	require.NoError(t, err)
	assert.Equal(t, 0, cp.CheckpointProcessedRecords)
	assert.Equal(t, 0, cp.CheckpointLastOffset)
	assert.False(t, cp.CheckpointCompleted)

	var count int64
	p.DB.Model(&schoolModel.EstablishmentModel{}).Count(&count)
	assert.Zero(t, count)
}

func TestProcessBatchIdempotent(t *testing.T) {
	src := sourceWithRows(8)
	src.sheets[testSheetContacts] = []map[string]string{
		{"CUE": "100000", "Nombre": "Ana", "Apellido": "García", "Mail": "ana@abc.gob.ar"},
	}
	p := newProcessor(t, src)
	ctx := context.Background()

	first, err := p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 8, first.SuccessCount)
	assert.Equal(t, 8, first.InsertedCount)
	assert.Equal(t, 0, first.UpdatedCount)

	again, err := p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 8, again.SuccessCount)
	assert.Equal(t, 0, again.InsertedCount)
	assert.Equal(t, 8, again.UpdatedCount)

	// upsert-by-key: no duplicate rows, contact included
	var establishments, contacts int64
	p.DB.Model(&schoolModel.EstablishmentModel{}).Count(&establishments)
	p.DB.Model(&schoolModel.ContactModel{}).Count(&contacts)
	assert.Equal(t, int64(8), establishments)
	assert.Equal(t, int64(1), contacts)
}

func TestProcessBatchBlankNeverOverwrites(t *testing.T) {
	src := &fakeSource{sheets: map[string][]map[string]string{
		testSheetEstablishments: {
			establishmentRow("100", "Escuela A", map[string]string{"Dirección": "Calle 1", "Lat": "-34,6"}),
		},
		testSheetContacts: {},
	}}
	p := newProcessor(t, src)
	ctx := context.Background()

	_, err := p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)

	// second import round: same CUE, address now blank
	src.sheets[testSheetEstablishments] = []map[string]string{
		establishmentRow("100", "Escuela A", map[string]string{"Dirección": "", "Lat": ""}),
	}
	_, err = p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)

	var row schoolModel.EstablishmentModel
	require.NoError(t, p.DB.First(&row, "establishment_cue = ?", 100).Error)
	require.NotNil(t, row.EstablishmentAddress)
	assert.Equal(t, "Calle 1", *row.EstablishmentAddress)
	require.NotNil(t, row.EstablishmentLat)
	assert.InDelta(t, -34.6, *row.EstablishmentLat, 1e-9)
}

func TestProcessBatchRejectsBadRows(t *testing.T) {
	src := &fakeSource{sheets: map[string][]map[string]string{
		testSheetEstablishments: {
			establishmentRow("100", "Escuela A", nil),
			establishmentRow("s/d", "Escuela sin CUE", nil),          // unparseable cue
			establishmentRow("200", "Escuela B", map[string]string{"Lat": "120"}), // out of range
		},
		testSheetContacts: {},
	}}
	p := newProcessor(t, src)

	res, err := p.ProcessBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ProcessedInBatch)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, 2, res.FailCount)
	assert.Len(t, res.SampleDetails, 2)

	// the out-of-range coordinate is rejected, not stored
	var count int64
	p.DB.Model(&schoolModel.EstablishmentModel{}).Where("establishment_cue = ?", 200).Count(&count)
	assert.Equal(t, int64(0), count)

	// per-record failures advance the checkpoint anyway
	cp, err := service.NewCheckpointStore(p.DB).Read()
	require.NoError(t, err)
	assert.Equal(t, 3, cp.CheckpointProcessedRecords)
}

func TestProcessBatchSourceFailureLeavesCheckpointAlone(t *testing.T) {
	src := sourceWithRows(10)
	p := newProcessor(t, src)
	ctx := context.Background()

	_, err := p.ProcessBatch(ctx, 0, 5)
	require.NoError(t, err)

	src.err = errors.New("network down")
	_, err = p.ProcessBatch(ctx, 5, 5)
	require.Error(t, err)

	cp, readErr := service.NewCheckpointStore(p.DB).Read()
	require.NoError(t, readErr)
	assert.Equal(t, 5, cp.CheckpointProcessedRecords)
	assert.False(t, cp.CheckpointCompleted)
}

func TestProcessBatchMonotonicCheckpoint(t *testing.T) {
	src := sourceWithRows(20)
	p := newProcessor(t, src)
	ctx := context.Background()

	_, err := p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)
	_, err = p.ProcessBatch(ctx, 10, 10)
	require.NoError(t, err)

	// re-running an earlier offset must not move the checkpoint backward
	_, err = p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)

	cp, err := service.NewCheckpointStore(p.DB).Read()
	require.NoError(t, err)
	assert.Equal(t, 20, cp.CheckpointProcessedRecords)
	assert.Equal(t, 20, cp.CheckpointLastOffset)
}

func TestProcessBatchExtraColumns(t *testing.T) {
	src := &fakeSource{sheets: map[string][]map[string]string{
		testSheetEstablishments: {
			establishmentRow("100", "Escuela A", map[string]string{"Proveedor ISP": "Fibra SA", "Año instalación": "2019"}),
		},
		testSheetContacts: {},
	}}
	p := newProcessor(t, src)

	res, err := p.ProcessBatch(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"proveedor_isp", "ano_instalacion"}, res.AddedColumns)

	var row schoolModel.EstablishmentModel
	require.NoError(t, p.DB.First(&row, "establishment_cue = ?", 100).Error)
	assert.Equal(t, "Fibra SA", row.EstablishmentExtra["proveedor_isp"])
	assert.Equal(t, "2019", row.EstablishmentExtra["ano_instalacion"])
}

func TestProcessSheetContactsDropsOrphans(t *testing.T) {
	src := &fakeSource{sheets: map[string][]map[string]string{
		testSheetEstablishments: {establishmentRow("100", "Escuela A", nil)},
		testSheetContacts: {
			{"CUE": "100", "Nombre": "Ana", "Mail": "ana@abc.gob.ar"},
			{"CUE": "999", "Nombre": "Huérfano", "Mail": "x@x.com"}, // no such establishment
			{"Nombre": "Sin CUE"},                                   // no cue at all
		},
	}}
	p := newProcessor(t, src)
	ctx := context.Background()

	// load establishments only; the contact sheet import is what is under test
	_, err := p.ProcessSheet(ctx, testSheetEstablishments, 10)
	require.NoError(t, err)

	res, err := p.ProcessSheet(ctx, testSheetContacts, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Skipped)

	// every loaded contact has a matching establishment
	var orphans int64
	p.DB.Model(&schoolModel.ContactModel{}).
		Where("contact_cue NOT IN (SELECT establishment_cue FROM establishments)").
		Count(&orphans)
	assert.Equal(t, int64(0), orphans)
}

func TestProcessSheetEstablishments(t *testing.T) {
	src := sourceWithRows(7)
	p := newProcessor(t, src)

	res, err := p.ProcessSheet(context.Background(), testSheetEstablishments, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, res.Processed)
	assert.Equal(t, 7, res.Inserted)
	assert.Equal(t, 0, res.Updated)

	again, err := p.ProcessSheet(context.Background(), testSheetEstablishments, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Inserted)
	assert.Equal(t, 7, again.Updated)
}

func TestResetAll(t *testing.T) {
	src := sourceWithRows(4)
	src.sheets[testSheetContacts] = []map[string]string{
		{"CUE": "100000", "Nombre": "Ana", "Mail": "a@a.com"},
	}
	p := newProcessor(t, src)
	ctx := context.Background()

	_, err := p.ProcessBatch(ctx, 0, 10)
	require.NoError(t, err)
	require.NoError(t, p.ResetAll(ctx))

	var establishments, contacts int64
	p.DB.Model(&schoolModel.EstablishmentModel{}).Count(&establishments)
	p.DB.Model(&schoolModel.ContactModel{}).Count(&contacts)
	assert.Zero(t, establishments)
	assert.Zero(t, contacts)

	cp, err := service.NewCheckpointStore(p.DB).Read()
	require.NoError(t, err)
	assert.Zero(t, cp.CheckpointProcessedRecords)
	assert.False(t, cp.CheckpointCompleted)
}

func TestProcessBatchInvalidArgs(t *testing.T) {
	p := newProcessor(t, sourceWithRows(1))
	_, err := p.ProcessBatch(context.Background(), -1, 10)
	assert.ErrorIs(t, err, service.ErrInvalidBatchArgs)
	_, err = p.ProcessBatch(context.Background(), 0, 0)
	assert.ErrorIs(t, err, service.ErrInvalidBatchArgs)
}
