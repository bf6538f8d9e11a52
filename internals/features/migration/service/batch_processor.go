// file: internals/features/migration/service/batch_processor.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"escuelas_backend/internals/features/migration/mapper"
	checkpointModel "escuelas_backend/internals/features/migration/model"
	"escuelas_backend/internals/features/migration/sheets"
	schoolModel "escuelas_backend/internals/features/schools/establishments/model"
)

const (
	MinBatchSize     = 5
	MaxBatchSize     = 50
	DefaultBatchSize = 10

	// bound on the per-batch failure sample returned to the operator
	maxSampleDetails = 20
)

var ErrInvalidBatchArgs = errors.New("invalid batch arguments")

// BatchResult is the per-batch report. Field names follow the admin API
// contract (camelCase on the wire).
type BatchResult struct {
	ProcessedInBatch int      `json:"processedInBatch"`
	TotalProcessed   int      `json:"totalProcessed"`
	TotalRecords     int      `json:"totalRecords"`
	ProgressPercent  float64  `json:"progressPercent"`
	NextBatchStart   *int     `json:"nextBatchStart"`
	Completed        bool     `json:"completed"`
	SuccessCount     int      `json:"successCount"`
	FailCount        int      `json:"failCount"`
	InsertedCount    int      `json:"insertedCount"`
	UpdatedCount     int      `json:"updatedCount"`
	AddedColumns     []string `json:"addedColumns"`
	SampleDetails    []string `json:"sampleDetails"`
}

// SheetResult reports a one-shot whole-sheet import (/migrate-sheet).
type SheetResult struct {
	Processed    int      `json:"processed"`
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	Skipped      int      `json:"skipped"`
	AddedColumns []string `json:"addedColumns"`
}

// BatchProcessor upserts one contiguous slice of source rows per call and
// advances the checkpoint as its final step. Per-record failures are counted,
// never fatal to the batch; a source fetch failure fails the whole batch with
// no checkpoint write.
type BatchProcessor struct {
	DB                 *gorm.DB
	Source             sheets.Source
	Checkpoints        *CheckpointStore
	EstablishmentSheet string
	ContactSheet       string
}

func NewBatchProcessor(db *gorm.DB, source sheets.Source, checkpoints *CheckpointStore, establishmentSheet, contactSheet string) *BatchProcessor {
	return &BatchProcessor{
		DB:                 db,
		Source:             source,
		Checkpoints:        checkpoints,
		EstablishmentSheet: establishmentSheet,
		ContactSheet:       contactSheet,
	}
}

// ClampBatchSize bounds an operator-supplied batch size to the supported
// range; oversized batches tend to run past the per-call timeout.
func ClampBatchSize(size int) int {
	if size <= 0 {
		return DefaultBatchSize
	}
	if size < MinBatchSize {
		return MinBatchSize
	}
	if size > MaxBatchSize {
		return MaxBatchSize
	}
	return size
}

func (p *BatchProcessor) ProcessBatch(ctx context.Context, startOffset, batchSize int) (BatchResult, error) {
	if startOffset < 0 || batchSize <= 0 {
		return BatchResult{}, fmt.Errorf("%w: startOffset=%d batchSize=%d", ErrInvalidBatchArgs, startOffset, batchSize)
	}

	// full re-fetch every batch: redundant network calls traded for never
	// holding a stale snapshot across a multi-minute run
	rows, err := p.Source.GetSheetData(ctx, p.EstablishmentSheet)
	if err != nil {
		return BatchResult{}, err
	}
	contactRows, err := p.Source.GetSheetData(ctx, p.ContactSheet)
	if err != nil {
		return BatchResult{}, err
	}
	contactsByCUE := groupContacts(contactRows)

	prev, err := p.Checkpoints.Read()
	if err != nil {
		return BatchResult{}, err
	}

	total := len(rows)
	end := startOffset + batchSize
	if end > total {
		end = total
	}

	result := BatchResult{TotalRecords: total, AddedColumns: []string{}, SampleDetails: []string{}}
	seenColumns := map[string]bool{}

	if startOffset < total {
		for i := startOffset; i < end; i++ {
			if err := ctx.Err(); err != nil {
				return BatchResult{}, err
			}
			if err := p.upsertRow(rows[i], contactsByCUE, &result, seenColumns); err != nil {
				result.FailCount++
				if len(result.SampleDetails) < maxSampleDetails {
					result.SampleDetails = append(result.SampleDetails, fmt.Sprintf("row %d: %v", i, err))
				}
			} else {
				result.SuccessCount++
			}
		}
		result.ProcessedInBatch = end - startOffset
	}

	// progress accrues from the persisted checkpoint, never from the
	// requested offset: a batch aimed past the end of the source adds
	// nothing, and re-running an already-covered offset moves nothing back
	processed := startOffset + result.ProcessedInBatch
	if processed < prev.CheckpointProcessedRecords {
		processed = prev.CheckpointProcessedRecords
	}
	if ceiling := prev.CheckpointProcessedRecords + result.ProcessedInBatch; processed > ceiling {
		processed = ceiling
	}
	if processed > total {
		processed = total
	}

	result.TotalProcessed = processed
	result.Completed = processed >= total
	if total > 0 {
		result.ProgressPercent = float64(processed) / float64(total) * 100
	} else {
		result.ProgressPercent = 100
	}

	lastOffset := prev.CheckpointLastOffset
	if lo := startOffset + result.ProcessedInBatch; result.ProcessedInBatch > 0 && lo > lastOffset {
		lastOffset = lo
	}

	if !result.Completed {
		next := startOffset + result.ProcessedInBatch
		if result.ProcessedInBatch == 0 {
			// empty batch: point the caller back at the real frontier
			next = lastOffset
		}
		result.NextBatchStart = &next
	}

	// last step of the batch, by construction: a crash anywhere above leaves
	// the checkpoint untouched and the batch repeatable
	if err := p.Checkpoints.Write(checkpointModel.MigrationCheckpointModel{
		CheckpointLastOffset:       lastOffset,
		CheckpointTotalRecords:     total,
		CheckpointProcessedRecords: processed,
		CheckpointCompleted:        result.Completed,
		CheckpointUpdatedAt:        time.Now(),
	}); err != nil {
		return BatchResult{}, err
	}

	return result, nil
}

func (p *BatchProcessor) upsertRow(row map[string]string, contactsByCUE map[int64][]mapper.ContactRecord, result *BatchResult, seenColumns map[string]bool) error {
	rec, extraKeys, err := mapper.MapEstablishment(row)
	if err != nil {
		return err
	}
	for _, key := range extraKeys {
		if !seenColumns[key] {
			seenColumns[key] = true
			result.AddedColumns = append(result.AddedColumns, key)
		}
	}

	inserted, err := p.upsertEstablishment(rec)
	if err != nil {
		return err
	}
	if inserted {
		result.InsertedCount++
	} else {
		result.UpdatedCount++
	}

	for _, contact := range contactsByCUE[rec.CUE] {
		if err := p.upsertContact(contact); err != nil {
			return fmt.Errorf("contact for cue %d: %w", rec.CUE, err)
		}
	}
	return nil
}

// upsertEstablishment inserts a new row, or updates only the non-blank
// incoming fields: a blank source cell never clobbers an existing value.
func (p *BatchProcessor) upsertEstablishment(rec mapper.EstablishmentRecord) (inserted bool, err error) {
	var existing schoolModel.EstablishmentModel
	findErr := p.DB.First(&existing, "establishment_cue = ?", rec.CUE).Error

	if errors.Is(findErr, gorm.ErrRecordNotFound) {
		row := schoolModel.EstablishmentModel{
			EstablishmentCUE:      rec.CUE,
			EstablishmentName:     rec.Name,
			EstablishmentDistrict: rec.District,
			EstablishmentCity:     rec.City,
			EstablishmentAddress:  rec.Address,
			EstablishmentLat:      rec.Lat,
			EstablishmentLon:      rec.Lon,
			EstablishmentPredio:   rec.Predio,
			EstablishmentExtra:    datatypes.JSONMap(rec.Extra),
		}
		if err := p.DB.Create(&row).Error; err != nil {
			return false, fmt.Errorf("insert establishment %d: %w", rec.CUE, err)
		}
		return true, nil
	}
	if findErr != nil {
		return false, fmt.Errorf("find establishment %d: %w", rec.CUE, findErr)
	}

	updates := map[string]interface{}{}
	if rec.Name != "" {
		updates["establishment_name"] = rec.Name
	}
	setIfPresent(updates, "establishment_district", rec.District)
	setIfPresent(updates, "establishment_city", rec.City)
	setIfPresent(updates, "establishment_address", rec.Address)
	if rec.Lat != nil {
		updates["establishment_lat"] = *rec.Lat
	}
	if rec.Lon != nil {
		updates["establishment_lon"] = *rec.Lon
	}
	setIfPresent(updates, "establishment_predio", rec.Predio)

	if len(rec.Extra) > 0 {
		merged := map[string]interface{}{}
		for k, v := range existing.EstablishmentExtra {
			merged[k] = v
		}
		for k, v := range rec.Extra {
			merged[k] = v
		}
		updates["establishment_extra"] = datatypes.JSONMap(merged)
	}

	if len(updates) == 0 {
		return false, nil
	}
	if err := p.DB.Model(&existing).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("update establishment %d: %w", rec.CUE, err)
	}
	return false, nil
}

// upsertContact matches an existing row by (cue, email) when the email is
// present, else by (cue, name, surname) — contacts carry no natural key of
// their own, so this is what keeps re-runs idempotent.
func (p *BatchProcessor) upsertContact(rec mapper.ContactRecord) error {
	q := p.DB.Model(&schoolModel.ContactModel{}).Where("contact_cue = ?", rec.CUE)
	if rec.Email != nil {
		q = q.Where("LOWER(contact_email) = LOWER(?)", *rec.Email)
	} else {
		q = q.Where("contact_name IS NOT DISTINCT FROM ? AND contact_surname IS NOT DISTINCT FROM ?", rec.Name, rec.Surname)
	}

	var existing schoolModel.ContactModel
	findErr := q.First(&existing).Error

	if errors.Is(findErr, gorm.ErrRecordNotFound) {
		row := schoolModel.ContactModel{
			ContactCUE:     rec.CUE,
			ContactName:    rec.Name,
			ContactSurname: rec.Surname,
			ContactRole:    rec.Role,
			ContactPhone:   rec.Phone,
			ContactEmail:   rec.Email,
		}
		return p.DB.Create(&row).Error
	}
	if findErr != nil {
		return findErr
	}

	updates := map[string]interface{}{}
	setIfPresent(updates, "contact_name", rec.Name)
	setIfPresent(updates, "contact_surname", rec.Surname)
	setIfPresent(updates, "contact_role", rec.Role)
	setIfPresent(updates, "contact_phone", rec.Phone)
	setIfPresent(updates, "contact_email", rec.Email)
	if len(updates) == 0 {
		return nil
	}
	return p.DB.Model(&existing).Updates(updates).Error
}

// ProcessSheet imports one whole sheet synchronously in batchSize chunks.
// Contacts whose CUE has no establishment row are skipped (orphans).
func (p *BatchProcessor) ProcessSheet(ctx context.Context, sheetName string, batchSize int) (SheetResult, error) {
	rows, err := p.Source.GetSheetData(ctx, sheetName)
	if err != nil {
		return SheetResult{}, err
	}
	batchSize = ClampBatchSize(batchSize)

	result := SheetResult{AddedColumns: []string{}}
	seenColumns := map[string]bool{}
	isContactSheet := strings.EqualFold(sheetName, p.ContactSheet)

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return SheetResult{}, err
		}
		// chunk boundary: let the pool breathe between chunks
		if i > 0 && i%batchSize == 0 {
			time.Sleep(10 * time.Millisecond)
		}

		result.Processed++
		if isContactSheet {
			if err := p.importContactRow(row, &result); err != nil {
				result.Skipped++
			}
			continue
		}

		batchView := BatchResult{AddedColumns: result.AddedColumns}
		if err := p.upsertRow(row, map[int64][]mapper.ContactRecord{}, &batchView, seenColumns); err != nil {
			result.Skipped++
			continue
		}
		result.Inserted += batchView.InsertedCount
		result.Updated += batchView.UpdatedCount
		result.AddedColumns = batchView.AddedColumns
	}
	return result, nil
}

func (p *BatchProcessor) importContactRow(row map[string]string, result *SheetResult) error {
	rec, err := mapper.MapContact(row)
	if err != nil {
		return err
	}

	// orphan filter: a contact must point at a loaded establishment
	var count int64
	if err := p.DB.Model(&schoolModel.EstablishmentModel{}).
		Where("establishment_cue = ?", rec.CUE).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("no establishment for cue %d", rec.CUE)
	}

	var before int64
	p.DB.Model(&schoolModel.ContactModel{}).Where("contact_cue = ?", rec.CUE).Count(&before)
	if err := p.upsertContact(rec); err != nil {
		return err
	}
	var after int64
	p.DB.Model(&schoolModel.ContactModel{}).Where("contact_cue = ?", rec.CUE).Count(&after)
	if after > before {
		result.Inserted++
	} else {
		result.Updated++
	}
	return nil
}

// ResetProgress zeroes the checkpoint, leaving loaded rows alone.
func (p *BatchProcessor) ResetProgress() error {
	return p.Checkpoints.Reset()
}

// ResetAll is the administrative delete-all: target rows plus checkpoint.
func (p *BatchProcessor) ResetAll(ctx context.Context) error {
	tx := p.DB.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := tx.Delete(&schoolModel.ContactModel{}).Error; err != nil {
		return fmt.Errorf("delete contacts: %w", err)
	}
	if err := tx.Delete(&schoolModel.EstablishmentModel{}).Error; err != nil {
		return fmt.Errorf("delete establishments: %w", err)
	}
	return p.Checkpoints.Reset()
}

func groupContacts(rows []map[string]string) map[int64][]mapper.ContactRecord {
	grouped := make(map[int64][]mapper.ContactRecord)
	for _, row := range rows {
		rec, err := mapper.MapContact(row)
		if err != nil {
			// contact without a resolvable cue: dropped
			continue
		}
		grouped[rec.CUE] = append(grouped[rec.CUE], rec)
	}
	return grouped
}

func setIfPresent(updates map[string]interface{}, column string, val *string) {
	if val != nil {
		updates[column] = *val
	}
}
