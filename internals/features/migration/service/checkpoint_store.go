// file: internals/features/migration/service/checkpoint_store.go
package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"escuelas_backend/internals/features/migration/model"
)

// CheckpointStore owns the single migration_checkpoints row. Single active
// writer assumed (one migration run at a time); no history is kept.
type CheckpointStore struct {
	DB *gorm.DB
}

func NewCheckpointStore(db *gorm.DB) *CheckpointStore {
	return &CheckpointStore{DB: db}
}

// Read returns the current checkpoint, creating the zero row on first use.
func (s *CheckpointStore) Read() (model.MigrationCheckpointModel, error) {
	var cp model.MigrationCheckpointModel
	err := s.DB.First(&cp, "checkpoint_id = ?", model.CheckpointRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cp = model.MigrationCheckpointModel{CheckpointID: model.CheckpointRowID}
		if createErr := s.DB.Create(&cp).Error; createErr != nil {
			return cp, fmt.Errorf("create zero checkpoint: %w", createErr)
		}
		return cp, nil
	}
	if err != nil {
		return cp, fmt.Errorf("read checkpoint: %w", err)
	}
	return cp, nil
}

// Write replaces the whole logical row. Callers invoke it as the last step of
// a batch so a crash before it simply repeats the batch.
func (s *CheckpointStore) Write(cp model.MigrationCheckpointModel) error {
	cp.CheckpointID = model.CheckpointRowID
	if err := s.DB.Save(&cp).Error; err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Reset zeroes the row back to the not-started state.
func (s *CheckpointStore) Reset() error {
	return s.Write(model.MigrationCheckpointModel{CheckpointID: model.CheckpointRowID})
}
