// file: internals/features/migration/model/checkpoint_model.go
package model

import "time"

// CheckpointRowID: the checkpoint is one logical row, never deleted, only
// overwritten. First read creates it in the zero state.
const CheckpointRowID = 1

// MigrationCheckpointModel tracks progress of the migration run: last
// processed offset, totals and the completed flag. Written only by the batch
// processor (last step of each batch) and by an explicit reset.
type MigrationCheckpointModel struct {
	CheckpointID uint `json:"checkpoint_id" gorm:"primaryKey;column:checkpoint_id"`

	CheckpointLastOffset       int  `json:"checkpoint_last_offset" gorm:"not null;default:0;column:checkpoint_last_offset"`
	CheckpointTotalRecords     int  `json:"checkpoint_total_records" gorm:"not null;default:0;column:checkpoint_total_records"`
	CheckpointProcessedRecords int  `json:"checkpoint_processed_records" gorm:"not null;default:0;column:checkpoint_processed_records"`
	CheckpointCompleted        bool `json:"checkpoint_completed" gorm:"not null;default:false;column:checkpoint_completed"`

	CheckpointUpdatedAt time.Time `json:"checkpoint_updated_at" gorm:"column:checkpoint_updated_at;autoUpdateTime"`
}

func (MigrationCheckpointModel) TableName() string { return "migration_checkpoints" }
