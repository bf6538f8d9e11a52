// file: internals/features/migration/controller/migration_controller.go
package controller

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"escuelas_backend/internals/features/migration/dto"
	"escuelas_backend/internals/features/migration/service"
	schoolModel "escuelas_backend/internals/features/schools/establishments/model"
	helper "escuelas_backend/internals/helpers"
)

type MigrationController struct {
	DB          *gorm.DB
	Runner      *service.Runner
	Processor   *service.BatchProcessor
	Checkpoints *service.CheckpointStore
	validate    *validator.Validate
}

func NewMigrationController(db *gorm.DB, runner *service.Runner, processor *service.BatchProcessor, checkpoints *service.CheckpointStore) *MigrationController {
	return &MigrationController{
		DB:          db,
		Runner:      runner,
		Processor:   processor,
		Checkpoints: checkpoints,
		validate:    validator.New(),
	}
}

// 🟠 POST /api/a/migrate — the migration control surface.
// One endpoint, action-dispatched: getState | start | pause | resume |
// continue | reset. "continue" processes exactly one batch for operators
// who want stepwise control instead of the server-side loop.
func (mc *MigrationController) Migrate(c *fiber.Ctx) error {
	var req dto.MigrateRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Malformed request body")
	}
	if err := mc.validate.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	switch req.Action {
	case "getState":
		return mc.state(c)

	case "start":
		if err := mc.Runner.Start(); err != nil {
			if err == service.ErrAlreadyRunning {
				return helper.JsonError(c, fiber.StatusConflict, "A migration run is already active")
			}
			log.Printf("[ERROR] migrate start: %v", err)
			return helper.JsonError(c, fiber.StatusInternalServerError, "Could not start migration")
		}
		log.Println("[MIGRATE] run started by operator")
		return mc.state(c)

	case "pause":
		mc.Runner.Pause()
		return mc.state(c)

	case "resume":
		if err := mc.Runner.Resume(); err != nil {
			return helper.JsonError(c, fiber.StatusConflict, "Run is not paused")
		}
		return mc.state(c)

	case "continue":
		return mc.continueOne(c, req)

	case "reset":
		if err := mc.Runner.Reset(c.UserContext()); err != nil {
			log.Printf("[ERROR] migrate reset: %v", err)
			return helper.JsonError(c, fiber.StatusInternalServerError, "Reset failed")
		}
		log.Println("[MIGRATE] reset by operator: tables cleared, checkpoint zeroed")
		return mc.state(c)
	}

	// unreachable, oneof validation covers it
	return helper.JsonError(c, fiber.StatusBadRequest, "Unknown action")
}

func (mc *MigrationController) state(c *fiber.Ctx) error {
	checkpoint, err := mc.Checkpoints.Read()
	if err != nil {
		log.Printf("[ERROR] read checkpoint: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not read checkpoint")
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"state":      mc.Runner.Status(),
		"checkpoint": checkpoint,
	})
}

func (mc *MigrationController) continueOne(c *fiber.Ctx, req dto.MigrateRequest) error {
	size := service.ClampBatchSize(req.BatchSize)

	start := 0
	if req.StartIndex != nil {
		start = *req.StartIndex
	} else {
		checkpoint, err := mc.Checkpoints.Read()
		if err != nil {
			return helper.JsonError(c, fiber.StatusInternalServerError, "Could not read checkpoint")
		}
		start = checkpoint.CheckpointLastOffset
	}

	result, err := mc.Processor.ProcessBatch(c.UserContext(), start, size)
	if err != nil {
		log.Printf("[ERROR] continue batch at %d: %v", start, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":          true,
		"processedInBatch": result.ProcessedInBatch,
		"totalProcessed":   result.TotalProcessed,
		"totalRecords":     result.TotalRecords,
		"progress":         result.ProgressPercent,
		"nextBatchStart":   result.NextBatchStart,
		"completed":        result.Completed,
		"results": fiber.Map{
			"success":       result.SuccessCount,
			"failed":        result.FailCount,
			"inserted":      result.InsertedCount,
			"updated":       result.UpdatedCount,
			"addedColumns":  result.AddedColumns,
			"sampleDetails": result.SampleDetails,
		},
	})
}

// 🟠 POST /api/a/migrate-sheet — one-shot synchronous import of one sheet.
func (mc *MigrationController) MigrateSheet(c *fiber.Ctx) error {
	var req dto.MigrateSheetRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "Malformed request body")
	}
	if err := mc.validate.Struct(req); err != nil {
		return helper.ValidationError(c, err)
	}

	log.Printf("[MIGRATE] one-shot sheet import: %s (batch %d)", req.SheetName, req.BatchSize)
	result, err := mc.Processor.ProcessSheet(c.UserContext(), req.SheetName, req.BatchSize)
	if err != nil {
		log.Printf("[ERROR] migrate-sheet %s: %v", req.SheetName, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"processed":    result.Processed,
		"inserted":     result.Inserted,
		"updated":      result.Updated,
		"skipped":      result.Skipped,
		"addedColumns": result.AddedColumns,
		"message":      "Sheet imported",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

// 🟠 POST /api/a/verify-migration — checkpoint state + table counts.
func (mc *MigrationController) VerifyMigration(c *fiber.Ctx) error {
	checkpoint, err := mc.Checkpoints.Read()
	if err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not read checkpoint")
	}

	var counts dto.RecordCounts
	if err := mc.DB.Model(&schoolModel.EstablishmentModel{}).Count(&counts.Establishments).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Count failed")
	}
	if err := mc.DB.Model(&schoolModel.ContactModel{}).Count(&counts.Contacts).Error; err != nil {
		return helper.JsonError(c, fiber.StatusInternalServerError, "Count failed")
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"migrationState": checkpoint,
		"recordCounts":   counts,
	})
}
