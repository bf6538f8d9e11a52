// file: internals/features/migration/route/admin_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"escuelas_backend/internals/features/migration/controller"
	"escuelas_backend/internals/features/migration/service"
)

// AdminMigrationRoutes mounts the migration control surface. The caller
// mounts it under the authenticated admin group.
func AdminMigrationRoutes(admin fiber.Router, db *gorm.DB, runner *service.Runner, processor *service.BatchProcessor, checkpoints *service.CheckpointStore) {
	migrationCtrl := controller.NewMigrationController(db, runner, processor, checkpoints)

	admin.Post("/migrate", migrationCtrl.Migrate)                  // action-dispatched control surface
	admin.Post("/migrate-sheet", migrationCtrl.MigrateSheet)       // one-shot sheet import
	admin.Post("/verify-migration", migrationCtrl.VerifyMigration) // checkpoint + counts
}
