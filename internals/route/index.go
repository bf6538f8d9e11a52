// file: internals/route/index.go
package routes

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"escuelas_backend/internals/configs"
	"escuelas_backend/internals/constants"
	migrationRoute "escuelas_backend/internals/features/migration/route"
	"escuelas_backend/internals/features/migration/service"
	"escuelas_backend/internals/features/migration/sheets"
	schoolRoute "escuelas_backend/internals/features/schools/establishments/route"
	"escuelas_backend/internals/middlewares"
	"escuelas_backend/internals/middlewares/auth_admin"
)

var startTime time.Time

func SetupRoutes(app *fiber.App, db *gorm.DB) {
	startTime = time.Now()

	BaseRoutes(app, db)

	// ===================== PUBLIC =====================
	log.Println("[INFO] Setting up PUBLIC group...")
	public := app.Group("/api/public")

	// injected autocomplete cache (one per process, passed down explicitly)
	autocompleteCache := gocache.New(5*time.Minute, 10*time.Minute)
	schoolRoute.PublicEstablishmentRoutes(public, db, autocompleteCache)

	// ===================== ADMIN (shared daily key) =====================
	log.Println("[INFO] Setting up ADMIN group (key auth + tight limiter)...")
	admin := app.Group("/api/a",
		middlewares.AdminRateLimiter(),
		auth_admin.AdminKey(auth_admin.AdminKeyOpts{Secret: configs.AdminSecret}),
	)

	source, err := sheets.NewGoogleSource(context.Background(),
		configs.SpreadsheetID, configs.SheetsAPIKey)
	if err != nil {
		log.Fatalf("❌ sheets source init failed: %v", err)
	}

	checkpoints := service.NewCheckpointStore(db)
	processor := service.NewBatchProcessor(db, source, checkpoints,
		configs.GetEnv("SHEET_ESTABLISHMENTS", constants.SheetEstablishments),
		configs.GetEnv("SHEET_CONTACTS", constants.SheetContacts),
	)
	runner := service.NewRunner(processor, runnerConfigFromEnv())

	migrationRoute.AdminMigrationRoutes(admin, db, runner, processor, checkpoints)
}

// runnerConfigFromEnv: spec defaults, env-overridable for ops tuning.
func runnerConfigFromEnv() service.RunnerConfig {
	cfg := service.DefaultRunnerConfig()
	cfg.BatchSize = service.ClampBatchSize(configs.GetEnvInt("MIGRATE_BATCH_SIZE", cfg.BatchSize))
	cfg.MaxRetries = configs.GetEnvInt("MIGRATE_MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryBaseDelay = configs.GetEnvDuration("MIGRATE_RETRY_BASE_DELAY", cfg.RetryBaseDelay)
	cfg.CallTimeout = configs.GetEnvDuration("MIGRATE_CALL_TIMEOUT", cfg.CallTimeout)
	cfg.InterBatchDelay = configs.GetEnvDuration("MIGRATE_INTER_BATCH_DELAY", cfg.InterBatchDelay)
	return cfg
}
