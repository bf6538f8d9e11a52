package middlewares

import (
	"github.com/gofiber/fiber/v2"

	loggerMiddleware "escuelas_backend/internals/middlewares/logger"
)

// SetupMiddlewares wires the base middleware chain, order matters:
// recover first so the logger still sees panicking requests.
func SetupMiddlewares(app *fiber.App) {
	app.Use(RecoveryMiddleware())
	app.Use(loggerMiddleware.LoggerMiddleware())
	app.Use(CorsMiddleware())
	app.Use(GlobalRateLimiter())
}
