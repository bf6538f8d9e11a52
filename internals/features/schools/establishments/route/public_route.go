// file: internals/features/schools/establishments/route/public_route.go
package route

import (
	"github.com/gofiber/fiber/v2"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"escuelas_backend/internals/features/schools/establishments/controller"
)

func PublicEstablishmentRoutes(public fiber.Router, db *gorm.DB, cache *gocache.Cache) {
	establishmentCtrl := controller.NewEstablishmentController(db, cache)

	// 🏫 Group: /establishments
	est := public.Group("/establishments")

	// Specific paths first so they don't collide with "/:cue"
	est.Get("/autocomplete", establishmentCtrl.Autocomplete)      // 🔎 suggestions (cached)
	est.Get("/shared-site/:predio", establishmentCtrl.SharedSite) // 🏚 co-located establishments

	est.Get("/", establishmentCtrl.List)        // 📄 list + search + filters
	est.Get("/:cue", establishmentCtrl.GetByCUE) // 🔍 detail + contacts + shared_with
}
