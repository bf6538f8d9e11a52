// file: internals/features/schools/establishments/controller/establishment_controller.go
package controller

import (
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"escuelas_backend/internals/features/schools/establishments/dto"
	"escuelas_backend/internals/features/schools/establishments/model"
	helper "escuelas_backend/internals/helpers"
)

const autocompleteTTL = 5 * time.Minute

type EstablishmentController struct {
	DB *gorm.DB
	// injected, not a package-level singleton: several server instances
	// must not share hidden state
	Cache *gocache.Cache
}

func NewEstablishmentController(db *gorm.DB, cache *gocache.Cache) *EstablishmentController {
	return &EstablishmentController{DB: db, Cache: cache}
}

// 🟢 GET /api/public/establishments?q=&district=&city=&page=&per_page=
func (ec *EstablishmentController) List(c *fiber.Ctx) error {
	paging := helper.ResolvePaging(c, 20, 100)

	tx := ec.DB.Model(&model.EstablishmentModel{})

	if q := strings.TrimSpace(c.Query("q")); q != "" {
		needle := "%" + strings.ToLower(q) + "%"
		tx = tx.Where(`(LOWER(establishment_name) LIKE ?
			OR LOWER(COALESCE(establishment_city,'')) LIKE ?
			OR LOWER(COALESCE(establishment_district,'')) LIKE ?
			OR LOWER(COALESCE(establishment_address,'')) LIKE ?)`,
			needle, needle, needle, needle)
	}
	if district := strings.TrimSpace(c.Query("district")); district != "" {
		tx = tx.Where("LOWER(establishment_district) = LOWER(?)", district)
	}
	if city := strings.TrimSpace(c.Query("city")); city != "" {
		tx = tx.Where("LOWER(establishment_city) = LOWER(?)", city)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		log.Printf("[ERROR] count establishments: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not query establishments")
	}

	var rows []model.EstablishmentModel
	if err := tx.
		Order("establishment_name ASC").
		Limit(paging.Limit).
		Offset(paging.Offset).
		Find(&rows).Error; err != nil {
		log.Printf("[ERROR] list establishments: %v", err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not query establishments")
	}

	return helper.JsonList(c, "Establishments retrieved",
		dto.FromModelEstablishments(rows),
		helper.BuildPaginationFromPage(total, paging.Page, paging.PerPage))
}

// 🟢 GET /api/public/establishments/:cue — detail + contacts + shared site
func (ec *EstablishmentController) GetByCUE(c *fiber.Ctx) error {
	cue, err := strconv.ParseInt(c.Params("cue"), 10, 64)
	if err != nil {
		return helper.JsonError(c, fiber.StatusBadRequest, "CUE must be an integer")
	}

	var row model.EstablishmentModel
	if err := ec.DB.First(&row, "establishment_cue = ?", cue).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return helper.JsonError(c, fiber.StatusNotFound, "Establishment not found")
		}
		log.Printf("[ERROR] get establishment %d: %v", cue, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not query establishment")
	}

	detail := dto.EstablishmentDetailResponse{
		EstablishmentResponse: dto.FromModelEstablishment(&row),
		Contacts:              []dto.ContactResponse{},
		SharedWith:            []dto.SharedSiteEntry{},
	}

	var contacts []model.ContactModel
	if err := ec.DB.
		Where("contact_cue = ?", cue).
		Order("contact_id ASC").
		Find(&contacts).Error; err == nil {
		detail.Contacts = dto.FromModelContacts(contacts)
	}

	if row.EstablishmentPredio != nil {
		detail.SharedWith = ec.siblingsOnPredio(*row.EstablishmentPredio, cue)
	}

	return helper.JsonOK(c, "Establishment retrieved", detail)
}

// 🟢 GET /api/public/establishments/shared-site/:predio
// Every establishment on the site, each listing the others as shared_with.
func (ec *EstablishmentController) SharedSite(c *fiber.Ctx) error {
	predio := strings.TrimSpace(c.Params("predio"))
	if predio == "" {
		return helper.JsonError(c, fiber.StatusBadRequest, "PREDIO is required")
	}

	var rows []model.EstablishmentModel
	if err := ec.DB.
		Where("establishment_predio = ?", predio).
		Order("establishment_cue ASC").
		Find(&rows).Error; err != nil {
		log.Printf("[ERROR] shared site %s: %v", predio, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not query site")
	}
	if len(rows) == 0 {
		return helper.JsonError(c, fiber.StatusNotFound, "No establishments on that PREDIO")
	}

	out := make([]dto.EstablishmentDetailResponse, 0, len(rows))
	for i := range rows {
		entry := dto.EstablishmentDetailResponse{
			EstablishmentResponse: dto.FromModelEstablishment(&rows[i]),
			Contacts:              []dto.ContactResponse{},
			SharedWith:            []dto.SharedSiteEntry{},
		}
		for j := range rows {
			if rows[j].EstablishmentCUE == rows[i].EstablishmentCUE {
				continue
			}
			entry.SharedWith = append(entry.SharedWith, dto.SharedSiteEntry{
				EstablishmentCUE:  rows[j].EstablishmentCUE,
				EstablishmentName: rows[j].EstablishmentName,
			})
		}
		out = append(out, entry)
	}

	return helper.JsonOK(c, "Shared site retrieved", out)
}

// 🟢 GET /api/public/establishments/autocomplete?q=
// Cached suggestions over name + city; capped small, the search box polls it.
func (ec *EstablishmentController) Autocomplete(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if len(q) < 2 {
		return helper.JsonOK(c, "Need at least 2 characters", []dto.AutocompleteItem{})
	}

	cacheKey := "ac:" + strings.ToLower(q)
	if cached, found := ec.Cache.Get(cacheKey); found {
		return helper.JsonOK(c, "Suggestions (cached)", cached)
	}

	needle := "%" + strings.ToLower(q) + "%"
	var rows []model.EstablishmentModel
	if err := ec.DB.
		Select("establishment_cue", "establishment_name", "establishment_city").
		Where(`(LOWER(establishment_name) LIKE ? OR LOWER(COALESCE(establishment_city,'')) LIKE ?)`, needle, needle).
		Order("establishment_name ASC").
		Limit(10).
		Find(&rows).Error; err != nil {
		log.Printf("[ERROR] autocomplete %q: %v", q, err)
		return helper.JsonError(c, fiber.StatusInternalServerError, "Could not query suggestions")
	}

	items := make([]dto.AutocompleteItem, 0, len(rows))
	for i := range rows {
		items = append(items, dto.AutocompleteItem{
			EstablishmentCUE:  rows[i].EstablishmentCUE,
			EstablishmentName: rows[i].EstablishmentName,
			EstablishmentCity: rows[i].EstablishmentCity,
		})
	}

	ec.Cache.Set(cacheKey, items, autocompleteTTL)
	return helper.JsonOK(c, "Suggestions", items)
}

func (ec *EstablishmentController) siblingsOnPredio(predio string, excludeCUE int64) []dto.SharedSiteEntry {
	var rows []model.EstablishmentModel
	if err := ec.DB.
		Select("establishment_cue", "establishment_name").
		Where("establishment_predio = ? AND establishment_cue <> ?", predio, excludeCUE).
		Order("establishment_cue ASC").
		Find(&rows).Error; err != nil {
		log.Printf("[ERROR] siblings on predio %s: %v", predio, err)
		return []dto.SharedSiteEntry{}
	}
	out := make([]dto.SharedSiteEntry, 0, len(rows))
	for i := range rows {
		out = append(out, dto.SharedSiteEntry{
			EstablishmentCUE:  rows[i].EstablishmentCUE,
			EstablishmentName: rows[i].EstablishmentName,
		})
	}
	return out
}
