package collection

import (
	"strconv"

	"collection-manager/core/logger"
	"collection-manager/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the collection.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the collection routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/collection")
	group.Get("/", h.HandleList)
	group.Get("/check", h.HandleCheck)
	group.Get("/stats", h.HandleStats)
}

// HandleList returns the export view.
// @Summary List Collection
// @Description Returns the denormalized export view, newest image first. Images above max_sanity are omitted.
// @Tags collection
// @Produce json
// @Param max_sanity query int false "Maximum sanity level, -1 disables the filter"
// @Success 200 {array} reconcile.ExportRecord
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /collection [get]
func (h *Handler) HandleList(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	maxSanity := h.service.DefaultMaxSanity()
	if raw := c.Query("max_sanity"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < reconcile.NoSanityFilter {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_sanity must be an integer >= -1"})
		}
		maxSanity = n
	}

	records, err := h.service.Records(c.Context(), maxSanity)
	if err != nil {
		l.Error("Failed to build collection view", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(records)
}

// HandleCheck runs a read-only data quality check.
// @Summary Check Collection
// @Description Reports size mismatches, unreadable originals, missing colours and dangling references. Never repairs.
// @Tags collection
// @Produce json
// @Param tags query boolean false "Report images without tags"
// @Param title query boolean false "Report images without title"
// @Param bookmark query boolean false "Report images without bookmarks"
// @Param view query boolean false "Report images without views"
// @Success 200 {object} reconcile.CheckReport
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /collection/check [get]
func (h *Handler) HandleCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	opts := reconcile.CheckOptions{
		Tags:     c.QueryBool("tags"),
		Title:    c.QueryBool("title"),
		Bookmark: c.QueryBool("bookmark"),
		View:     c.QueryBool("view"),
	}

	l.Info("Running collection check")
	report, err := h.service.Check(c.Context(), opts)
	if err != nil {
		l.Error("Collection check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(report)
}

// HandleStats returns entity counts.
// @Summary Collection Stats
// @Description Returns the number of files, images, authors and tags.
// @Tags collection
// @Produce json
// @Success 200 {object} store.Stats
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /collection/stats [get]
func (h *Handler) HandleStats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.Context())
	if err != nil {
		logger.WithRayID(h.service.logger, c).Error("Failed to load stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stats)
}
