package api

import (
	"errors"
	"strconv"
	"strings"

	"docpipe/core/logger"
	"docpipe/core/store"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const defaultLimit = 100

// Handler handles HTTP requests for the store query API.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the store query routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/stores")
	group.Get("/", h.HandleListStores)
	group.Get("/:name/query", h.HandleQuery)
	group.Get("/:name/distinct/:field", h.HandleDistinct)
}

// HandleListStores returns the names of the served stores.
func (h *Handler) HandleListStores(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"stores": h.service.StoreNames()})
}

// HandleQuery returns documents matching the criteria query parameter
// (JSON), optionally projected to the comma-separated properties
// parameter, capped by limit.
func (h *Handler) HandleQuery(c *fiber.Ctx) error {
	name := c.Params("name")
	l := logger.WithRayID(h.service.logger, c)

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive integer"})
		}
		limit = n
	}
	var properties []string
	if raw := c.Query("properties"); raw != "" {
		properties = strings.Split(raw, ",")
	}

	docs, err := h.service.Query(c.Context(), name, c.Query("criteria"), properties, limit)
	if err != nil {
		return h.fail(c, l, "query failed", err)
	}
	return c.JSON(fiber.Map{"docs": docs, "count": len(docs)})
}

// HandleDistinct returns the distinct values of one field.
func (h *Handler) HandleDistinct(c *fiber.Ctx) error {
	name := c.Params("name")
	l := logger.WithRayID(h.service.logger, c)

	vals, err := h.service.Distinct(c.Context(), name, c.Params("field"), c.Query("criteria"))
	if err != nil {
		return h.fail(c, l, "distinct failed", err)
	}
	return c.JSON(fiber.Map{"values": vals, "count": len(vals)})
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, msg string, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, store.ErrInvalidQuery) {
		status = fiber.StatusBadRequest
	}
	l.Error(msg, zap.Error(err))
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
