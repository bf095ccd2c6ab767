package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/service"
)

type GenerateHandler struct {
	s  service.GenerationService
	gr repository.GenerationRepository
}

func NewGenerateHandler(s service.GenerationService, gr repository.GenerationRepository) *GenerateHandler {
	return &GenerateHandler{s: s, gr: gr}
}

func (h *GenerateHandler) Generate(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var brief models.ContentBrief
	if err := c.BodyParser(&brief); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	useCache := c.QueryBool("use_cache", true)

	result, err := h.s.Generate(c.Context(), &brief, userID, useCache)
	if err != nil {
		var rateErr *service.RateLimitError
		var flaggedErr *service.FlaggedError
		var providerErr *service.ProviderError

		switch {
		case errors.As(err, &rateErr):
			c.Set("Retry-After", rateErr.ResetAt.UTC().Format(time.RFC3339))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":    err.Error(),
				"reset_at": rateErr.ResetAt,
			})
		case errors.As(err, &flaggedErr):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error":      err.Error(),
				"categories": flaggedErr.Categories,
			})
		case errors.As(err, &providerErr), errors.Is(err, service.ErrMalformedResponse):
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": err.Error(),
			})
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *GenerateHandler) History(c *fiber.Ctx) error {
	userID := GetUserID(c)
	limit := c.QueryInt("limit", 20)

	records, err := h.gr.ListByUserID(c.Context(), userID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list generations",
		})
	}

	return c.Status(fiber.StatusOK).JSON(records)
}
