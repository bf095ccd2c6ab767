package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/service"
)

type RuleHandler struct {
	rr         repository.RuleRepository
	re         repository.RuleExecutionRepository
	automation service.AutomationService
}

func NewRuleHandler(
	rr repository.RuleRepository,
	re repository.RuleExecutionRepository,
	automation service.AutomationService) *RuleHandler {
	return &RuleHandler{rr: rr, re: re, automation: automation}
}

var validTriggerTypes = map[string]bool{
	models.TriggerTypeSchedule:            true,
	models.TriggerTypeEngagementThreshold: true,
	models.TriggerTypeHashtagTrending:     true,
	models.TriggerTypeAutoResponse:        true,
}

func (h *RuleHandler) CreateRule(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var rule models.AutomationRule
	if err := c.BodyParser(&rule); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if rule.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rule name cannot be empty",
		})
	}
	if !validTriggerTypes[rule.TriggerType] {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown trigger type",
		})
	}

	rule.UserID = userID
	rule.IsActive = true

	ruleID, err := h.rr.Create(c.Context(), &rule)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to create rule",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Rule created successfully",
		"rule_id": ruleID,
	})
}

// RunRule triggers a rule immediately, outside its normal sweep.
func (h *RuleHandler) RunRule(c *fiber.Ctx) error {
	userID := GetUserID(c)
	ruleID := c.QueryInt("id", 0)

	rule, err := h.rr.GetByID(c.Context(), int64(ruleID))
	if err != nil || rule == nil || rule.UserID != userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rule not found",
		})
	}

	if err := h.automation.Execute(c.Context(), rule.ID); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "Rule executed successfully",
	})
}

func (h *RuleHandler) ListExecutions(c *fiber.Ctx) error {
	userID := GetUserID(c)
	ruleID := c.QueryInt("id", 0)
	limit := c.QueryInt("limit", 20)

	rule, err := h.rr.GetByID(c.Context(), int64(ruleID))
	if err != nil || rule == nil || rule.UserID != userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Rule not found",
		})
	}

	executions, err := h.re.ListByRuleID(c.Context(), rule.ID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to list rule executions",
		})
	}

	return c.Status(fiber.StatusOK).JSON(executions)
}
