package job

import (
	"context"
	"log/slog"

	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/service"
)

// RuleSweepJob runs the poll-driven automation rules. The service decides
// per rule whether the trigger is due; a rule that is not due is skipped
// without being counted as an execution.
type RuleSweepJob struct {
	rr         repository.RuleRepository
	automation service.AutomationService
}

func NewRuleSweepJob(rr repository.RuleRepository, automation service.AutomationService) *RuleSweepJob {
	return &RuleSweepJob{
		rr:         rr,
		automation: automation,
	}
}

func (j *RuleSweepJob) Sweep() {
	ctx := context.Background()

	for _, triggerType := range []string{models.TriggerTypeSchedule, models.TriggerTypeEngagementThreshold} {
		rules, err := j.rr.ListActiveByTriggerType(ctx, triggerType)
		if err != nil {
			slog.Info(err.Error())
			continue
		}

		for _, rule := range rules {
			if err := j.automation.Execute(ctx, rule.ID); err != nil {
				slog.Info("rule execution failed",
					"rule_id", rule.ID, "trigger_type", rule.TriggerType, "error", err.Error())
			}
		}
	}
}
