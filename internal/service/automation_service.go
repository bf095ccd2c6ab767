package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/publisher"
	"github.com/postpilotapp/postpilot/internal/repository"
)

// PublisherFactory builds a platform client for a connected account.
// Pulled out of the service so tests can substitute a fake network.
type PublisherFactory func(account *models.SocialAccount, cfg *config.Config) (publisher.Publisher, error)

type AutomationService interface {
	Execute(ctx context.Context, ruleID int64) error
}

type automationService struct {
	cfg    *config.Config
	db     *sql.DB
	rr     repository.RuleRepository
	re     repository.RuleExecutionRepository
	pr     repository.PostRepository
	ar     repository.SocialAccountRepository
	an     repository.AnalyticsRepository
	gen    GenerationService
	newPub PublisherFactory
}

func NewAutomationService(
	cfg *config.Config,
	db *sql.DB,
	rr repository.RuleRepository,
	re repository.RuleExecutionRepository,
	pr repository.PostRepository,
	ar repository.SocialAccountRepository,
	an repository.AnalyticsRepository,
	gen GenerationService,
	newPub PublisherFactory) AutomationService {
	if newPub == nil {
		newPub = publisher.New
	}
	return &automationService{
		cfg:    cfg,
		db:     db,
		rr:     rr,
		re:     re,
		pr:     pr,
		ar:     ar,
		an:     an,
		gen:    gen,
		newPub: newPub,
	}
}

// ruleConditions is the trigger_conditions JSON stored on a rule. The brief
// fields feed generation; the rest parameterize the individual trigger types.
// Schedule rules fire once per period: "time" (HH:MM) anchors a daily fire,
// "frequency" (hourly/daily/weekly, default daily) drives interval-based
// rules without a time anchor.
type ruleConditions struct {
	Industry       string   `json:"industry"`
	Tone           string   `json:"tone"`
	Keywords       []string `json:"keywords"`
	Platform       string   `json:"platform"`
	TargetAudience string   `json:"target_audience"`
	BrandVoice     string   `json:"brand_voice"`
	MinEngagement  int64    `json:"min_engagement"`
	Hashtag        string   `json:"hashtag"`
	Time           string   `json:"time"`
	Frequency      string   `json:"frequency"`
}

// errRuleNotDue means the trigger condition did not fire this sweep. Not an
// execution: no log row, no counter increment.
var errRuleNotDue = errors.New("rule not due")

// scheduleDue reports whether a schedule rule should fire at now given when
// it last ran. With a time anchor the rule fires once per day at or after
// that time; without one it fires whenever the frequency interval has passed.
func scheduleDue(cond *ruleConditions, last sql.NullTime, now time.Time) (bool, error) {
	if cond.Time != "" {
		at, err := time.Parse("15:04", cond.Time)
		if err != nil {
			return false, fmt.Errorf("malformed schedule time: %q", cond.Time)
		}
		fireAt := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
		if now.Before(fireAt) {
			return false, nil
		}
		if last.Valid && !last.Time.Before(fireAt) {
			return false, nil
		}
		return true, nil
	}

	var interval time.Duration
	switch cond.Frequency {
	case "", "daily":
		interval = 24 * time.Hour
	case "hourly":
		interval = time.Hour
	case "weekly":
		interval = 7 * 24 * time.Hour
	default:
		return false, fmt.Errorf("unknown schedule frequency: %q", cond.Frequency)
	}
	if !last.Valid {
		return true, nil
	}
	return now.Sub(last.Time) >= interval, nil
}

func (s *automationService) Execute(ctx context.Context, ruleID int64) error {
	rule, err := s.rr.GetByID(ctx, ruleID)
	if err != nil {
		return err
	}
	if rule == nil {
		return errors.New("automation rule not found")
	}
	if !rule.IsActive {
		return nil
	}

	postID, err := s.run(ctx, rule)
	if errors.Is(err, errRuleNotDue) {
		return nil
	}

	// The execution log and rule counters are written whether the run
	// succeeded or not; a rule that keeps failing must be visible.
	exec := models.RuleExecution{
		RuleID: rule.ID,
		UserID: rule.UserID,
		Status: models.RuleExecutionSucceeded,
	}
	if postID > 0 {
		exec.PostID = sql.NullInt64{Int64: postID, Valid: true}
	}
	errMsg := ""
	if err != nil {
		exec.Status = models.RuleExecutionFailed
		exec.ErrorMessage = sql.NullString{String: err.Error(), Valid: true}
		errMsg = err.Error()
	}
	if _, lerr := s.re.Create(ctx, &exec); lerr != nil {
		slog.Info(lerr.Error())
	}
	if serr := s.rr.IncrementStats(ctx, rule.ID, err == nil, errMsg); serr != nil {
		slog.Info(serr.Error())
	}

	return err
}

func (s *automationService) run(ctx context.Context, rule *models.AutomationRule) (int64, error) {
	var cond ruleConditions
	if err := json.Unmarshal([]byte(rule.TriggerConditions), &cond); err != nil {
		return 0, fmt.Errorf("malformed trigger conditions: %w", err)
	}

	platform, err := publisher.ParsePlatform(cond.Platform)
	if err != nil {
		return 0, err
	}

	brief := models.ContentBrief{
		Industry:       cond.Industry,
		Tone:           cond.Tone,
		Keywords:       cond.Keywords,
		Platform:       cond.Platform,
		TargetAudience: cond.TargetAudience,
		BrandVoice:     cond.BrandVoice,
	}

	switch rule.TriggerType {
	case models.TriggerTypeSchedule:
		due, err := scheduleDue(&cond, rule.LastExecutedAt, time.Now())
		if err != nil {
			return 0, err
		}
		if !due {
			return 0, errRuleNotDue
		}
	case models.TriggerTypeAutoResponse:
		// Brief is used as stored.
	case models.TriggerTypeHashtagTrending:
		if cond.Hashtag == "" {
			return 0, errors.New("hashtag_trending rule has no hashtag")
		}
		brief.Keywords = append(brief.Keywords, strings.TrimPrefix(cond.Hashtag, "#"))
	case models.TriggerTypeEngagementThreshold:
		fired, err := s.engagementExceeds(ctx, rule.UserID, cond.MinEngagement)
		if err != nil {
			return 0, err
		}
		if !fired {
			return 0, errRuleNotDue
		}
	default:
		return 0, fmt.Errorf("unknown trigger type: %q", rule.TriggerType)
	}

	account, err := s.ar.GetActiveByUserPlatform(ctx, rule.UserID, string(platform))
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, fmt.Errorf("no connected %s account", platform)
	}

	// Automation always generates fresh content; a rule that posts the
	// same cached caption every day is worse than no rule.
	result, err := s.gen.Generate(ctx, &brief, rule.UserID, false)
	if err != nil {
		return 0, err
	}

	content := result.Content
	caption := fitCaption(content.Caption, content.Hashtags, platform)

	postID, err := s.createPost(ctx, rule.UserID, caption, content, platform)
	if err != nil {
		return 0, err
	}

	pub, err := s.newPub(account, s.cfg)
	if err != nil {
		return postID, err
	}

	req := publisher.PublishRequest{
		Content:  caption,
		Hashtags: content.Hashtags,
	}
	if content.SelectedImage != "" {
		req.MediaURLs = []string{content.SelectedImage}
	}

	res := pub.Publish(ctx, &req)
	if !res.Success {
		if merr := s.pr.MarkFailed(ctx, postID, res.Error); merr != nil {
			slog.Info(merr.Error())
		}
		return postID, fmt.Errorf("publish to %s failed: %s", platform, res.Error)
	}

	if merr := s.pr.MarkPublished(ctx, postID, time.Now()); merr != nil {
		slog.Info(merr.Error())
	}
	return postID, nil
}

func (s *automationService) engagementExceeds(ctx context.Context, userID, min int64) (bool, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, post := range posts {
		if post.Status != models.PostStatusPublished {
			continue
		}
		rows, err := s.an.ListByPostID(ctx, post.ID)
		if err != nil {
			return false, err
		}
		for _, row := range rows {
			if row.Likes+row.Comments+row.Shares >= min {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *automationService) createPost(ctx context.Context, userID int64, caption string, content *models.GeneratedContent, platform publisher.Platform) (int64, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.Post{
		UserID:      userID,
		Content:     caption,
		Platforms:   []string{string(platform)},
		Hashtags:    content.Hashtags,
		Status:      models.PostStatusScheduled,
		AIGenerated: true,
	}
	if content.SelectedImage != "" {
		post.MediaURLs = []string{content.SelectedImage}
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return postID, nil
}

// fitCaption truncates the caption so caption plus rendered hashtags stays
// inside the platform's character limit. Hashtags are kept whole; the
// caption absorbs the cut.
func fitCaption(caption string, hashtags []string, platform publisher.Platform) string {
	limit := platform.CharacterLimit()
	tagLen := 0
	if len(hashtags) > 0 {
		tagLen = len([]rune(strings.Join(hashtags, " "))) + 2
	}
	budget := limit - tagLen
	if budget < 0 {
		budget = 0
	}
	runes := []rune(caption)
	if len(runes) <= budget {
		return caption
	}
	if budget > 3 {
		return string(runes[:budget-3]) + "..."
	}
	return string(runes[:budget])
}
