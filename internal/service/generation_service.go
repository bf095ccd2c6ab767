package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"

	config "github.com/postpilotapp/postpilot/configs"
	"github.com/postpilotapp/postpilot/internal/ai"
	"github.com/postpilotapp/postpilot/internal/cache"
	"github.com/postpilotapp/postpilot/internal/models"
	"github.com/postpilotapp/postpilot/internal/moderation"
	"github.com/postpilotapp/postpilot/internal/ratelimit"
	"github.com/postpilotapp/postpilot/internal/repository"
	"github.com/postpilotapp/postpilot/internal/retry"
)

// Placeholder images substituted when the image provider is down so a
// generation never fails on images alone.
var placeholderImages = []string{
	"https://placehold.co/1024x1024/e2e8f0/64748b?text=Image+1",
	"https://placehold.co/1024x1024/e2e8f0/64748b?text=Image+2",
}

// Cost per 1k tokens in dollars, by model.
var modelRates = map[string]float64{
	"gpt-4o":      0.0125,
	"gpt-4o-mini": 0.0006,
}

const defaultModelRate = 0.01

type GenerationResult struct {
	Content      *models.GeneratedContent `json:"content"`
	TokensUsed   int                      `json:"tokens_used"`
	Model        string                   `json:"model"`
	Cached       bool                     `json:"cached"`
	GenerationID string                   `json:"generation_id"`
}

type GenerationService interface {
	Generate(ctx context.Context, brief *models.ContentBrief, userID int64, useCache bool) (*GenerationResult, error)
}

type generationService struct {
	cfg       *config.Config
	ai        ai.Client
	cache     *cache.ContentCache
	limiter   *ratelimit.Limiter
	moderator *moderation.Moderator
	media     MediaService
	gr        repository.GenerationRepository
	ur        repository.UserRepository
	retryOpts retry.Options
}

func NewGenerationService(
	cfg *config.Config,
	aiClient ai.Client,
	contentCache *cache.ContentCache,
	limiter *ratelimit.Limiter,
	moderator *moderation.Moderator,
	media MediaService,
	gr repository.GenerationRepository,
	ur repository.UserRepository) GenerationService {
	return &generationService{
		cfg:       cfg,
		ai:        aiClient,
		cache:     contentCache,
		limiter:   limiter,
		moderator: moderator,
		media:     media,
		gr:        gr,
		ur:        ur,
		retryOpts: retry.DefaultOptions(),
	}
}

func (s *generationService) Generate(ctx context.Context, brief *models.ContentBrief, userID int64, useCache bool) (*GenerationResult, error) {
	if brief == nil || !brief.Validate() {
		return nil, errors.New("invalid content brief")
	}

	admission := s.limiter.CheckLimit(ctx, userID)
	if !admission.Success {
		return nil, &RateLimitError{Limit: admission.Limit, ResetAt: admission.ResetAt}
	}

	if useCache {
		if content := s.cache.Get(ctx, brief); content != nil {
			// Cached content was moderated when first written; no re-check.
			id := s.record(ctx, userID, brief, content, 0, "cache", nil)
			return &GenerationResult{
				Content:      content,
				TokensUsed:   0,
				Model:        "cache",
				Cached:       true,
				GenerationID: id,
			}, nil
		}
	}

	prompt := buildPrompt(brief)
	completion, err := retry.WithFallback(ctx,
		func(ctx context.Context) (*ai.CompletionResult, error) {
			return s.ai.Complete(ctx, s.cfg.AI.PrimaryModel, prompt)
		},
		func(ctx context.Context) (*ai.CompletionResult, error) {
			return s.ai.Complete(ctx, s.cfg.AI.FallbackModel, prompt)
		},
		s.retryOpts)
	if err != nil {
		provErr := &ProviderError{Err: err}
		s.record(ctx, userID, brief, nil, 0, s.cfg.AI.PrimaryModel, provErr)
		return nil, provErr
	}

	content, err := parseContent(completion.Text)
	if err != nil {
		wrapped := fmt.Errorf("%w: %s", ErrMalformedResponse, err.Error())
		s.record(ctx, userID, brief, nil, completion.TokensUsed, completion.Model, wrapped)
		return nil, wrapped
	}

	normalizeContent(content)

	images, err := s.ai.GenerateImages(ctx, s.cfg.AI.ImageModel, content.ImagePrompt, 2)
	if err != nil {
		slog.Info("image generation failed, substituting placeholders: " + err.Error())
		images = placeholderImages
	} else if s.media != nil {
		images = s.mirrorImages(ctx, userID, images)
	}
	content.GeneratedImages = images
	content.SelectedImage = images[0]

	if !validateContent(content) {
		s.record(ctx, userID, brief, nil, completion.TokensUsed, completion.Model, ErrMalformedResponse)
		return nil, ErrMalformedResponse
	}

	verdict := s.moderator.Moderate(ctx, content.Caption)
	if verdict.Flagged {
		flagged := &FlaggedError{Categories: verdict.Categories}
		s.record(ctx, userID, brief, nil, completion.TokensUsed, completion.Model, flagged)
		return nil, flagged
	}

	s.cache.Set(ctx, brief, content)

	id := s.record(ctx, userID, brief, content, completion.TokensUsed, completion.Model, nil)

	if err := s.ur.IncrementGenerationCount(ctx, userID); err != nil {
		slog.Info("usage counter increment failed: " + err.Error())
	}

	return &GenerationResult{
		Content:      content,
		TokensUsed:   completion.TokensUsed,
		Model:        completion.Model,
		Cached:       false,
		GenerationID: id,
	}, nil
}

func (s *generationService) mirrorImages(ctx context.Context, userID int64, urls []string) []string {
	mirrored := make([]string, len(urls))
	for i, src := range urls {
		durable, err := s.media.MirrorImage(ctx, userID, src)
		if err != nil {
			slog.Info("image mirror failed, keeping provider url: " + err.Error())
			mirrored[i] = src
			continue
		}
		mirrored[i] = durable
	}
	return mirrored
}

// record persists the audit row for an attempt. Audit failures are logged,
// never allowed to mask the generation outcome.
func (s *generationService) record(ctx context.Context, userID int64, brief *models.ContentBrief, content *models.GeneratedContent, tokens int, model string, genErr error) string {
	id, err := gonanoid.New()
	if err != nil {
		slog.Info(err.Error())
		return ""
	}

	briefJSON, _ := json.Marshal(brief)
	rec := &models.GenerationRecord{
		ID:         id,
		UserID:     userID,
		BriefJSON:  string(briefJSON),
		TokensUsed: tokens,
		CostCents:  CostCents(tokens, model),
		ModelUsed:  model,
	}
	if content != nil {
		resultJSON, _ := json.Marshal(content)
		rec.ResultJSON = sql.NullString{String: string(resultJSON), Valid: true}
	}
	if genErr != nil {
		rec.ErrorMessage = sql.NullString{String: genErr.Error(), Valid: true}
	}

	if err := s.gr.Create(ctx, rec); err != nil {
		slog.Info("failed to persist generation record: " + err.Error())
	}
	return id
}

// CostCents computes ceil(tokens/1000 * perModelRate * 100).
func CostCents(tokens int, model string) int {
	if tokens == 0 {
		return 0
	}
	rate, ok := modelRates[model]
	if !ok {
		rate = defaultModelRate
	}
	return int(math.Ceil(float64(tokens) / 1000 * rate * 100))
}

func buildPrompt(brief *models.ContentBrief) string {
	var b strings.Builder
	b.WriteString("You are a social media content strategist. Create one post for ")
	b.WriteString(brief.Platform)
	b.WriteString(" in the ")
	b.WriteString(brief.Industry)
	b.WriteString(" industry with a ")
	b.WriteString(brief.Tone)
	b.WriteString(" tone, built around these keywords: ")
	b.WriteString(strings.Join(brief.Keywords, ", "))
	b.WriteString(".")
	if brief.TargetAudience != "" {
		b.WriteString(" Target audience: " + brief.TargetAudience + ".")
	}
	if brief.BrandVoice != "" {
		b.WriteString(" Brand voice: " + brief.BrandVoice + ".")
	}
	b.WriteString(` Respond with a JSON object with keys: "caption" (string), "hashtags" (array of up to 30 strings), "image_prompt" (string), "optimal_time" (HH:MM), "cta" (one of "Shop now", "Learn more", "Sign up", "Contact us", or null), "engagement_hooks" (array of strings), "content_pillars" (array of strings).`)
	return b.String()
}
