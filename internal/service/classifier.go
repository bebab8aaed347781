package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/ai"
	"github.com/egov_portal/backend/internal/metrics"
	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/utils"
)

var ErrClassificationUnavailable = errors.New("classification unavailable")

const classifyPromptTemplate = `أنت نظام ذكي لفرز الشكاوى الحكومية. قم بتحليل نص الشكوى التالي واستخرج المعلومات بتنسيق JSON فقط.

الشكوى: "%s"

المطلوب:
1. التصنيف (مثال: بنية تحتية، تأخر إداري، فساد، صحة، تعليم)
2. الأولوية (منخفضة، متوسطة، عالية، طارئة)
3. الجهة المقترحة للمعالجة (مثال: وزارة الصحة، البلدية، الشرطة)
4. ملخص موجز جداً للمشكلة (أقل من 15 كلمة)

Response Format (JSON):
{
  "category": "string",
  "priority": "string",
  "suggestedDirectorate": "string",
  "summary": "string"
}`

func classificationPrompt(text string) string {
	return fmt.Sprintf(classifyPromptTemplate, strings.ReplaceAll(text, `"`, `'`))
}

// ComplaintClassifier turns free-text complaints into a routing suggestion.
// It performs no length validation; callers guard short inputs.
type ComplaintClassifier struct {
	Backend ai.Backend
	Logger  zerolog.Logger
}

func NewComplaintClassifier(backend ai.Backend, logger zerolog.Logger) *ComplaintClassifier {
	return &ComplaintClassifier{Backend: backend, Logger: logger}
}

func (c *ComplaintClassifier) Classify(ctx context.Context, text string) (models.ClassificationResult, error) {
	if c.Backend == nil {
		metrics.Classifications.WithLabelValues("fallback").Inc()
		return models.FallbackClassification, nil
	}

	start := time.Now()
	raw, err := c.Backend.Classify(ctx, classificationPrompt(text))
	metrics.AIRequestDuration.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	if errors.Is(err, ai.ErrNotConfigured) {
		metrics.Classifications.WithLabelValues("fallback").Inc()
		return models.FallbackClassification, nil
	}
	if err != nil {
		c.Logger.Warn().Err(err).Msg("classification call failed")
		metrics.Classifications.WithLabelValues("unavailable").Inc()
		return models.ClassificationResult{}, ErrClassificationUnavailable
	}

	res, err := parseClassification(raw)
	if err != nil {
		c.Logger.Warn().Err(err).Str("raw", raw).Msg("classification response rejected")
		metrics.Classifications.WithLabelValues("unavailable").Inc()
		return models.ClassificationResult{}, ErrClassificationUnavailable
	}
	outcome := "ok"
	if res == models.FallbackClassification {
		outcome = "fallback"
	}
	metrics.Classifications.WithLabelValues(outcome).Inc()
	return res, nil
}

type rawClassification struct {
	Category             *string `json:"category"`
	Priority             *string `json:"priority"`
	SuggestedDirectorate *string `json:"suggestedDirectorate"`
	Summary              *string `json:"summary"`
}

// parseClassification accepts exactly the four expected fields. Partial
// results are rejected.
func parseClassification(raw string) (models.ClassificationResult, error) {
	body := utils.StripCodeFence(raw)
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.DisallowUnknownFields()

	var rc rawClassification
	if err := dec.Decode(&rc); err != nil {
		return models.ClassificationResult{}, fmt.Errorf("decode classification: %w", err)
	}
	if rc.Category == nil || rc.Priority == nil || rc.SuggestedDirectorate == nil || rc.Summary == nil {
		return models.ClassificationResult{}, errors.New("classification missing fields")
	}
	priority, ok := models.ParsePriority(*rc.Priority)
	if !ok {
		return models.ClassificationResult{}, fmt.Errorf("unknown priority %q", *rc.Priority)
	}
	category := strings.TrimSpace(*rc.Category)
	if category == "" {
		return models.ClassificationResult{}, errors.New("empty category")
	}
	return models.ClassificationResult{
		Category:             category,
		Priority:             priority,
		SuggestedDirectorate: strings.TrimSpace(*rc.SuggestedDirectorate),
		Summary:              strings.TrimSpace(*rc.Summary),
	}, nil
}
