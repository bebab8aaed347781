package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/ai"
	"github.com/egov_portal/backend/internal/metrics"
)

var ErrSummaryUnavailable = errors.New("summary unavailable")

const untitled = "بدون عنوان"

type ArticleSummarizer struct {
	Backend ai.Backend
	Logger  zerolog.Logger
}

func summaryPrompt(title, text string) string {
	if strings.TrimSpace(title) == "" {
		title = untitled
	}
	return fmt.Sprintf("لخص المقال التالي في فقرة واحدة موجزة وذكية باللغة العربية:\n\nالعنوان: %s\n\nالنص:\n%s", title, text)
}

// Summarize returns a one-paragraph Arabic summary of a news article.
func (s *ArticleSummarizer) Summarize(ctx context.Context, title, text string) (string, error) {
	if s.Backend == nil {
		return ai.StubSummary, nil
	}
	start := time.Now()
	out, err := s.Backend.Generate(ctx, summaryPrompt(title, text))
	metrics.AIRequestDuration.WithLabelValues("summarize").Observe(time.Since(start).Seconds())
	if errors.Is(err, ai.ErrNotConfigured) {
		return ai.StubSummary, nil
	}
	if err != nil {
		s.Logger.Warn().Err(err).Msg("article summary failed")
		return "", ErrSummaryUnavailable
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrSummaryUnavailable
	}
	return out, nil
}
