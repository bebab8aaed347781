package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/egov_portal/backend/internal/ai"
	"github.com/egov_portal/backend/internal/metrics"
	"github.com/egov_portal/backend/internal/models"
)

const (
	AssistantSystemInstruction = `أنت المساعد الذكي الرسمي للبوابة الإلكترونية للحكومة السورية.
- عرّف بنفسك كمساعد البوابة الرسمي عند الحاجة، والتزم بلغة عربية رسمية ومهذبة.
- ساعد المواطنين في تقديم الشكاوى والاستعلام عن الخدمات والإجراءات الحكومية.
- إذا كان المواطن يرغب في تقديم شكوى أو طلب وكانت المعلومات ناقصة، اسأله عن الاسم الكامل ورقم الهاتف وتفاصيل الطلب.
- إذا أرفق المواطن مستنداً أو صورة، اقرأ محتواه واستخدمه في إجابتك.
- لا تخترع أرقام تذاكر أو قرارات رسمية.`

	AttachmentOnlyInstruction = "قم بتحليل هذا الملف المرفق"

	AssistantApology = "عذراً، حدث خطأ أثناء الاتصال بالمساعد الذكي. يرجى المحاولة مرة أخرى لاحقاً."

	DefaultAssistantTimeout = 30 * time.Second
)

// AssistantGateway sends one chat turn to the backend. It never fails: any
// error becomes AssistantApology.
type AssistantGateway struct {
	Backend ai.Backend
	Timeout time.Duration
	Logger  zerolog.Logger
}

func NewAssistantGateway(backend ai.Backend, timeout time.Duration, logger zerolog.Logger) *AssistantGateway {
	if timeout <= 0 {
		timeout = DefaultAssistantTimeout
	}
	return &AssistantGateway{Backend: backend, Timeout: timeout, Logger: logger}
}

func (g *AssistantGateway) Send(ctx context.Context, message string, history []models.BackendTurn, attachment *models.Attachment) string {
	if g.Backend == nil {
		return AssistantApology
	}
	message = strings.TrimSpace(message)
	if message == "" && attachment != nil {
		message = AttachmentOnlyInstruction
	}

	cctx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()

	start := time.Now()
	reply, err := g.Backend.Converse(cctx, ai.ConverseRequest{
		System:     AssistantSystemInstruction,
		History:    trimLeadingModelTurns(history),
		Message:    message,
		Attachment: attachment,
	})
	metrics.AIRequestDuration.WithLabelValues("converse").Observe(time.Since(start).Seconds())
	if err != nil {
		g.Logger.Warn().Err(err).Msg("assistant call failed")
		return AssistantApology
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		g.Logger.Warn().Msg("assistant returned empty reply")
		return AssistantApology
	}
	return reply
}

// trimLeadingModelTurns drops model turns before the first user turn; the
// backend rejects histories that open with the model.
func trimLeadingModelTurns(history []models.BackendTurn) []models.BackendTurn {
	for i, turn := range history {
		if turn.Role != models.RoleModel {
			return history[i:]
		}
	}
	return nil
}
