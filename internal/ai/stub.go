package ai

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/utils"
)

// StubBackend is the deterministic offline backend used when no provider is
// configured. Identical inputs always produce identical outputs.
type StubBackend struct{}

var stubReplies = []string{
	"شكراً لتواصلك مع البوابة الحكومية (رد محاكاة). يرجى تزويدنا بالاسم الكامل ورقم الهاتف وتفاصيل الطلب لنتمكن من مساعدتك.",
	"تم استلام استفسارك (رد محاكاة). يمكنك تقديم شكوى رسمية من خلال نموذج الشكاوى الموحد ومتابعتها برقم التذكرة.",
	"أهلاً بك (رد محاكاة). للاستعلام عن حالة طلب سابق، يرجى إرسال رقم التذكرة بالصيغة GOV-12345.",
}

const stubAttachmentReply = "تم استلام الملف المرفق (رد محاكاة). لا يمكن تحليل محتوى المستندات في وضع المحاكاة."

const StubSummary = "ملخص تلقائي (محاكاة): يتناول هذا المقال أهمية التحول الرقمي في تحسين الخدمات الحكومية وتسريع الإجراءات للمواطنين."

func (StubBackend) Classify(ctx context.Context, prompt string) (string, error) {
	res := models.FallbackClassification
	b, err := json.Marshal(map[string]string{
		"category":             res.Category,
		"priority":             res.Priority.Label(),
		"suggestedDirectorate": res.SuggestedDirectorate,
		"summary":              res.Summary,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (StubBackend) Converse(ctx context.Context, req ConverseRequest) (string, error) {
	if req.Attachment != nil {
		return stubAttachmentReply, nil
	}
	h := utils.StableHash(strings.TrimSpace(req.Message))
	return stubReplies[int(h%uint64(len(stubReplies)))], nil
}

func (StubBackend) Generate(ctx context.Context, prompt string) (string, error) {
	return StubSummary, nil
}
