package models

import (
	"strings"
	"time"
)

// ComplaintDraft is the mutable form state of a complaint before submission.
type ComplaintDraft struct {
	Details     string `json:"details"`
	Phone       string `json:"phone"`
	FullName    string `json:"fullName,omitempty"`
	Category    string `json:"category"`
	Directorate string `json:"directorate"`
}

// ToComplaintData converts the draft into the submit payload.
func (d ComplaintDraft) ToComplaintData() ComplaintData {
	return ComplaintData{
		FullName:    strings.TrimSpace(d.FullName),
		Phone:       strings.TrimSpace(d.Phone),
		Category:    strings.TrimSpace(d.Category),
		Details:     strings.TrimSpace(d.Details),
		Directorate: strings.TrimSpace(d.Directorate),
	}
}

// ComplaintData is the payload accepted by ticket repositories.
type ComplaintData struct {
	FullName    string `json:"fullName,omitempty"`
	Phone       string `json:"phone" validate:"required"`
	Category    string `json:"category"`
	Details     string `json:"details" validate:"required"`
	Directorate string `json:"directorate,omitempty"`
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// ParsePriority accepts the canonical English names and the Arabic labels
// returned by the classification prompt.
func ParsePriority(value string) (Priority, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "low", "منخفضة":
		return PriorityLow, true
	case "medium", "متوسطة":
		return PriorityMedium, true
	case "high", "عالية":
		return PriorityHigh, true
	case "urgent", "طارئة":
		return PriorityUrgent, true
	default:
		return "", false
	}
}

// Label returns the Arabic display label.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "منخفضة"
	case PriorityMedium:
		return "متوسطة"
	case PriorityHigh:
		return "عالية"
	case PriorityUrgent:
		return "طارئة"
	default:
		return string(p)
	}
}

type ClassificationResult struct {
	Category             string   `json:"category"`
	Priority             Priority `json:"priority"`
	SuggestedDirectorate string   `json:"suggestedDirectorate"`
	Summary              string   `json:"summary"`
}

// FallbackClassification is returned when no AI backend is configured.
var FallbackClassification = ClassificationResult{
	Category:             "غير محدد (محاكاة)",
	Priority:             PriorityMedium,
	SuggestedDirectorate: "مكتب الشكاوى المركزي",
	Summary:              "تم تحليل الشكوى مبدئياً.",
}

type TicketStatus string

const (
	TicketNew        TicketStatus = "new"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketRejected   TicketStatus = "rejected"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketNew, TicketInProgress, TicketResolved, TicketRejected:
		return true
	}
	return false
}

// Label returns the Arabic display label shown to citizens.
func (s TicketStatus) Label() string {
	switch s {
	case TicketNew:
		return "جديد"
	case TicketInProgress:
		return "قيد المعالجة"
	case TicketResolved:
		return "تم الحل"
	case TicketRejected:
		return "مرفوض"
	default:
		return string(s)
	}
}

type Ticket struct {
	ID         string       `json:"id"`
	Status     TicketStatus `json:"status"`
	LastUpdate string       `json:"lastUpdate"`
	Notes      string       `json:"notes,omitempty"`
}

// LastUpdateLayout formats Ticket.LastUpdate.
const LastUpdateLayout = "2006-01-02 15:04"

func FormatLastUpdate(t time.Time) string {
	return t.Format(LastUpdateLayout)
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Attachment is a file attached to the next chat turn. Data is base64.
type Attachment struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// BackendTurn is one entry of the history sent to the conversational backend.
type BackendTurn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Directorate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DefaultDirectorates is the built-in catalog used for routing resolution.
var DefaultDirectorates = []Directorate{
	{ID: "d1", Name: "وزارة الداخلية", Description: "إدارة الأحوال المدنية، الجوازات، والمرور."},
	{ID: "d2", Name: "وزارة الصحة", Description: "الخدمات الطبية، التراخيص الصحية، والمستشفيات."},
	{ID: "d3", Name: "وزارة التربية والتعليم", Description: "شؤون المدارس، المناهج، والامتحانات."},
	{ID: "d4", Name: "وزارة النقل", Description: "تراخيص المركبات، الطرق، والمواصلات العامة."},
}

// ComplaintCategories lists the categories offered by the complaint form.
var ComplaintCategories = []string{
	"خدمات إلكترونية متعثرة",
	"سوء معاملة موظفين",
	"تأخر في الإنجاز",
	"نظافة وصيانة مرافق",
	"مقترحات تطوير",
}
