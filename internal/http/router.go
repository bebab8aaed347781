package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/egov_portal/backend/internal/config"
	"github.com/egov_portal/backend/internal/http/handlers"
	"github.com/egov_portal/backend/internal/http/middleware"
	"github.com/egov_portal/backend/internal/metrics"
	"github.com/egov_portal/backend/internal/models"
	"github.com/egov_portal/backend/internal/service"
	"github.com/egov_portal/backend/internal/tickets"

	_ "github.com/egov_portal/backend/docs"
)

// Services are the domain components served over HTTP.
type Services struct {
	Tickets    tickets.Repository
	Desk       *service.TicketDesk
	Classifier *service.ComplaintClassifier
	Drafts     *service.IntakeRegistry
	Chat       *service.ChatService
	Summarizer *service.ArticleSummarizer
	Checks     map[string]handlers.Pinger
}

func Router(cfg config.Config, svc Services, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.MaxMultipartMemory = cfg.MaxAttachmentBytes + 1<<20

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.AdminKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Tickets:            svc.Tickets,
		Tracker:            service.TicketTracker{Repo: svc.Tickets},
		Desk:               svc.Desk,
		Classifier:         svc.Classifier,
		Drafts:             svc.Drafts,
		Chat:               svc.Chat,
		Summarizer:         svc.Summarizer,
		Directorates:       models.DefaultDirectorates,
		Categories:         models.ComplaintCategories,
		Checks:             svc.Checks,
		Validator:          validator.New(),
		Logger:             logger,
		MaxAttachmentBytes: cfg.MaxAttachmentBytes,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	{
		api.GET("/directorates", h.DirectoratesList)

		api.GET("/complaints/categories", h.CategoriesList)
		api.POST("/complaints/analyze", h.AnalyzeComplaint)
		api.POST("/complaints", h.SubmitComplaint)
		api.GET("/complaints/:id", h.TrackComplaint)

		api.POST("/drafts", h.CreateDraft)
		api.GET("/drafts/:id", h.GetDraft)
		api.PATCH("/drafts/:id", h.UpdateDraft)
		api.DELETE("/drafts/:id", h.DeleteDraft)
		api.POST("/drafts/:id/classify", h.ClassifyDraft)
		api.POST("/drafts/:id/submit", h.SubmitDraft)

		api.POST("/chat/sessions", h.CreateChatSession)
		api.GET("/chat/sessions/:id", h.GetChatSession)
		api.DELETE("/chat/sessions/:id", h.ResetChatSession)
		api.POST("/chat/sessions/:id/attachment", h.AttachFile)
		api.DELETE("/chat/sessions/:id/attachment", h.DetachFile)
		api.POST("/chat/sessions/:id/messages", h.SendChatMessage)

		api.POST("/articles/summarize", h.SummarizeArticle)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.PATCH("/complaints/:id/status", h.UpdateComplaintStatus)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
