package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/classifier"
	"github.com/Aditya-GrowAI/civicvoice3/database"
	"github.com/Aditya-GrowAI/civicvoice3/email"
	"github.com/Aditya-GrowAI/civicvoice3/metrics"
	"github.com/Aditya-GrowAI/civicvoice3/middleware"
	"github.com/Aditya-GrowAI/civicvoice3/models"
	"github.com/Aditya-GrowAI/civicvoice3/rabbitmq"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

const serviceName = "civicvoice"

// Classifier labels a photo. It never fails; unusable photos are unknown.
type Classifier interface {
	Classify(ctx context.Context, imageData []byte) classifier.Label
}

// UploadStore keeps uploaded files and returns their public and disk paths.
type UploadStore interface {
	Save(data []byte) (publicPath, diskPath string, err error)
}

// Handlers holds all HTTP handlers
type Handlers struct {
	store          database.IssueStore
	classifier     Classifier
	uploads        UploadStore
	notifier       email.Notifier
	publisher      rabbitmq.EventPublisher
	maxUploadBytes int64
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	store database.IssueStore,
	cls Classifier,
	uploads UploadStore,
	notifier email.Notifier,
	publisher rabbitmq.EventPublisher,
	maxUploadBytes int64,
) *Handlers {
	return &Handlers{
		store:          store,
		classifier:     cls,
		uploads:        uploads,
		notifier:       notifier,
		publisher:      publisher,
		maxUploadBytes: maxUploadBytes,
	}
}

// Root reports that the API is up.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "API is running"})
}

// Health pings the issue store.
func (h *Handlers) Health(c *gin.Context) {
	resp := models.HealthResponse{
		Status:   "healthy",
		Service:  serviceName,
		Database: "connected",
		Time:     time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.store.Ping(c.Request.Context()); err != nil {
		log.Warnf("Health check: store ping failed: %v", err)
		resp.Status = "degraded"
		resp.Database = "disconnected"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CreateRequest stores a manual issue for the authenticated user.
func (h *Handlers) CreateRequest(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
		return
	}

	var req models.CreateRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Invalid request body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: description, latitude and longitude are required"})
		return
	}

	issue := models.NewIssue(models.IssueTypeManual, *req.Latitude, *req.Longitude, *req.Description, identity.Subject, "")
	if !h.insert(c, issue) {
		return
	}

	h.afterCreate(c.Request.Context(), issue, "")

	c.JSON(http.StatusOK, models.CreateRequestResponse{
		Msg: "Request stored & email sent",
		ID:  issue.ID,
	})
}

// Upload stores a photo, classifies it and stores the resulting issue.
func (h *Handlers) Upload(c *gin.Context) {
	identity, ok := middleware.GetIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
		return
	}

	data, status, err := readUpload(c, h.maxUploadBytes)
	if err != nil {
		log.Warnf("Upload rejected: %v", err)
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	lat, lng, err := parseCoordinates(c.PostForm("lat"), c.PostForm("lng"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	publicPath, diskPath, err := h.uploads.Save(data)
	if err != nil {
		log.Errorf("Upload Error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save upload"})
		return
	}

	label := h.classifier.Classify(c.Request.Context(), data)
	log.Infof("Upload %s classified as %s", publicPath, label)

	issue := models.NewIssue(string(label), lat, lng, c.PostForm("description"), identity.Subject, publicPath)
	if !h.insert(c, issue) {
		return
	}

	h.afterCreate(c.Request.Context(), issue, diskPath)

	c.JSON(http.StatusOK, models.UploadResponse{
		Success: true,
		Issue:   issue,
	})
}

// ListIssues returns up to database.MaxListLimit issues.
func (h *Handlers) ListIssues(c *gin.Context) {
	issues, ok := h.listIssues(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, issues)
}

func (h *Handlers) listIssues(c *gin.Context) ([]models.Issue, bool) {
	limit := database.MaxListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return nil, false
		}
		limit = n
	}

	issues, err := h.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.Errorf("Failed to list issues: %v", err)
		metrics.StoreErrorsTotal.WithLabelValues("list").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": storeErrorMessage(err)})
		return nil, false
	}
	return issues, true
}

// insert stores the issue, writing the error response when it fails.
func (h *Handlers) insert(c *gin.Context, issue *models.Issue) bool {
	if _, err := h.store.Insert(c.Request.Context(), issue); err != nil {
		log.Errorf("Failed to store issue %s: %v", issue.ID, err)
		metrics.StoreErrorsTotal.WithLabelValues("insert").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": storeErrorMessage(err)})
		return false
	}
	metrics.IssuesCreatedTotal.WithLabelValues(issue.Type).Inc()
	log.Infof("Stored issue %s of type %s", issue.ID, issue.Type)
	return true
}

// afterCreate notifies and publishes. Neither can change the response.
func (h *Handlers) afterCreate(ctx context.Context, issue *models.Issue, attachmentPath string) {
	ctx = context.WithoutCancel(ctx)

	if err := h.notifier.Send(ctx, issue, attachmentPath); err != nil {
		log.Errorf("Email failed for issue %s: %v", issue.ID, err)
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
	} else {
		metrics.NotificationsTotal.WithLabelValues("ok").Inc()
	}

	if err := h.publisher.PublishIssueCreated(ctx, issue); err != nil {
		log.Warnf("Failed to publish issue.created for %s: %v", issue.ID, err)
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
	} else {
		metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()
	}
}

func storeErrorMessage(err error) string {
	if errors.Is(err, database.ErrStorageUnavailable) {
		return "Database not connected"
	}
	return "Failed to access issue store"
}
