package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"Synapse/backend/go/internal/card_service/resolver"
	"Synapse/backend/go/internal/card_service/service"
	"Synapse/backend/go/internal/card_service/synthesizer"
	"Synapse/backend/go/internal/models"
	"Synapse/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	defaultMaxUpload = 20 << 20
)

// CardOperations is what the API needs from the card service.
type CardOperations interface {
	Assemble(ctx context.Context, req service.AssembleRequest) (*models.KnowledgeCard, error)
	ListCards(ctx context.Context, userID string, skip, limit int) ([]*models.KnowledgeCard, error)
	DeleteCard(ctx context.Context, userID, cardID string) error
	GenerateQnA(ctx context.Context, userID, cardID string, count int) ([]models.QnAPair, error)
	ExportCard(ctx context.Context, userID, cardID string) ([]byte, error)
}

// ClusterOperations is what the API needs from the cluster service.
type ClusterOperations interface {
	ListClusters(ctx context.Context, userID string) ([]*models.Cluster, error)
	Recluster(ctx context.Context, userID string) (*models.ReclusterOutcome, error)
}

// Enqueuer hands a recluster request to the cluster worker.
type Enqueuer interface {
	Enqueue(ctx context.Context, userID string) error
}

// API provides handlers for the card service.
type API struct {
	cards     CardOperations
	clusters  ClusterOperations
	queue     Enqueuer
	maxUpload int64
	logger    *logger.Logger
}

// NewAPI creates a new API handler. With a nil queue, recompute requests run
// inside the HTTP request.
func NewAPI(cards CardOperations, clusters ClusterOperations, queue Enqueuer, maxUpload int64, logger *logger.Logger) *API {
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &API{
		cards:     cards,
		clusters:  clusters,
		queue:     queue,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// CreateCardHandler creates a card from a URL, or a placeholder card when no
// URL is given.
func (a *API) CreateCardHandler(c *gin.Context) {
	userID := c.GetString("userID")

	var payload struct {
		SourceURL string `json:"source_url"`
		Note      string `json:"note"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.logger.WithErr(err).Warn("Invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	card, err := a.cards.Assemble(c.Request.Context(), service.AssembleRequest{
		UserID: userID,
		Source: resolver.Source{URL: strings.TrimSpace(payload.SourceURL)},
		Note:   payload.Note,
	})
	if err != nil {
		a.respondError(c, err, "Failed to create card")
		return
	}
	c.JSON(http.StatusCreated, card)
}

// UploadCardHandler creates a card from an uploaded document.
func (a *API) UploadCardHandler(c *gin.Context) {
	userID := c.GetString("userID")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUpload+1<<20)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing file"})
		return
	}
	if fh.Size > a.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Upload too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		a.logger.WithErr(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		a.logger.WithErr(err).Error("Failed to read uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unreadable file"})
		return
	}

	card, err := a.cards.Assemble(c.Request.Context(), service.AssembleRequest{
		UserID: userID,
		Source: resolver.Source{Document: &resolver.UploadedDocument{Filename: fh.Filename, Data: data}},
		Note:   c.PostForm("note"),
	})
	if err != nil {
		a.respondError(c, err, "Failed to create card")
		return
	}
	c.JSON(http.StatusCreated, card)
}

// ListCardsHandler returns a page of the caller's cards.
func (a *API) ListCardsHandler(c *gin.Context) {
	userID := c.GetString("userID")

	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid skip"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit)))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	cards, err := a.cards.ListCards(c.Request.Context(), userID, skip, limit)
	if err != nil {
		a.respondError(c, err, "Failed to retrieve cards")
		return
	}
	c.JSON(http.StatusOK, cards)
}

// DeleteCardHandler removes one of the caller's cards.
func (a *API) DeleteCardHandler(c *gin.Context) {
	userID := c.GetString("userID")
	if err := a.cards.DeleteCard(c.Request.Context(), userID, c.Param("id")); err != nil {
		a.respondError(c, err, "Failed to delete card")
		return
	}
	c.Status(http.StatusNoContent)
}

// GenerateQnAHandler creates and stores Q&A pairs for a card.
func (a *API) GenerateQnAHandler(c *gin.Context) {
	userID := c.GetString("userID")

	count := synthesizer.DefaultQnACount
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 20 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid count"})
			return
		}
		count = n
	}

	qna, err := a.cards.GenerateQnA(c.Request.Context(), userID, c.Param("id"), count)
	if err != nil {
		a.respondError(c, err, "Failed to generate Q&A")
		return
	}
	c.JSON(http.StatusOK, gin.H{"card_id": c.Param("id"), "qna": qna})
}

// ExportCardHandler returns a card as a DOCX download.
func (a *API) ExportCardHandler(c *gin.Context) {
	userID := c.GetString("userID")
	cardID := c.Param("id")

	data, err := a.cards.ExportCard(c.Request.Context(), userID, cardID)
	if err != nil {
		a.respondError(c, err, "Failed to export card")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.docx"`, cardID))
	c.Data(http.StatusOK, service.DOCXContentType, data)
}

// ListClustersHandler returns the caller's clusters.
func (a *API) ListClustersHandler(c *gin.Context) {
	userID := c.GetString("userID")
	clusters, err := a.clusters.ListClusters(c.Request.Context(), userID)
	if err != nil {
		a.respondError(c, err, "Failed to retrieve clusters")
		return
	}
	c.JSON(http.StatusOK, clusters)
}

// RecomputeClustersHandler queues a recluster, or runs it inline when no
// queue is configured.
func (a *API) RecomputeClustersHandler(c *gin.Context) {
	userID := c.GetString("userID")

	if a.queue != nil {
		if err := a.queue.Enqueue(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to queue recluster"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
		return
	}

	out, err := a.clusters.Recluster(c.Request.Context(), userID)
	if err != nil {
		a.respondError(c, err, "Failed to recompute clusters")
		return
	}
	c.JSON(http.StatusOK, out)
}

// HealthHandler reports liveness.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *API) respondError(c *gin.Context, err error, message string) {
	status := StatusFor(err)
	body := gin.H{"error": message}
	if kind, ok := models.KindOf(err); ok {
		body["kind"] = kind
	}
	if status >= http.StatusInternalServerError {
		a.logger.WithErr(err).WithUser(c.GetString("userID")).WithField("path", c.FullPath()).Error(message)
	}
	c.JSON(status, body)
}

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrFetchFailed), errors.Is(err, models.ErrTranscriptUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrUnsupportedFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, models.ErrGenerationFailed), errors.Is(err, models.ErrEmbeddingFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
