package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unilert/unilert/internal/domains/detection"
	detectionrepo "github.com/unilert/unilert/internal/repository/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

// DetectionHandler serves the detection history and archive.
type DetectionHandler struct {
	history *detection.History
	repo    detectionrepo.Repository
	logger  *Logger.Logger
}

func NewDetectionHandler(history *detection.History, repo detectionrepo.Repository, logger *Logger.Logger) *DetectionHandler {
	return &DetectionHandler{
		history: history,
		repo:    repo,
		logger:  logger,
	}
}

// ListRecent returns the bounded in-memory history, newest first.
func (h *DetectionHandler) ListRecent(c *gin.Context) {
	detections := h.history.All()
	if detections == nil {
		detections = []detection.Detection{}
	}
	c.JSON(http.StatusOK, ListDetectionsResponse{Detections: detections})
}

// ListArchived pages through the database archive.
func (h *DetectionHandler) ListArchived(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Detection archive not configured"})
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var (
		detections []detection.Detection
		total      int64
		err        error
	)
	if category := c.Query("category"); category != "" {
		cat := detection.Category(category)
		if !cat.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid category"})
			return
		}
		detections, total, err = h.repo.ListByCategory(cat, offset, limit)
	} else {
		detections, total, err = h.repo.List(offset, limit)
	}
	if err != nil {
		h.logger.Errorf("list archived detections error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, ListDetectionsResponse{
		Detections: detections,
		Pagination: &PaginationInfo{Total: total, Offset: offset, Limit: limit},
	})
}

// Get returns one archived detection by ID.
func (h *DetectionHandler) Get(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "Detection archive not configured"})
		return
	}

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Detection ID is required"})
		return
	}

	det, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, detectionrepo.ErrDetectionNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "Detection not found"})
			return
		}
		h.logger.Errorf("get detection error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.JSON(http.StatusOK, DetectionResponse{Detection: *det})
}

// Clear drops the in-memory history and, when configured, the archive.
func (h *DetectionHandler) Clear(c *gin.Context) {
	h.history.Clear()
	if h.repo != nil {
		if err := h.repo.DeleteAll(); err != nil {
			h.logger.Errorf("clear detection archive error: %v", err)
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to clear detection archive"})
			return
		}
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Detection history cleared"})
}
