package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

// maxTrainingImportBytes bounds uploaded training exports.
const maxTrainingImportBytes = 16 << 20

// TrainingHandler exposes the fusion engine's training log.
type TrainingHandler struct {
	engine *detection.Engine
	logger *Logger.Logger
}

func NewTrainingHandler(engine *detection.Engine, logger *Logger.Logger) *TrainingHandler {
	return &TrainingHandler{engine: engine, logger: logger}
}

// Export streams the training log as a JSON download.
func (h *TrainingHandler) Export(c *gin.Context) {
	data, err := h.engine.ExportTraining()
	if err != nil {
		h.logger.Errorf("training export error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="training_export.json"`)
	c.Data(http.StatusOK, "application/json", data)
}

// Import replaces the training log from an uploaded export.
func (h *TrainingHandler) Import(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxTrainingImportBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read request body"})
		return
	}

	if err := h.engine.ImportTraining(data); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid training export",
			Details: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Training data imported"})
}

// Stats summarizes the collected training log.
func (h *TrainingHandler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, TrainingStatsResponse{Stats: h.engine.TrainingStats()})
}
