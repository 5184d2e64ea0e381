package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unilert/unilert/internal/domains/detection"
	"github.com/unilert/unilert/pkg/Logger"
)

// PhraseHandler manages the trigger phrase lexicon.
type PhraseHandler struct {
	lexicon *detection.Lexicon
	logger  *Logger.Logger
}

func NewPhraseHandler(lexicon *detection.Lexicon, logger *Logger.Logger) *PhraseHandler {
	return &PhraseHandler{lexicon: lexicon, logger: logger}
}

// List returns all active phrases in matching order.
func (h *PhraseHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, ListPhrasesResponse{Phrases: h.lexicon.Phrases()})
}

// Add registers or replaces a custom trigger phrase.
func (h *PhraseHandler) Add(c *gin.Context) {
	var req AddPhraseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request data",
			Details: err.Error(),
		})
		return
	}

	if err := h.lexicon.Add(req.Phrase, req.Category, req.Confidence); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Message: "Phrase registered"})
}

// Remove deletes a phrase by its exact text.
func (h *PhraseHandler) Remove(c *gin.Context) {
	phrase := c.Param("phrase")
	if phrase == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Phrase is required"})
		return
	}

	if !h.lexicon.Remove(phrase) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Phrase not found"})
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Phrase removed"})
}
