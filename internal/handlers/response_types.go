package handlers

import (
	"github.com/unilert/unilert/internal/domains/detection"
)

// SuccessResponse represents a generic success response
type SuccessResponse struct {
	Message string `json:"message" example:"Operation completed successfully"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"Something went wrong"`
	Details string `json:"details,omitempty"`
}

// PaginationInfo represents pagination information
type PaginationInfo struct {
	Total  int64 `json:"total" example:"150"`
	Offset int   `json:"offset" example:"0"`
	Limit  int   `json:"limit" example:"20"`
}

// ListDetectionsResponse is the recent-detections listing
type ListDetectionsResponse struct {
	Detections []detection.Detection `json:"detections"`
	Pagination *PaginationInfo       `json:"pagination,omitempty"`
}

// DetectionResponse wraps a single detection
type DetectionResponse struct {
	Detection detection.Detection `json:"detection"`
}

// ListPhrasesResponse lists the active trigger phrases
type ListPhrasesResponse struct {
	Phrases []detection.Phrase `json:"phrases"`
}

// AddPhraseRequest is the request body for registering a trigger phrase
type AddPhraseRequest struct {
	Phrase     string             `json:"phrase" binding:"required"`
	Category   detection.Category `json:"category" binding:"required"`
	Confidence float64            `json:"confidence"`
}

// TrainingStatsResponse wraps training log statistics
type TrainingStatsResponse struct {
	Stats detection.TrainingStats `json:"stats"`
}

// ListenerStatusResponse reports the capture loop state
type ListenerStatusResponse struct {
	State string `json:"state" example:"listening"`
}
