package detection

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/unilert/unilert/internal/domains/detection"
)

// ErrDetectionNotFound is returned for lookups of unknown detection IDs.
var ErrDetectionNotFound = errors.New("detection not found")

// Repository persists detections for campus-wide querying.
type Repository interface {
	Create(d *detection.Detection) error
	GetByID(id string) (*detection.Detection, error)
	List(offset, limit int) ([]detection.Detection, int64, error)
	ListByCategory(category detection.Category, offset, limit int) ([]detection.Detection, int64, error)
	DeleteAll() error
}

type GormDetectionRepo struct {
	db *gorm.DB
}

func NewGormDetectionRepo(db *gorm.DB) Repository {
	return &GormDetectionRepo{db: db}
}

// Create implements Repository.
func (g *GormDetectionRepo) Create(d *detection.Detection) error {
	entity := NewDetectionEntityFromDomain(d)
	if err := g.db.Create(entity).Error; err != nil {
		return fmt.Errorf("failed to create detection: %w", err)
	}
	return nil
}

// GetByID implements Repository.
func (g *GormDetectionRepo) GetByID(id string) (*detection.Detection, error) {
	var entity DetectionEntity
	if err := g.db.Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDetectionNotFound
		}
		return nil, fmt.Errorf("failed to get detection by ID: %w", err)
	}
	return entity.ToDomain(), nil
}

// List implements Repository, newest first.
func (g *GormDetectionRepo) List(offset, limit int) ([]detection.Detection, int64, error) {
	return g.list(g.db.Model(&DetectionEntity{}), offset, limit)
}

// ListByCategory implements Repository, newest first.
func (g *GormDetectionRepo) ListByCategory(category detection.Category, offset, limit int) ([]detection.Detection, int64, error) {
	return g.list(g.db.Model(&DetectionEntity{}).Where("category = ?", string(category)), offset, limit)
}

func (g *GormDetectionRepo) list(query *gorm.DB, offset, limit int) ([]detection.Detection, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count detections: %w", err)
	}

	var entities []DetectionEntity
	if err := query.Order("detected_at DESC").Offset(offset).Limit(limit).Find(&entities).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list detections: %w", err)
	}

	detections := make([]detection.Detection, len(entities))
	for i, entity := range entities {
		detections[i] = *entity.ToDomain()
	}
	return detections, total, nil
}

// DeleteAll implements Repository (soft delete).
func (g *GormDetectionRepo) DeleteAll() error {
	if err := g.db.Where("1 = 1").Delete(&DetectionEntity{}).Error; err != nil {
		return fmt.Errorf("failed to clear detections: %w", err)
	}
	return nil
}
