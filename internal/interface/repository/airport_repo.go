package repository

import (
	"context"
	"errors"
	"time"

	"flightsched-service/internal/domain/entity"
	"flightsched-service/internal/domain/repository"
	"flightsched-service/pkg/apperr"

	"gorm.io/gorm"
)

// GormAirportRepository implements the AirportRepository interface
type GormAirportRepository struct {
	db *gorm.DB
}

// NewGormAirportRepository creates a new GORM airport repository
func NewGormAirportRepository(db *gorm.DB) repository.AirportRepository {
	return &GormAirportRepository{
		db: db,
	}
}

// Airports GORM model for database mapping
type Airports struct {
	gorm.Model
	Code          string         `gorm:"column:code;unique"`
	Name          string         `gorm:"column:name"`
	TzName        string         `gorm:"column:tzname"`
	RunwayHeading float64        `gorm:"column:runway_heading"`
	DeletedAt     gorm.DeletedAt `gorm:"index"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName overrides the default table name
func (Airports) TableName() string {
	return "m_airports"
}

// GetByCode finds an airport by its code
func (r *GormAirportRepository) GetByCode(ctx context.Context, code string) (*entity.Airport, error) {
	var airport Airports
	result := r.db.WithContext(ctx).Where("code = ?", code).First(&airport)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("airport %s", code)
		}
		return nil, result.Error
	}

	// Convert GORM model to domain entity
	return &entity.Airport{
		Code:          airport.Code,
		Name:          airport.Name,
		TzName:        airport.TzName,
		RunwayHeading: airport.RunwayHeading,
	}, nil
}
