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

// GormMinimumsRepository implements the MinimumsRepository interface
type GormMinimumsRepository struct {
	db *gorm.DB
}

// NewGormMinimumsRepository creates a new GORM minimums repository
func NewGormMinimumsRepository(db *gorm.DB) repository.MinimumsRepository {
	return &GormMinimumsRepository{
		db: db,
	}
}

// MinimumsProfile GORM model for database mapping
type MinimumsProfile struct {
	gorm.Model
	TrainingLevel   string         `gorm:"column:training_level;index:idx_minimums_key,unique"`
	AircraftType    string         `gorm:"column:aircraft_type;index:idx_minimums_key,unique"`
	FlightType      string         `gorm:"column:flight_type;index:idx_minimums_key,unique"`
	VisibilitySM    float64        `gorm:"column:visibility_sm"`
	CeilingFt       float64        `gorm:"column:ceiling_ft"`
	MaxWindKt       float64        `gorm:"column:max_wind_kt"`
	MaxGustKt       float64        `gorm:"column:max_gust_kt"`
	MaxCrosswindKt  float64        `gorm:"column:max_crosswind_kt"`
	MinTemperatureC float64        `gorm:"column:min_temperature_c"`
	DeletedAt       gorm.DeletedAt `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName overrides the default table name
func (MinimumsProfile) TableName() string {
	return "m_minimums"
}

// Resolve finds the minimums profile for a training level, aircraft
// type and flight type combination
func (r *GormMinimumsRepository) Resolve(ctx context.Context, trainingLevel, aircraftType, flightType string) (*entity.Minimums, error) {
	var profile MinimumsProfile
	result := r.db.WithContext(ctx).
		Where("training_level = ?", trainingLevel).
		Where("aircraft_type = ?", aircraftType).
		Where("flight_type = ?", flightType).
		First(&profile)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFoundf("no minimums profile for %s/%s/%s", trainingLevel, aircraftType, flightType)
		}
		return nil, result.Error
	}

	// Convert GORM model to domain entity
	return &entity.Minimums{
		TrainingLevel:   profile.TrainingLevel,
		AircraftType:    profile.AircraftType,
		FlightType:      profile.FlightType,
		VisibilitySM:    profile.VisibilitySM,
		CeilingFt:       profile.CeilingFt,
		MaxWindKt:       profile.MaxWindKt,
		MaxGustKt:       profile.MaxGustKt,
		MaxCrosswindKt:  profile.MaxCrosswindKt,
		MinTemperatureC: profile.MinTemperatureC,
	}, nil
}
