package service

import (
	"errors"

	"SignalEngine/internal/domain/models"
)

// ErrUnknownFamily is the only error an engine reports: the caller named a
// family that is not configured.
var ErrUnknownFamily = errors.New("unknown signal family")

// SignalEngine turns indicator snapshots into signal results. Implementations
// are pure and safe for concurrent use.
type SignalEngine interface {
	Normalize(raw models.RawSnapshot) models.IndicatorSnapshot
	Evaluate(symbol, family string, snap models.IndicatorSnapshot, prev *models.IndicatorSnapshot) (models.SignalResult, error)
	Families() []models.FamilyConfig
	HasFamily(name string) bool
}
