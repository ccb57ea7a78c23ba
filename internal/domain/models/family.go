package models

// FactorKind names one confidence factor. The set is closed; the engine
// rejects tables that use anything else.
type FactorKind string

const (
	FactorTrendAgreement FactorKind = "trend_agreement"
	FactorTrendStrength  FactorKind = "trend_strength"
	FactorDataStatus     FactorKind = "data_status"
	FactorMomentum       FactorKind = "momentum"
	FactorVolumeRatio    FactorKind = "volume_ratio"
	FactorVolumeAbsolute FactorKind = "volume_absolute"
	FactorCandleQuality  FactorKind = "candle_quality"
	FactorOIProfile      FactorKind = "oi_profile"
	FactorPCRLadder      FactorKind = "pcr_ladder"
	FactorZoneStrength   FactorKind = "zone_strength"
	FactorCPRClass       FactorKind = "cpr_class"
	FactorEMAExtension   FactorKind = "ema_extension"
	FactorRSI            FactorKind = "rsi"
)

// FactorWeight is one row of a family's factor table. Confirm, Partial and
// Contradict are magnitudes; the factor decides the sign.
type FactorWeight struct {
	Kind       FactorKind `yaml:"kind" json:"kind" validate:"required,oneof=trend_agreement trend_strength data_status momentum volume_ratio volume_absolute candle_quality oi_profile pcr_ladder zone_strength cpr_class ema_extension rsi"`
	Confirm    int        `yaml:"confirm" json:"confirm" validate:"gte=0,lte=50"`
	Partial    int        `yaml:"partial" json:"partial" validate:"gte=0,lte=50"`
	Contradict int        `yaml:"contradict" json:"contradict" validate:"gte=0,lte=50"`
	Threshold  float64    `yaml:"threshold" json:"threshold,omitempty" validate:"gte=0"`
	Floor      float64    `yaml:"floor" json:"floor,omitempty" validate:"gte=0"`
}

// FamilyConfig parameterizes the engine for one signal family.
type FamilyConfig struct {
	Name                string         `yaml:"name" json:"name" validate:"required"`
	ZoneSource          string         `yaml:"zone_source" json:"zoneSource" default:"camarilla" validate:"oneof=camarilla pivot"`
	Levels              int            `yaml:"levels" json:"levels" default:"5" validate:"oneof=3 5"`
	NeutralLabel        Signal         `yaml:"neutral_label" json:"neutralLabel" default:"NEUTRAL" validate:"oneof=NEUTRAL SIDEWAYS WAIT"`
	BaseConfidence      int            `yaml:"base_confidence" json:"baseConfidence" default:"45" validate:"gtefield=MinConfidence,ltefield=MaxConfidence"`
	MinConfidence       int            `yaml:"min_confidence" json:"minConfidence" default:"30" validate:"gte=1,ltfield=MaxConfidence"`
	MaxConfidence       int            `yaml:"max_confidence" json:"maxConfidence" default:"95" validate:"lte=99"`
	StrongThreshold     int            `yaml:"strong_threshold" json:"strongThreshold" default:"75" validate:"gtefield=MinActionConfidence,ltefield=MaxConfidence"`
	MinActionConfidence int            `yaml:"min_action_confidence" json:"minActionConfidence" default:"50" validate:"gte=0"`
	Factors             []FactorWeight `yaml:"factors" json:"factors" validate:"required,min=1,dive"`
}

// Neutral returns the family's spelling of the neutral signal.
func (f FamilyConfig) Neutral() Signal {
	if f.NeutralLabel == "" {
		return SignalNeutral
	}
	return f.NeutralLabel
}
