package signals

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SignalEngine/internal/domain/models"
)

const (
	FamilyCamarilla = "camarilla"
	FamilyPivot     = "pivot"
	FamilyCPR       = "cpr"
	FamilyOptions   = "options"
	FamilyCandle    = "candle"
)

var validate = validator.New()

// Catalog is everything the engine is configured with.
type Catalog struct {
	Thresholds ZoneThresholds        `yaml:"thresholds" json:"thresholds"`
	Predictor  PredictorConfig       `yaml:"predictor" json:"predictor"`
	Families   []models.FamilyConfig `yaml:"families" json:"families" validate:"dive"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Thresholds: DefaultZoneThresholds(),
		Predictor:  DefaultPredictorConfig(),
		Families:   DefaultFamilies(),
	}
}

func fw(kind models.FactorKind, confirm, partial, contradict int) models.FactorWeight {
	return models.FactorWeight{Kind: kind, Confirm: confirm, Partial: partial, Contradict: contradict}
}

func fwt(kind models.FactorKind, confirm, partial, contradict int, threshold, floor float64) models.FactorWeight {
	w := fw(kind, confirm, partial, contradict)
	w.Threshold, w.Floor = threshold, floor
	return w
}

// DefaultFamilies returns the five built-in families.
func DefaultFamilies() []models.FamilyConfig {
	return []models.FamilyConfig{
		{
			Name:                FamilyCamarilla,
			ZoneSource:          models.ClassifierCamarilla,
			Levels:              5,
			NeutralLabel:        models.SignalNeutral,
			BaseConfidence:      45,
			MinConfidence:       30,
			MaxConfidence:       95,
			StrongThreshold:     75,
			MinActionConfidence: 50,
			Factors: []models.FactorWeight{
				fw(models.FactorTrendAgreement, 18, 9, 15),
				fw(models.FactorTrendStrength, 6, 3, 6),
				fw(models.FactorDataStatus, 4, 0, 8),
				fwt(models.FactorMomentum, 6, 3, 6, 0.3, 0),
				fwt(models.FactorVolumeRatio, 6, 3, 5, 1.5, 0.7),
				fw(models.FactorCandleQuality, 8, 4, 10),
				fw(models.FactorOIProfile, 5, 0, 5),
				fw(models.FactorZoneStrength, 6, 3, 10),
				fw(models.FactorCPRClass, 5, 0, 5),
				fwt(models.FactorEMAExtension, 0, 3, 6, 1.5, 0.5),
				fwt(models.FactorRSI, 0, 3, 6, 70, 0),
			},
		},
		{
			Name:                FamilyPivot,
			ZoneSource:          models.ClassifierPivot,
			Levels:              5,
			NeutralLabel:        models.SignalSideways,
			BaseConfidence:      40,
			MinConfidence:       25,
			MaxConfidence:       95,
			StrongThreshold:     72,
			MinActionConfidence: 50,
			Factors: []models.FactorWeight{
				fw(models.FactorTrendAgreement, 18, 8, 15),
				fw(models.FactorTrendStrength, 6, 3, 6),
				fw(models.FactorDataStatus, 4, 0, 8),
				fwt(models.FactorMomentum, 5, 2, 6, 0.3, 0),
				fwt(models.FactorVolumeRatio, 5, 2, 4, 1.5, 0.7),
				fw(models.FactorCandleQuality, 6, 3, 8),
				fw(models.FactorZoneStrength, 8, 4, 12),
				fw(models.FactorCPRClass, 6, 0, 6),
				fwt(models.FactorRSI, 0, 3, 5, 70, 0),
			},
		},
		{
			Name:                FamilyCPR,
			ZoneSource:          models.ClassifierPivot,
			Levels:              5,
			NeutralLabel:        models.SignalWait,
			BaseConfidence:      40,
			MinConfidence:       25,
			MaxConfidence:       95,
			StrongThreshold:     75,
			MinActionConfidence: 55,
			Factors: []models.FactorWeight{
				fw(models.FactorTrendAgreement, 15, 7, 12),
				fw(models.FactorDataStatus, 3, 0, 8),
				fw(models.FactorCPRClass, 15, 0, 10),
				fw(models.FactorZoneStrength, 6, 3, 10),
				fwt(models.FactorMomentum, 5, 2, 5, 0.3, 0),
				fwt(models.FactorVolumeRatio, 5, 2, 4, 1.5, 0.7),
				fw(models.FactorCandleQuality, 6, 3, 8),
				fwt(models.FactorEMAExtension, 0, 3, 6, 1.5, 0.5),
			},
		},
		{
			Name:                FamilyOptions,
			ZoneSource:          models.ClassifierCamarilla,
			Levels:              3,
			NeutralLabel:        models.SignalNeutral,
			BaseConfidence:      40,
			MinConfidence:       30,
			MaxConfidence:       95,
			StrongThreshold:     75,
			MinActionConfidence: 50,
			Factors: []models.FactorWeight{
				fw(models.FactorOIProfile, 15, 0, 12),
				fw(models.FactorPCRLadder, 12, 6, 10),
				fw(models.FactorTrendAgreement, 12, 6, 10),
				fw(models.FactorDataStatus, 4, 0, 8),
				fwt(models.FactorMomentum, 5, 2, 5, 0.3, 0),
				fw(models.FactorZoneStrength, 5, 2, 8),
				fw(models.FactorCPRClass, 4, 0, 4),
				fwt(models.FactorVolumeRatio, 4, 2, 3, 1.5, 0.7),
			},
		},
		{
			Name:                FamilyCandle,
			ZoneSource:          models.ClassifierCamarilla,
			Levels:              5,
			NeutralLabel:        models.SignalWait,
			BaseConfidence:      35,
			MinConfidence:       25,
			MaxConfidence:       95,
			StrongThreshold:     72,
			MinActionConfidence: 50,
			Factors: []models.FactorWeight{
				fw(models.FactorCandleQuality, 18, 8, 15),
				fwt(models.FactorVolumeAbsolute, 8, 0, 6, 50000, 10000),
				fwt(models.FactorVolumeRatio, 6, 3, 5, 1.5, 0.7),
				fw(models.FactorTrendAgreement, 12, 6, 10),
				fwt(models.FactorMomentum, 6, 3, 6, 0.3, 0),
				fw(models.FactorDataStatus, 4, 0, 8),
				fw(models.FactorZoneStrength, 5, 2, 8),
				fwt(models.FactorRSI, 0, 3, 6, 70, 0),
			},
		},
	}
}

// ValidateFamily fills defaults on f and checks it.
func ValidateFamily(f *models.FamilyConfig) error {
	if err := defaults.Set(f); err != nil {
		return fmt.Errorf("family %q defaults: %w", f.Name, err)
	}
	return checkFamily(f)
}

func checkFamily(f *models.FamilyConfig) error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("family %q: %w", f.Name, err)
	}
	return nil
}

// LoadCatalog reads a YAML catalog and merges it over the defaults. Families
// replace the built-in family of the same name; new names are added. An empty
// path yields the defaults.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// catalogFile is decoded over pre-filled defaults, so a key set to zero in
// the file stays zero.
type catalogFile struct {
	Thresholds ZoneThresholds  `yaml:"thresholds"`
	Predictor  PredictorConfig `yaml:"predictor"`
	Families   []yaml.Node     `yaml:"families"`
}

func ParseCatalog(data []byte) (Catalog, error) {
	cat := DefaultCatalog()
	file := catalogFile{Thresholds: cat.Thresholds, Predictor: cat.Predictor}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}

	if err := validate.Struct(file.Thresholds); err != nil {
		return Catalog{}, fmt.Errorf("thresholds: %w", err)
	}
	if err := validate.Struct(file.Predictor); err != nil {
		return Catalog{}, fmt.Errorf("predictor: %w", err)
	}
	cat.Thresholds, cat.Predictor = file.Thresholds, file.Predictor

	for i := range file.Families {
		var f models.FamilyConfig
		if err := defaults.Set(&f); err != nil {
			return Catalog{}, fmt.Errorf("family defaults: %w", err)
		}
		if err := file.Families[i].Decode(&f); err != nil {
			return Catalog{}, fmt.Errorf("parse family %d: %w", i, err)
		}
		if err := checkFamily(&f); err != nil {
			return Catalog{}, err
		}
		cat.Families = upsertFamily(cat.Families, f)
	}
	return cat, nil
}

func upsertFamily(list []models.FamilyConfig, f models.FamilyConfig) []models.FamilyConfig {
	for i := range list {
		if list[i].Name == f.Name {
			list[i] = f
			return list
		}
	}
	return append(list, f)
}
