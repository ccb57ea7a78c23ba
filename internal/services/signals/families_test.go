package signals

import (
	"os"
	"path/filepath"
	"testing"

	"SignalEngine/internal/domain/models"
)

func TestDefaultFamiliesAreValid(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range DefaultFamilies() {
		f := f
		if err := ValidateFamily(&f); err != nil {
			t.Fatalf("%s: %v", f.Name, err)
		}
		if seen[f.Name] {
			t.Fatalf("duplicate family %s", f.Name)
		}
		seen[f.Name] = true
		if f.MinConfidence <= 0 || f.MaxConfidence >= 100 {
			t.Fatalf("%s: range [%d,%d] must stay inside (0,100)", f.Name, f.MinConfidence, f.MaxConfidence)
		}
		for _, w := range f.Factors {
			if _, ok := factorFuncs[w.Kind]; !ok {
				t.Fatalf("%s: factor %s has no implementation", f.Name, w.Kind)
			}
		}
	}
	for _, name := range []string{FamilyCamarilla, FamilyPivot, FamilyCPR, FamilyOptions, FamilyCandle} {
		if !seen[name] {
			t.Fatalf("missing family %s", name)
		}
	}
}

func TestValidateFamilyRejects(t *testing.T) {
	base := func() models.FamilyConfig {
		return models.FamilyConfig{
			Name:    "x",
			Factors: []models.FactorWeight{fw(models.FactorDataStatus, 4, 0, 8)},
		}
	}
	cases := map[string]func(*models.FamilyConfig){
		"unknown factor":   func(f *models.FamilyConfig) { f.Factors[0].Kind = "astrology" },
		"no factors":       func(f *models.FamilyConfig) { f.Factors = nil },
		"inverted range":   func(f *models.FamilyConfig) { f.MinConfidence, f.MaxConfidence = 90, 40 },
		"absolute max":     func(f *models.FamilyConfig) { f.MaxConfidence = 100 },
		"bad zone source":  func(f *models.FamilyConfig) { f.ZoneSource = "fibonacci" },
		"bad levels":       func(f *models.FamilyConfig) { f.Levels = 7 },
		"base out of band": func(f *models.FamilyConfig) { f.BaseConfidence = 99 },
		"negative weight":  func(f *models.FamilyConfig) { f.Factors[0].Confirm = -1 },
	}
	for name, mutate := range cases {
		f := base()
		mutate(&f)
		if err := ValidateFamily(&f); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestValidateFamilyFillsDefaults(t *testing.T) {
	f := models.FamilyConfig{Name: "custom", Factors: []models.FactorWeight{fw(models.FactorRSI, 0, 3, 6)}}
	if err := ValidateFamily(&f); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if f.ZoneSource != models.ClassifierCamarilla || f.Levels != 5 || f.NeutralLabel != models.SignalNeutral {
		t.Fatalf("unexpected defaults %+v", f)
	}
	if f.BaseConfidence != 45 || f.MinConfidence != 30 || f.MaxConfidence != 95 {
		t.Fatalf("unexpected confidence defaults %+v", f)
	}
}

func TestParseCatalogMergesOverDefaults(t *testing.T) {
	data := []byte(`
thresholds:
  cpr_narrow_percent: 0.25
families:
  - name: pivot
    zone_source: pivot
    base_confidence: 50
    factors:
      - { kind: trend_agreement, confirm: 10, partial: 5, contradict: 5 }
  - name: scalper
    levels: 3
    factors:
      - { kind: momentum, confirm: 10, partial: 5, contradict: 5, threshold: 0.2 }
`)
	cat, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cat.Thresholds.CPRNarrowPercent != 0.25 || cat.Thresholds.FakeSpikeVolumeRatio != 2.5 {
		t.Fatalf("unexpected thresholds %+v", cat.Thresholds)
	}
	if cat.Predictor != DefaultPredictorConfig() {
		t.Fatalf("unexpected predictor %+v", cat.Predictor)
	}
	if len(cat.Families) != 6 {
		t.Fatalf("expected 5 built-in plus 1 new family, got %d", len(cat.Families))
	}

	e := NewEngine(cat)
	var pivot models.FamilyConfig
	for _, f := range e.Families() {
		if f.Name == FamilyPivot {
			pivot = f
		}
	}
	if pivot.BaseConfidence != 50 || len(pivot.Factors) != 1 || pivot.NeutralLabel != models.SignalNeutral {
		t.Fatalf("expected pivot replaced, got %+v", pivot)
	}
	if !e.HasFamily("scalper") {
		t.Fatalf("expected new family registered")
	}
}

func TestParseCatalogKeepsExplicitZeros(t *testing.T) {
	data := []byte(`
thresholds:
  core_band_percent: 0
  doji_body_percent: 0
families:
  - name: eager
    min_action_confidence: 0
    factors:
      - { kind: trend_agreement, confirm: 10, partial: 5, contradict: 5 }
`)
	cat, err := ParseCatalog(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cat.Thresholds.CoreBandPercent != 0 || cat.Thresholds.DojiBodyPercent != 0 {
		t.Fatalf("explicit zero thresholds were reset: %+v", cat.Thresholds)
	}
	if cat.Thresholds.StrongBodyPercent != 60 || cat.Thresholds.CPRNarrowPercent != 0.3 {
		t.Fatalf("omitted thresholds should keep defaults: %+v", cat.Thresholds)
	}

	var eager models.FamilyConfig
	for _, f := range cat.Families {
		if f.Name == "eager" {
			eager = f
		}
	}
	if eager.MinActionConfidence != 0 {
		t.Fatalf("explicit zero min_action_confidence was reset to %d", eager.MinActionConfidence)
	}
	if eager.BaseConfidence != 45 || eager.Levels != 5 {
		t.Fatalf("omitted family fields should keep defaults: %+v", eager)
	}
}

func TestParseCatalogRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"bad yaml":       "families: [",
		"bad factor":     "families:\n  - name: x\n    factors:\n      - { kind: nope }\n",
		"bad thresholds": "thresholds:\n  pcr_bear: 0.4\n",
	}
	for name, body := range cases {
		if _, err := ParseCatalog([]byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadCatalog(t *testing.T) {
	cat, err := LoadCatalog("")
	if err != nil || len(cat.Families) != 5 {
		t.Fatalf("expected defaults, got %d families, err %v", len(cat.Families), err)
	}

	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte("predictor:\n  momentum_strong: 0.8\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err = LoadCatalog(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cat.Predictor.MomentumStrong != 0.8 || cat.Predictor.MomentumMild != 0.15 {
		t.Fatalf("unexpected predictor %+v", cat.Predictor)
	}

	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
