package signals

import (
	"SignalEngine/internal/domain/models"
)

// SynthesisInput is everything the synthesizer reads.
type SynthesisInput struct {
	Zone       models.ZoneClassification
	Bias       models.Trend
	Confidence int
	CPR        models.CPRClass
	Candle     models.CandleQuality
	Status     models.DataStatus
}

// Synthesize turns zone, bias, confidence and CPR class into a signal.
//
// Rules, first match wins:
//  1. extreme zone (or a confirmed H3/L3 push) with a non-opposing bias and
//     confidence at the strong threshold: STRONG_BUY / STRONG_SELL;
//     an unconfirmed extreme still rides the breakout unless the bias opposes;
//  2. NARROW CPR rides the zone side unless the bias opposes;
//  3. WIDE CPR fades the zone side;
//  4. anything else is neutral.
//
// Directional calls below the family's action threshold drop to neutral, a
// fake spike caps strong calls, and 3-level families never emit strong calls.
func Synthesize(in SynthesisInput, f models.FamilyConfig) models.Signal {
	return finalize(decide(in, f), in, f)
}

func decide(in SynthesisInput, f models.FamilyConfig) models.Signal {
	pos, known := zonePosition(in.Zone.Classifier, in.Zone.Value)
	if !known || abs(pos) < 2 {
		return models.SignalNeutral
	}
	side, b := sign(pos), in.Bias.Sign()

	if abs(pos) == 3 || edgeConfirmed(in.Zone, pos, in.Status, in.Candle) {
		if b != -side && in.Confidence >= f.StrongThreshold {
			return strong(side)
		}
		if abs(pos) == 3 {
			if b == -side {
				return models.SignalNeutral
			}
			return plain(side)
		}
	}

	switch in.CPR {
	case models.CPRNarrow:
		if b == -side {
			return models.SignalNeutral
		}
		return plain(side)
	case models.CPRWide:
		return plain(-side)
	default:
		return models.SignalNeutral
	}
}

func finalize(sig models.Signal, in SynthesisInput, f models.FamilyConfig) models.Signal {
	dir := sig.Direction()
	if dir != 0 && in.Confidence < f.MinActionConfidence {
		return f.Neutral()
	}
	if sig.IsStrong() && (in.Candle == models.CandleFakeSpike || f.Levels == 3) {
		sig = plain(dir)
	}
	if dir == 0 {
		return f.Neutral()
	}
	return sig
}

func strong(dir int) models.Signal {
	if dir > 0 {
		return models.SignalStrongBuy
	}
	return models.SignalStrongSell
}

func plain(dir int) models.Signal {
	if dir > 0 {
		return models.SignalBuy
	}
	return models.SignalSell
}
