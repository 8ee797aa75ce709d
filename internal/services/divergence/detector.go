package divergence

import (
	"math"

	"TradePulse/internal/domain/models"
	"TradePulse/internal/domain/service"
)

// Config holds the swing-comparison tunables.
type Config struct {
	Lookback         int     // candles examined, counted from the end
	PivotWindow      int     // W: a pivot is the extreme within ±W candles
	StrongRatio      float64 // indicator/price delta ratio for "strong"
	MediumRatio      float64 // ratio for "medium"
	VolumeSurgeRatio float64 // latest volume vs trailing mean
	VolumeWindow     int     // trailing candles for the volume mean
}

func DefaultConfig() Config {
	return Config{
		Lookback:         60,
		PivotWindow:      2,
		StrongRatio:      3.0,
		MediumRatio:      1.5,
		VolumeSurgeRatio: 1.3,
		VolumeWindow:     10,
	}
}

// Detector finds price/indicator divergences by comparing the two most
// recent swing pivots. It never fails: any degenerate input degrades to the
// explicit neutral finding.
type Detector struct {
	cfg Config
}

var _ service.DivergenceDetector = (*Detector)(nil)

func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// finding is one detected divergence before aggregation.
type finding struct {
	divType   models.DivergenceType
	strength  models.DivergenceStrength
	confirmed bool
	ratio     float64
}

func (d *Detector) Detect(series *models.TimeframeSeries) (result models.DivergenceFinding) {
	result = models.NeutralDivergence()

	// Degenerate inputs (zero ranges, unexpected shapes) must degrade to
	// neutral, not abort the evaluation.
	defer func() {
		if r := recover(); r != nil {
			result = models.NeutralDivergence()
		}
	}()

	if series == nil {
		return result
	}

	w := d.cfg.PivotWindow
	n := series.Len()
	if n < 2*w+1 {
		return result
	}
	if len(series.Oscillator) != n || len(series.Histogram) != n ||
		len(series.MFI) != n || len(series.EMAShort) != n || len(series.EMALong) != n {
		return result
	}

	// Window the last lookback candles; alignment is preserved because all
	// series share candle indices.
	start := 0
	if n > d.cfg.Lookback {
		start = n - d.cfg.Lookback
	}
	candles := series.Candles[start:]
	osc := series.Oscillator[start:]
	hist := series.Histogram[start:]
	mfi := series.MFI[start:]
	emaShort := series.EMAShort[start:]
	emaLong := series.EMALong[start:]

	lows := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	for i, c := range candles {
		lows[i] = c.Low
		highs[i] = c.High
	}

	pivotLows := pivotIndexes(lows, w, true)
	pivotHighs := pivotIndexes(highs, w, false)

	ctx := &confirmContext{
		candles:  candles,
		mfi:      mfi,
		emaShort: emaShort,
		emaLong:  emaLong,
	}

	oscFinding := d.bestOf(
		d.compare(lows, osc, pivotLows, models.DivergenceBullish, ctx),
		d.compare(highs, osc, pivotHighs, models.DivergenceBearish, ctx),
	)
	histFinding := d.bestOf(
		d.compare(lows, hist, pivotLows, models.DivergenceBullish, ctx),
		d.compare(highs, hist, pivotHighs, models.DivergenceBearish, ctx),
	)

	var bullScore, bearScore float64
	for _, f := range []*finding{oscFinding, histFinding} {
		if f == nil {
			continue
		}
		score := baseScore(f.strength)
		if f.confirmed {
			score += 0.1
		}
		switch f.divType {
		case models.DivergenceBullish:
			bullScore += score
		case models.DivergenceBearish:
			bearScore += score
		}
	}

	// Volume surge adds a small bonus to whichever side already dominates.
	if d.volumeSurge(candles) {
		if bullScore > bearScore {
			bullScore += 0.05
		} else if bearScore > bullScore {
			bearScore += 0.05
		}
	}

	if oscFinding != nil {
		result.Oscillator = models.IndicatorDivergence{
			Type: oscFinding.divType, Confirmed: oscFinding.confirmed, Strength: oscFinding.strength,
		}
	}
	if histFinding != nil {
		result.Histogram = models.IndicatorDivergence{
			Type: histFinding.divType, Confirmed: histFinding.confirmed, Strength: histFinding.strength,
		}
	}

	switch {
	case bullScore > bearScore:
		result.OverallBias = d.biasFor(models.DivergenceBullish, emaShort, emaLong)
		result.Confidence = clamp01(bullScore)
	case bearScore > bullScore:
		result.OverallBias = d.biasFor(models.DivergenceBearish, emaShort, emaLong)
		result.Confidence = clamp01(bearScore)
	default:
		result.OverallBias = models.BiasNeutral
		result.Confidence = 0
	}

	return result
}

// pivotIndexes returns the indices that are the strict extreme within ±w.
func pivotIndexes(values []float64, w int, wantLow bool) []int {
	var out []int
	for i := w; i < len(values)-w; i++ {
		isPivot := true
		hasNeighborBeyond := false
		for j := i - w; j <= i+w; j++ {
			if j == i {
				continue
			}
			if wantLow {
				if values[j] < values[i] {
					isPivot = false
					break
				}
				if values[j] > values[i] {
					hasNeighborBeyond = true
				}
			} else {
				if values[j] > values[i] {
					isPivot = false
					break
				}
				if values[j] < values[i] {
					hasNeighborBeyond = true
				}
			}
		}
		if isPivot && hasNeighborBeyond {
			out = append(out, i)
		}
	}
	return out
}

type confirmContext struct {
	candles  []models.Candle
	mfi      []float64
	emaShort []float64
	emaLong  []float64
}

// compare checks the two most recent pivots for a price/indicator
// disagreement in the direction divType argues for.
func (d *Detector) compare(price, indicator []float64, pivots []int, divType models.DivergenceType, ctx *confirmContext) *finding {
	if len(pivots) < 2 {
		return nil
	}
	i1 := pivots[len(pivots)-2]
	i2 := pivots[len(pivots)-1]

	p1, p2 := price[i1], price[i2]
	v1, v2 := indicator[i1], indicator[i2]

	switch divType {
	case models.DivergenceBullish:
		// Price lower low while the indicator holds a higher low.
		if !(p2 < p1 && v2 > v1) {
			return nil
		}
	case models.DivergenceBearish:
		// Price higher high while the indicator rolls over.
		if !(p2 > p1 && v2 < v1) {
			return nil
		}
	default:
		return nil
	}

	ratio := deltaRatio(p1, p2, v1, v2)
	if ratio <= 0 {
		return nil
	}

	return &finding{
		divType:   divType,
		strength:  d.strengthOf(ratio),
		confirmed: d.isConfirmed(divType, ctx),
		ratio:     ratio,
	}
}

// deltaRatio relates the indicator's relative move to the price's relative
// move. Both legs are percentages so oscillator and histogram divergences
// grade on the same scale.
func deltaRatio(p1, p2, v1, v2 float64) float64 {
	pricePct := math.Abs(p2-p1) / math.Abs(p1) * 100
	if pricePct == 0 || math.IsNaN(pricePct) || math.IsInf(pricePct, 0) {
		return 0
	}
	base := math.Abs(v1)
	if base < 1e-9 {
		base = 1e-9
	}
	indPct := math.Abs(v2-v1) / base * 100
	ratio := indPct / pricePct
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return 0
	}
	return ratio
}

func (d *Detector) strengthOf(ratio float64) models.DivergenceStrength {
	switch {
	case ratio > d.cfg.StrongRatio:
		return models.StrengthStrong
	case ratio > d.cfg.MediumRatio:
		return models.StrengthMedium
	default:
		return models.StrengthWeak
	}
}

// isConfirmed requires three independent signs that the market already moves
// the divergence's way: the latest close, money flow, and a short EMA turn.
func (d *Detector) isConfirmed(divType models.DivergenceType, ctx *confirmContext) bool {
	n := len(ctx.candles)
	if n < 2 {
		return false
	}

	closeUp := ctx.candles[n-1].Close > ctx.candles[n-2].Close
	mfiUp := ctx.mfi[n-1] > ctx.mfi[n-2]
	emaTurnUp := ctx.emaShort[n-1] > ctx.emaShort[n-2] ||
		(ctx.emaShort[n-1]-ctx.emaLong[n-1]) > (ctx.emaShort[n-2]-ctx.emaLong[n-2])

	if divType == models.DivergenceBullish {
		return closeUp && mfiUp && emaTurnUp
	}

	emaTurnDown := ctx.emaShort[n-1] < ctx.emaShort[n-2] ||
		(ctx.emaShort[n-1]-ctx.emaLong[n-1]) < (ctx.emaShort[n-2]-ctx.emaLong[n-2])
	return !closeUp && !mfiUp && emaTurnDown
}

// bestOf keeps the stronger of a bullish and bearish reading for the same
// indicator.
func (d *Detector) bestOf(a, b *finding) *finding {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if b.ratio > a.ratio {
		return b
	}
	return a
}

// volumeSurge reports whether the latest volume exceeds the surge ratio
// against its trailing mean.
func (d *Detector) volumeSurge(candles []models.Candle) bool {
	n := len(candles)
	if n < d.cfg.VolumeWindow+1 {
		return false
	}
	var sum float64
	for i := n - 1 - d.cfg.VolumeWindow; i < n-1; i++ {
		sum += candles[i].Volume
	}
	mean := sum / float64(d.cfg.VolumeWindow)
	if mean <= 0 {
		return false
	}
	return candles[n-1].Volume > d.cfg.VolumeSurgeRatio*mean
}

// biasFor maps the dominant divergence side to a market bias. A divergence
// against the local EMA trend argues for reversal, one with it for
// continuation.
func (d *Detector) biasFor(divType models.DivergenceType, emaShort, emaLong []float64) models.Bias {
	n := len(emaShort)
	localUp := emaShort[n-1] > emaLong[n-1]

	if divType == models.DivergenceBullish {
		if localUp {
			return models.BiasContinuation
		}
		return models.BiasBullishReversal
	}
	if localUp {
		return models.BiasBearishReversal
	}
	return models.BiasContinuation
}

func baseScore(s models.DivergenceStrength) float64 {
	switch s {
	case models.StrengthStrong:
		return 0.4
	case models.StrengthMedium:
		return 0.3
	default:
		return 0.2
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
