package models

import "time"

// Direction is the side a signal or position wants the market to move.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Opposite returns the other side.
func (d Direction) Opposite() Direction {
	if d == DirectionLong {
		return DirectionShort
	}
	return DirectionLong
}

// EvalContext selects the decision policy applied to a snapshot.
type EvalContext string

const (
	ContextEntry        EvalContext = "entry"
	ContextReactivation EvalContext = "reactivation"
	ContextPosition     EvalContext = "position"
)

// TrendCode buckets a timeframe's trend. Negative is bearish, positive
// bullish, zero sideways.
type TrendCode int

const (
	TrendStrongBear TrendCode = -2
	TrendBear       TrendCode = -1
	TrendSideways   TrendCode = 0
	TrendBull       TrendCode = 1
	TrendStrongBull TrendCode = 2
)

// Label returns the human-readable trend name.
func (t TrendCode) Label() string {
	switch t {
	case TrendStrongBear:
		return "strong_bear"
	case TrendBear:
		return "bear"
	case TrendBull:
		return "bull"
	case TrendStrongBull:
		return "strong_bull"
	default:
		return "sideways"
	}
}

// Favors reports whether the trend points the same way as d.
func (t TrendCode) Favors(d Direction) bool {
	if d == DirectionLong {
		return t > 0
	}
	return t < 0
}

// TimeframeSeries holds the per-timeframe indicator series derived from one
// candle sequence. Every series has the same length as Candles and shares its
// index alignment; swing comparisons rely on that.
type TimeframeSeries struct {
	Timeframe  Timeframe
	Candles    []Candle
	EMAShort   []float64
	EMALong    []float64
	Oscillator []float64 // bounded 0-100
	Histogram  []float64 // momentum histogram (fast minus signal)
	ATR        []float64
	MFI        []float64 // bounded 0-100
}

// Len returns the candle count.
func (s *TimeframeSeries) Len() int { return len(s.Candles) }

// LastClose returns the most recent close, or 0 for an empty series.
func (s *TimeframeSeries) LastClose() float64 {
	if len(s.Candles) == 0 {
		return 0
	}
	return s.Candles[len(s.Candles)-1].Close
}

// TrendReading is the classified trend of one timeframe.
type TrendReading struct {
	Timeframe Timeframe
	Code      TrendCode
	Strength  float64 // spread magnitude relative to volatility
}

// DivergenceType marks the direction a divergence argues for.
type DivergenceType string

const (
	DivergenceNone    DivergenceType = "none"
	DivergenceBullish DivergenceType = "bullish"
	DivergenceBearish DivergenceType = "bearish"
)

// DivergenceStrength buckets the indicator-to-price delta ratio.
type DivergenceStrength string

const (
	StrengthWeak   DivergenceStrength = "weak"
	StrengthMedium DivergenceStrength = "medium"
	StrengthStrong DivergenceStrength = "strong"
)

// Bias is the divergence-driven verdict on whether conditions favor
// continuation or reversal of the major trend.
type Bias string

const (
	BiasNeutral         Bias = "neutral"
	BiasBullishReversal Bias = "bullish_reversal"
	BiasBearishReversal Bias = "bearish_reversal"
	BiasContinuation    Bias = "continuation"
)

// IsReversal reports whether b flags reversal risk in either direction.
func (b Bias) IsReversal() bool {
	return b == BiasBullishReversal || b == BiasBearishReversal
}

// IndicatorDivergence is the per-indicator divergence reading.
type IndicatorDivergence struct {
	Type      DivergenceType     `json:"type"`
	Confirmed bool               `json:"confirmed"`
	Strength  DivergenceStrength `json:"strength"`
}

// DivergenceFinding is the full output of the divergence detector for one
// snapshot. The zero value plus BiasNeutral is the explicit "nothing found"
// result used for graceful degradation.
type DivergenceFinding struct {
	Oscillator  IndicatorDivergence `json:"oscillator"`
	Histogram   IndicatorDivergence `json:"histogram"`
	OverallBias Bias                `json:"overall_bias"`
	Confidence  float64             `json:"confidence"`
}

// NeutralDivergence returns the explicit empty finding.
func NeutralDivergence() DivergenceFinding {
	return DivergenceFinding{
		Oscillator:  IndicatorDivergence{Type: DivergenceNone, Strength: StrengthWeak},
		Histogram:   IndicatorDivergence{Type: DivergenceNone, Strength: StrengthWeak},
		OverallBias: BiasNeutral,
	}
}

// Grade buckets a 0-100 score into letter grades.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// GradeOf maps a score to its letter bucket.
func GradeOf(score float64) Grade {
	switch {
	case score >= 75:
		return GradeA
	case score >= 60:
		return GradeB
	case score >= 45:
		return GradeC
	default:
		return GradeD
	}
}

// RiskClass labels how risky acting on a score is.
type RiskClass string

const (
	RiskLow     RiskClass = "low"
	RiskMedium  RiskClass = "medium"
	RiskHigh    RiskClass = "high"
	RiskExtreme RiskClass = "extreme"
)

// RiskClassOf maps a technical score to a risk class.
func RiskClassOf(score float64) RiskClass {
	switch {
	case score >= 80:
		return RiskLow
	case score >= 60:
		return RiskMedium
	case score >= 40:
		return RiskHigh
	default:
		return RiskExtreme
	}
}

// ScoreBundle holds every normalized sub-score plus the derived aggregates.
// All scores are clamped to [0,100]; Confidence to [0,1].
type ScoreBundle struct {
	Trend      float64 `json:"trend"`
	Momentum   float64 `json:"momentum"`
	Volatility float64 `json:"volatility"`
	Divergence float64 `json:"divergence"`
	Structure  float64 `json:"structure"`
	Micro      float64 `json:"micro"`
	SmartEntry float64 `json:"smart_entry"`

	TechnicalScore float64   `json:"technical_score"`
	MatchRatio     float64   `json:"match_ratio"`
	Grade          Grade     `json:"grade"`
	Confidence     float64   `json:"confidence"`
	RiskClass      RiskClass `json:"risk_class"`
}

// EntryMode is the entry validator's admission verdict.
type EntryMode string

const (
	EntryOK    EntryMode = "ok"
	EntryWarn  EntryMode = "warn"
	EntryBlock EntryMode = "block"
)

// EntryVerdict is the smart entry validator output.
type EntryVerdict struct {
	Score   float64   `json:"score"`
	Grade   Grade     `json:"grade"`
	Mode    EntryMode `json:"mode"`
	Allowed bool      `json:"allowed"`
	Reasons []string  `json:"reasons"`
}

// Snapshot is the per-evaluation bundle of all timeframe data and derived
// readings for one symbol. Constructed fresh per evaluation and discarded
// after the decision is produced; only scalar outputs are persisted.
type Snapshot struct {
	Symbol     string
	Direction  Direction
	Selected   []Timeframe
	Series     map[Timeframe]*TimeframeSeries
	Trends     map[Timeframe]TrendReading
	MajorTrend TrendCode
	Divergence DivergenceFinding
	Scores     ScoreBundle
	Dropped    map[Timeframe]string // excluded timeframes and why
}

// DecisionKind enumerates the externally meaningful outcomes.
type DecisionKind string

const (
	DecisionEnter        DecisionKind = "enter"
	DecisionWait         DecisionKind = "wait"
	DecisionSkip         DecisionKind = "skip"
	DecisionReversalRisk DecisionKind = "reversal_risk"
	DecisionClose        DecisionKind = "close"
	DecisionClosePartial DecisionKind = "close_partial"
	DecisionKeep         DecisionKind = "keep"
	DecisionReverse      DecisionKind = "reverse"
)

// Decision is the sole externally meaningful output of an evaluation.
type Decision struct {
	Symbol     string            `json:"symbol"`
	Context    EvalContext       `json:"context"`
	Direction  Direction         `json:"direction"`
	Kind       DecisionKind      `json:"decision"`
	Reason     string            `json:"reason"`
	Scores     ScoreBundle       `json:"scores"`
	Divergence DivergenceFinding `json:"divergence"`
	Entry      *EntryVerdict     `json:"entry,omitempty"`

	// Reactivation context.
	ReactivationAllowed bool `json:"reactivation_allowed,omitempty"`

	// Position context.
	DynamicStop  float64 `json:"dynamic_stop,omitempty"`
	ClosePercent float64 `json:"close_percent,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// SignalStatus is the lifecycle state of a stored signal.
type SignalStatus string

const (
	SignalPending     SignalStatus = "pending"
	SignalActive      SignalStatus = "active"
	SignalReactivated SignalStatus = "reactivated"
	SignalDiscarded   SignalStatus = "discarded"
)

// Signal is an ingested trading signal awaiting or past evaluation.
type Signal struct {
	ID         string       `json:"id"`
	Symbol     string       `json:"symbol"`
	Direction  Direction    `json:"direction"`
	EntryPrice float64      `json:"entry_price"`
	Status     SignalStatus `json:"status"`
	MatchRatio float64      `json:"match_ratio"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// PositionState describes an open position for the position-review context.
type PositionState struct {
	Symbol     string    `json:"symbol"`
	Direction  Direction `json:"direction"`
	EntryPrice float64   `json:"entry_price"`
	MarkPrice  float64   `json:"mark_price"`
	Size       float64   `json:"size"`
	Leverage   float64   `json:"leverage"`
}

// ROI returns the leveraged percentage return of the position.
func (p PositionState) ROI() float64 {
	if p.EntryPrice == 0 {
		return 0
	}
	change := (p.MarkPrice - p.EntryPrice) / p.EntryPrice * 100
	if p.Direction == DirectionShort {
		change = -change
	}
	lev := p.Leverage
	if lev <= 0 {
		lev = 1
	}
	return change * lev
}
