package models

// Requests for the evaluation HTTP endpoints. Defined in domain for
// consistency and reuse.

type EvaluateRequest struct {
	Symbol     string  `query:"symbol" json:"symbol" validate:"required"`
	Direction  string  `query:"direction" json:"direction" default:"long" validate:"oneof=long short"`
	Context    string  `query:"context" json:"context" default:"entry" validate:"oneof=entry reactivation position"`
	EntryPrice float64 `query:"entry_price" json:"entry_price" validate:"gte=0"`
	MarkPrice  float64 `query:"mark_price" json:"mark_price" validate:"gte=0"`
	Size       float64 `query:"size" json:"size" validate:"gte=0"`
	Leverage   float64 `query:"leverage" json:"leverage" default:"20" validate:"gte=1,lte=125"`
}

type PendingSignalsRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
}

type DecisionHistoryRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=200"`
	// Since filters out decisions made before this point. RFC3339 or unix
	// seconds; empty means no lower bound.
	Since string `query:"since" json:"since"`
}
