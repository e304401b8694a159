// Package models holds the wire types shared between the detection
// pipeline, the persistent store, and the HTTP surfaces.
package models

import "time"

// SignalType is the direction of a proposal: LONG when the pattern's
// first element is positive, SHORT when it is negative.
type SignalType string

const (
	Long  SignalType = "LONG"
	Short SignalType = "SHORT"
)

// Status is a proposal's lifecycle state.
type Status string

const (
	StatusActive  Status = "active"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Box is an input price interval with a signed value. Positive values
// are a bullish contribution, negative values bearish.
type Box struct {
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Value float64 `json:"value"`
}

// BoxDetail attaches the producing (high, low) bounds of the box whose
// integer value equals a path element.
type BoxDetail struct {
	IntegerValue int     `json:"integer_value"`
	High         float64 `json:"high"`
	Low          float64 `json:"low"`
	Value        float64 `json:"value"`
}

// Hit records the timestamp and price at which a threshold was crossed.
// A zero Hit (IsZero() Time) means "not yet hit".
type Hit struct {
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
}

func (h *Hit) IsSet() bool {
	return h != nil && !h.Timestamp.IsZero()
}

// Proposal is the externalized output of the pipeline: entry, ordered
// stop losses, ordered targets, per-target risk/reward, and hit
// tracking.
type Proposal struct {
	ID              string      `json:"id"`
	Pair            string      `json:"pair"`
	SignalType      SignalType  `json:"signal_type"`
	Level           int         `json:"level"`
	PatternSequence []int       `json:"pattern_sequence"`
	BoxDetails      []BoxDetail `json:"box_details"`
	Entry           float64     `json:"entry"`
	StopLosses      []float64   `json:"stop_losses"`
	Targets         []float64   `json:"targets"`
	RiskReward      []int       `json:"risk_reward"`

	TargetHits    []*Hit `json:"target_hits"`
	StopLossHit   *Hit   `json:"stop_loss_hit,omitempty"`
	Status        Status `json:"status"`
	SettledPrice  float64 `json:"settled_price,omitempty"`
}

// IsSettled reports whether the proposal has reached a terminal state.
func (p *Proposal) IsSettled() bool {
	return p.Status == StatusSuccess || p.Status == StatusFailed
}

// ForwardPayload is the JSON shape sent to the downstream sink and
// used for the store insert.
type ForwardPayload struct {
	Pair            string      `json:"pair"`
	SignalType      SignalType  `json:"signal_type"`
	Level           int         `json:"level"`
	PatternSequence []int       `json:"pattern_sequence"`
	BoxDetails      []BoxDetail `json:"box_details"`
	Entry           float64     `json:"entry"`
	StopLosses      []float64   `json:"stop_losses"`
	Targets         []float64   `json:"targets"`
	RiskReward      []int       `json:"risk_reward"`
}

// ToForwardPayload projects a Proposal into the wire shape shared by
// the forwarder and the store insert.
func (p *Proposal) ToForwardPayload() ForwardPayload {
	return ForwardPayload{
		Pair:            p.Pair,
		SignalType:      p.SignalType,
		Level:           p.Level,
		PatternSequence: p.PatternSequence,
		BoxDetails:      p.BoxDetails,
		Entry:           p.Entry,
		StopLosses:      p.StopLosses,
		Targets:         p.Targets,
		RiskReward:      p.RiskReward,
	}
}

// BoxUpdate is one inbound per-instrument update: 38 boxes, the current
// price, and a timestamp.
type BoxUpdate struct {
	Pair string `json:"pair"`
	Data struct {
		Boxes     []Box     `json:"boxes"`
		Price     float64   `json:"price"`
		Timestamp time.Time `json:"timestamp"`
	} `json:"data"`
}
