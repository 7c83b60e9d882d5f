package fraud

import (
	"context"
	"time"
)

// Engine runs every evaluator over a lead and aggregates their partial scores
// into a single decision. The engine itself never fails: provider errors are
// absorbed by the evaluators and an unreachable dependency simply contributes
// no signal.
type Engine struct {
	evaluators []Evaluator
	now        func() time.Time
}

// EngineOption configures an Engine
type EngineOption func(*engineOptions)

type engineOptions struct {
	now      func() time.Time
	voip     VoIPDetector
	geocoder Geocoder
	signals  SignalProvider
}

// WithClock overrides the engine's clock. Tests use it to pin the
// suspicious-timing and rapid-submission rules to a known instant.
func WithClock(now func() time.Time) EngineOption {
	return func(o *engineOptions) { o.now = now }
}

// WithVoIPDetector wires in a line-type lookup provider
func WithVoIPDetector(d VoIPDetector) EngineOption {
	return func(o *engineOptions) { o.voip = d }
}

// WithGeocoder wires in an address verification provider
func WithGeocoder(g Geocoder) EngineOption {
	return func(o *engineOptions) { o.geocoder = g }
}

// WithSignalProvider wires in a technical signal source
func WithSignalProvider(p SignalProvider) EngineOption {
	return func(o *engineOptions) { o.signals = p }
}

// NewEngine builds an engine with the standard evaluator set
func NewEngine(rules RuleConfig, opts ...EngineOption) *Engine {
	options := engineOptions{now: time.Now}
	for _, opt := range opts {
		opt(&options)
	}

	return &Engine{
		evaluators: []Evaluator{
			NewContactEvaluator(rules, options.voip),
			NewLocationEvaluator(rules, options.geocoder),
			NewBehaviorEvaluator(),
			NewContentEvaluator(rules),
			NewTechnicalEvaluator(options.signals),
		},
		now: options.now,
	}
}

// Evaluate scores a lead against its submission history.
// Evaluators run in a fixed order and their contributions are summed, so the
// same input always produces the same output for a given clock reading.
func (e *Engine) Evaluate(ctx context.Context, lead *Lead, history []SubmissionHistoryEntry) FraudDetectionResult {
	now := e.now()

	total := 0
	var reasons, recommendations []string
	for _, evaluator := range e.evaluators {
		partial := evaluator.Evaluate(ctx, lead, history, now)
		total += partial.Score
		reasons = append(reasons, partial.Reasons...)
		recommendations = append(recommendations, partial.Recommendations...)
	}

	if total > 100 {
		total = 100
	}
	if total < 0 {
		total = 0
	}

	score := FraudScore{
		TotalScore:      total,
		RiskLevel:       RiskLevelFromScore(total),
		Reasons:         dedupe(reasons),
		Recommendations: dedupe(recommendations),
	}

	return FraudDetectionResult{
		IsFraud:              total >= thresholdCritical,
		FraudScore:           score,
		ManualReviewRequired: total >= thresholdHigh,
		VerificationRequired: total >= thresholdMedium,
		AutoApprove:          total < thresholdLow,
	}
}

// dedupe removes duplicates preserving first-occurrence order. The result is
// never nil so serialized scores carry [] rather than null.
func dedupe(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
