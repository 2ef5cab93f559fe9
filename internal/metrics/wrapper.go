package metrics

// Wrapper adapts Metrics to the small sink interface the engine consumes,
// keeping the engine decoupled from the Prometheus types. A nil Wrapper is
// safe and records nothing, which is how the engine runs in tests.
type Wrapper struct {
	m *Metrics
}

// NewWrapper creates a wrapper around the given metrics.
func NewWrapper(m *Metrics) *Wrapper {
	return &Wrapper{m: m}
}

func (w *Wrapper) PredictionsInc() {
	if w != nil && w.m != nil {
		w.m.PredictionsTotal.Inc()
	}
}

func (w *Wrapper) ModelFailuresInc() {
	if w != nil && w.m != nil {
		w.m.ModelFailures.Inc()
	}
}

func (w *Wrapper) ModelTimeoutsInc() {
	if w != nil && w.m != nil {
		w.m.ModelTimeouts.Inc()
	}
}

func (w *Wrapper) EnsembleExhaustedInc() {
	if w != nil && w.m != nil {
		w.m.EnsembleExhausted.Inc()
	}
}

func (w *Wrapper) FeatureDefaultsAdd(n int) {
	if w != nil && w.m != nil {
		w.m.FeatureDefaults.Add(float64(n))
	}
}

func (w *Wrapper) ModelsLoadedSet(n int) {
	if w != nil && w.m != nil {
		w.m.ModelsLoaded.Set(float64(n))
	}
}

func (w *Wrapper) LatencyObserve(seconds float64) {
	if w != nil && w.m != nil {
		w.m.PredictionLatency.Observe(seconds)
	}
}

func (w *Wrapper) ConfidenceObserve(score float64) {
	if w != nil && w.m != nil {
		w.m.ConfidenceScores.Observe(score)
	}
}
