package scoring

// EffectiveSessions picks the evidence window to gate on: whichever window
// logged more sessions, with the long window winning ties.
func EffectiveSessions(e EvidenceWindow) (sessions, windowDays int) {
	if e.Sessions56 >= e.Sessions28 {
		return e.Sessions56, LongWindowDays
	}
	return e.Sessions28, ShortWindowDays
}

// GateCeiling returns the highest score allowed for a session count in a
// window: the max_score of the last step whose min_sessions is reached.
func GateCeiling(cfg *Config, sessions, windowDays int) (float64, error) {
	if sessions < 0 {
		return 0, inputErr("session count", float64(sessions), "must not be negative")
	}
	steps, ok := cfg.gateSteps[windowDays]
	if !ok {
		return 0, inputErr("window days", float64(windowDays), "no gating table for window")
	}
	ceiling := steps[0].MaxScore
	for _, s := range steps[1:] {
		if sessions < s.MinSessions {
			break
		}
		ceiling = s.MaxScore
	}
	return ceiling, nil
}

// GateScore caps score at the ceiling for the session count in a window.
func GateScore(cfg *Config, score float64, sessions, windowDays int) (float64, error) {
	if !finite(score) {
		return 0, inputErr("score", score, "must be a number")
	}
	ceiling, err := GateCeiling(cfg, sessions, windowDays)
	if err != nil {
		return 0, err
	}
	if score > ceiling {
		return ceiling, nil
	}
	return score, nil
}

// ApplyEvidenceGate gates score on the effective window of e.
func ApplyEvidenceGate(cfg *Config, score float64, e EvidenceWindow) (gated, ceiling float64, err error) {
	sessions, window := EffectiveSessions(e)
	ceiling, err = GateCeiling(cfg, sessions, window)
	if err != nil {
		return 0, 0, err
	}
	gated, err = GateScore(cfg, score, sessions, window)
	return gated, ceiling, err
}
