package scoring

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Evidence windows the gate compares, in days.
const (
	ShortWindowDays = 28
	LongWindowDays  = 56
)

// Tier is a rank tier. Tiers are ordered from Bronze (lowest) to Mythic.
type Tier string

const (
	TierBronze  Tier = "bronze"
	TierSilver  Tier = "silver"
	TierGold    Tier = "gold"
	TierDiamond Tier = "diamond"
	TierApex    Tier = "apex"
	TierMythic  Tier = "mythic"
)

// Tiers lists every tier in ascending order.
var Tiers = []Tier{TierBronze, TierSilver, TierGold, TierDiamond, TierApex, TierMythic}

// Index returns the tier's position in Tiers, or -1 for an unknown tier.
func (t Tier) Index() int {
	for i, tt := range Tiers {
		if tt == t {
			return i
		}
	}
	return -1
}

// Formula names a 1RM estimation formula.
type Formula string

const (
	FormulaEpley   Formula = "epley"
	FormulaBrzycki Formula = "brzycki"
)

// OverreachPolicy names how the volume curve behaves above MRV.
type OverreachPolicy string

const (
	// OverreachPlateau holds the MAV score for any count above MRV.
	OverreachPlateau OverreachPolicy = "plateau"
	// OverreachDecline subtracts DeclinePerSet for every set above MRV, down to FloorScore.
	OverreachDecline OverreachPolicy = "decline"
)

// Config holds every tunable scoring parameter. It is built by ParseConfig and
// must not be modified afterwards.
type Config struct {
	Version            string                     `yaml:"version" json:"version"`
	AllometricExponent float64                    `yaml:"allometric_exponent" json:"allometric_exponent"`
	OneRepMax          OneRepMaxConfig            `yaml:"one_rep_max" json:"one_rep_max"`
	RankTiers          map[Tier]TierRange         `yaml:"rank_tiers" json:"rank_tiers"`
	PercentileBands    map[Sex][]PercentileBand   `yaml:"percentile_bands" json:"percentile_bands"`
	PercentileCurve    []CurvePoint               `yaml:"percentile_curve" json:"percentile_curve"`
	AgeAdjustment      AgeAdjustment              `yaml:"age_adjustment" json:"age_adjustment"`
	VolumeLandmarks    map[string]VolumeLandmarks `yaml:"volume_landmarks" json:"volume_landmarks"`
	VolumeCurve        VolumeCurve                `yaml:"volume_curve" json:"volume_curve"`
	CompositeWeights   CompositeWeights           `yaml:"composite_weights" json:"composite_weights"`
	Decay              DecayConfig                `yaml:"decay" json:"decay"`
	EvidenceGating     []GateWindow               `yaml:"evidence_gating" json:"evidence_gating"`
	Aggregation        AggregationConfig          `yaml:"aggregation" json:"aggregation"`
	Recovery           RecoveryConfig             `yaml:"recovery" json:"recovery"`
	Streak             StreakConfig               `yaml:"streak" json:"streak"`

	// Lookup tables derived by validate.
	tiers     []tierBand
	bands     map[Sex]table
	curve     table
	ageCurve  table
	brackets  []bracket
	gateSteps map[int][]GateStep
}

type OneRepMaxConfig struct {
	Formula    Formula `yaml:"formula" json:"formula"`
	RepCeiling int     `yaml:"rep_ceiling" json:"rep_ceiling"`
}

// TierRange is the [Min, Max) score band of a tier; Mythic includes 100.
type TierRange struct {
	Min   float64 `yaml:"min" json:"min"`
	Max   float64 `yaml:"max" json:"max"`
	Color string  `yaml:"color,omitempty" json:"color,omitempty"`
}

// PercentileBand anchors a population percentile to a normalized strength metric.
type PercentileBand struct {
	Percentile  float64 `yaml:"percentile" json:"percentile"`
	MetricValue float64 `yaml:"metric_value" json:"metric_value"`
}

// CurvePoint anchors a percentile to a 0-100 score.
type CurvePoint struct {
	Percentile float64 `yaml:"percentile" json:"percentile"`
	Score      float64 `yaml:"score" json:"score"`
}

// AgeAdjustment scales the strength metric by age. When Enabled is false the
// age input is a no-op.
type AgeAdjustment struct {
	Enabled bool       `yaml:"enabled" json:"enabled"`
	Curve   []AgePoint `yaml:"curve,omitempty" json:"curve,omitempty"`
}

type AgePoint struct {
	Age    float64 `yaml:"age" json:"age"`
	Factor float64 `yaml:"factor" json:"factor"`
}

// VolumeLandmarks are the weekly hard-set landmarks for lifters with at least
// MinYears of training age.
type VolumeLandmarks struct {
	MinYears float64 `yaml:"min_years" json:"min_years"`
	MEV      float64 `yaml:"mev" json:"mev"`
	MAV      float64 `yaml:"mav" json:"mav"`
	MRV      float64 `yaml:"mrv" json:"mrv"`
}

type VolumeCurve struct {
	MEVScore      float64         `yaml:"mev_score" json:"mev_score"`
	MAVScore      float64         `yaml:"mav_score" json:"mav_score"`
	AboveMRV      OverreachPolicy `yaml:"above_mrv" json:"above_mrv"`
	DeclinePerSet float64         `yaml:"decline_per_set,omitempty" json:"decline_per_set,omitempty"`
	FloorScore    float64         `yaml:"floor_score,omitempty" json:"floor_score,omitempty"`
	LookbackWeeks int             `yaml:"lookback_weeks" json:"lookback_weeks"`
}

type CompositeWeights struct {
	Strength float64 `yaml:"strength" json:"strength"`
	Volume   float64 `yaml:"volume" json:"volume"`
}

type DecayConfig struct {
	HalfLifeDays float64 `yaml:"half_life_days" json:"half_life_days"`
}

// GateWindow maps session counts in a trailing window to score ceilings.
type GateWindow struct {
	WindowDays int        `yaml:"window_days" json:"window_days"`
	Steps      []GateStep `yaml:"steps" json:"steps"`
}

// GateStep caps the score at MaxScore once MinSessions sessions are logged.
type GateStep struct {
	MinSessions int     `yaml:"min_sessions" json:"min_sessions"`
	MaxScore    float64 `yaml:"max_score" json:"max_score"`
}

type AggregationConfig struct {
	// MinContribution filters out negligible contributions (percent).
	MinContribution float64 `yaml:"min_contribution" json:"min_contribution"`
	// FullCreditContribution is the contribution at which the scale factor reaches 1.
	FullCreditContribution float64 `yaml:"full_credit_contribution" json:"full_credit_contribution"`
}

type RecoveryConfig struct {
	FullRecoveryHours float64 `yaml:"full_recovery_hours" json:"full_recovery_hours"`
	FatiguedBelowPct  float64 `yaml:"fatigued_below_pct" json:"fatigued_below_pct"`
}

type StreakConfig struct {
	MinSessionsPerWeek int `yaml:"min_sessions_per_week" json:"min_sessions_per_week"`
}

type tierBand struct {
	tier Tier
	TierRange
}

type bracket struct {
	name string
	VolumeLandmarks
}

// LoadConfig reads and validates a scoring config document.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scoring config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig validates a YAML scoring document against the schema, decodes it
// and checks cross-field rules. No field is ever defaulted.
func ParseConfig(data []byte) (*Config, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, configErr("document", "parsing YAML: %v", err)
	}
	if len(doc) == 0 {
		return nil, configErr("document", "empty")
	}
	if err := validateSchema(doc); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, configErr("document", "decoding: %v", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// TierTable returns the tier bands in ascending order.
func (c *Config) TierTable() []TierBand {
	out := make([]TierBand, len(c.tiers))
	for i, t := range c.tiers {
		out[i] = TierBand{Tier: t.tier, Min: t.Min, Max: t.Max, Color: t.Color}
	}
	return out
}

// TierBand is one row of the rank table.
type TierBand struct {
	Tier  Tier    `json:"tier"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Color string  `json:"color,omitempty"`
}

func (c *Config) validate() error {
	if c.Version == "" {
		return configErr("version", "is required")
	}
	if !(c.AllometricExponent > 0 && c.AllometricExponent <= 1) {
		return configErr("allometric_exponent", "must be in (0, 1], got %v", c.AllometricExponent)
	}
	if err := c.validateOneRepMax(); err != nil {
		return err
	}
	if err := c.validateTiers(); err != nil {
		return err
	}
	if err := c.validatePercentiles(); err != nil {
		return err
	}
	if err := c.validateAge(); err != nil {
		return err
	}
	if err := c.validateVolume(); err != nil {
		return err
	}

	w := c.CompositeWeights
	if w.Strength < 0 || w.Volume < 0 || math.Abs(w.Strength+w.Volume-1) > 1e-9 {
		return configErr("composite_weights", "must be non-negative and sum to 1, got %v + %v", w.Strength, w.Volume)
	}
	if !(c.Decay.HalfLifeDays > 0) {
		return configErr("decay.half_life_days", "must be positive")
	}
	if err := c.validateGating(); err != nil {
		return err
	}

	a := c.Aggregation
	if a.MinContribution < 0 || a.MinContribution > 100 {
		return configErr("aggregation.min_contribution", "must be in [0, 100]")
	}
	if !(a.FullCreditContribution > 0 && a.FullCreditContribution <= 100) {
		return configErr("aggregation.full_credit_contribution", "must be in (0, 100]")
	}
	if !(c.Recovery.FullRecoveryHours > 0) {
		return configErr("recovery.full_recovery_hours", "must be positive")
	}
	if c.Recovery.FatiguedBelowPct < 0 || c.Recovery.FatiguedBelowPct > 100 {
		return configErr("recovery.fatigued_below_pct", "must be in [0, 100]")
	}
	if c.Streak.MinSessionsPerWeek < 1 {
		return configErr("streak.min_sessions_per_week", "must be at least 1")
	}
	return nil
}

func (c *Config) validateOneRepMax() error {
	o := c.OneRepMax
	switch o.Formula {
	case FormulaEpley:
	case FormulaBrzycki:
		// Brzycki's denominator reaches zero at 37 reps.
		if o.RepCeiling >= 37 {
			return configErr("one_rep_max.rep_ceiling", "must be below 37 for brzycki, got %d", o.RepCeiling)
		}
	default:
		return configErr("one_rep_max.formula", "unknown formula %q", o.Formula)
	}
	if o.RepCeiling < 1 {
		return configErr("one_rep_max.rep_ceiling", "must be at least 1")
	}
	return nil
}

func (c *Config) validateTiers() error {
	c.tiers = c.tiers[:0]
	for _, t := range Tiers {
		r, ok := c.RankTiers[t]
		if !ok {
			return configErr("rank_tiers", "missing tier %q", t)
		}
		if !(r.Min < r.Max) {
			return configErr("rank_tiers."+string(t), "min %v must be below max %v", r.Min, r.Max)
		}
		c.tiers = append(c.tiers, tierBand{tier: t, TierRange: r})
	}
	if len(c.RankTiers) != len(Tiers) {
		return configErr("rank_tiers", "unknown tier name present")
	}
	if c.tiers[0].Min != 0 {
		return configErr("rank_tiers.bronze", "must start at 0")
	}
	if c.tiers[len(c.tiers)-1].Max != 100 {
		return configErr("rank_tiers.mythic", "must end at 100")
	}
	for i := 1; i < len(c.tiers); i++ {
		if c.tiers[i].Min != c.tiers[i-1].Max {
			return configErr("rank_tiers."+string(c.tiers[i].tier),
				"min %v leaves a gap or overlap with %s max %v", c.tiers[i].Min, c.tiers[i-1].tier, c.tiers[i-1].Max)
		}
	}
	return nil
}

func (c *Config) validatePercentiles() error {
	if len(c.PercentileBands) != 2 {
		return configErr("percentile_bands", "exactly the male and female tables are required")
	}
	c.bands = make(map[Sex]table, 2)
	for _, sex := range []Sex{SexMale, SexFemale} {
		bands, ok := c.PercentileBands[sex]
		if !ok {
			return configErr("percentile_bands", "missing %s table", sex)
		}
		metrics := make([]float64, len(bands))
		percentiles := make([]float64, len(bands))
		for i, b := range bands {
			metrics[i], percentiles[i] = b.MetricValue, b.Percentile
		}
		if err := checkMonotone(percentiles, true); err != nil {
			return configErr("percentile_bands."+string(sex), "percentile %v", err)
		}
		if err := checkMonotone(metrics, false); err != nil {
			return configErr("percentile_bands."+string(sex), "metric_value %v", err)
		}
		c.bands[sex] = table{xs: metrics, ys: percentiles}
	}

	percentiles := make([]float64, len(c.PercentileCurve))
	scores := make([]float64, len(c.PercentileCurve))
	for i, p := range c.PercentileCurve {
		percentiles[i], scores[i] = p.Percentile, p.Score
	}
	if err := checkMonotone(percentiles, true); err != nil {
		return configErr("percentile_curve", "percentile %v", err)
	}
	if err := checkMonotone(scores, false); err != nil {
		return configErr("percentile_curve", "score %v", err)
	}
	c.curve = table{xs: percentiles, ys: scores}

	silver := c.RankTiers[TierSilver]
	if median := c.curve.at(50); median < silver.Min || median >= silver.Max {
		return configErr("percentile_curve", "50th percentile maps to %v, outside silver [%v, %v)", median, silver.Min, silver.Max)
	}
	return nil
}

func (c *Config) validateAge() error {
	a := c.AgeAdjustment
	if !a.Enabled {
		return nil
	}
	if len(a.Curve) == 0 {
		return configErr("age_adjustment.curve", "required when age adjustment is enabled")
	}
	xs := make([]float64, len(a.Curve))
	ys := make([]float64, len(a.Curve))
	for i, p := range a.Curve {
		if !(p.Factor > 0) {
			return configErr("age_adjustment.curve", "factor must be positive at age %v", p.Age)
		}
		xs[i], ys[i] = p.Age, p.Factor
	}
	if err := checkMonotone(xs, true); err != nil {
		return configErr("age_adjustment.curve", "age %v", err)
	}
	c.ageCurve = table{xs: xs, ys: ys}
	return nil
}

func (c *Config) validateVolume() error {
	if len(c.VolumeLandmarks) == 0 {
		return configErr("volume_landmarks", "at least one training-age bracket is required")
	}
	c.brackets = c.brackets[:0]
	for name, l := range c.VolumeLandmarks {
		if !(l.MEV > 0 && l.MEV <= l.MAV && l.MAV <= l.MRV) {
			return configErr("volume_landmarks."+name, "need 0 < mev <= mav <= mrv, got %v/%v/%v", l.MEV, l.MAV, l.MRV)
		}
		c.brackets = append(c.brackets, bracket{name: name, VolumeLandmarks: l})
	}
	sort.Slice(c.brackets, func(i, j int) bool {
		if c.brackets[i].MinYears == c.brackets[j].MinYears {
			return c.brackets[i].name < c.brackets[j].name
		}
		return c.brackets[i].MinYears < c.brackets[j].MinYears
	})
	if c.brackets[0].MinYears != 0 {
		return configErr("volume_landmarks", "a bracket with min_years 0 is required")
	}
	for i := 1; i < len(c.brackets); i++ {
		if c.brackets[i].MinYears == c.brackets[i-1].MinYears {
			return configErr("volume_landmarks", "brackets %q and %q share min_years %v",
				c.brackets[i-1].name, c.brackets[i].name, c.brackets[i].MinYears)
		}
	}

	v := c.VolumeCurve
	if !(v.MEVScore <= v.MAVScore) {
		return configErr("volume_curve", "mev_score must not exceed mav_score")
	}
	switch v.AboveMRV {
	case OverreachPlateau:
	case OverreachDecline:
		if !(v.DeclinePerSet > 0) {
			return configErr("volume_curve.decline_per_set", "must be positive for the decline policy")
		}
		if v.FloorScore > v.MAVScore {
			return configErr("volume_curve.floor_score", "must not exceed mav_score")
		}
	default:
		return configErr("volume_curve.above_mrv", "unknown policy %q", v.AboveMRV)
	}
	if v.LookbackWeeks < 1 {
		return configErr("volume_curve.lookback_weeks", "must be at least 1")
	}
	return nil
}

func (c *Config) validateGating() error {
	c.gateSteps = make(map[int][]GateStep, len(c.EvidenceGating))
	for _, w := range c.EvidenceGating {
		field := fmt.Sprintf("evidence_gating[%d]", w.WindowDays)
		if _, dup := c.gateSteps[w.WindowDays]; dup {
			return configErr(field, "duplicate window")
		}
		if len(w.Steps) == 0 || w.Steps[0].MinSessions != 0 {
			return configErr(field, "first step must have min_sessions 0")
		}
		for i := 1; i < len(w.Steps); i++ {
			if w.Steps[i].MinSessions <= w.Steps[i-1].MinSessions {
				return configErr(field, "min_sessions must strictly increase")
			}
			if w.Steps[i].MaxScore < w.Steps[i-1].MaxScore {
				return configErr(field, "max_score must not decrease")
			}
		}
		c.gateSteps[w.WindowDays] = w.Steps
	}
	for _, days := range []int{ShortWindowDays, LongWindowDays} {
		if _, ok := c.gateSteps[days]; !ok {
			return configErr("evidence_gating", "window %d is required", days)
		}
	}
	return nil
}
