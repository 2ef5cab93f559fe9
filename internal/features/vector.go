package features

import "math"

// NumFeatures is the fixed width of the model input vector. Every model
// artifact is trained against exactly this layout.
const NumFeatures = 30

// Slot indices. Order is part of the model contract and must not change
// without retraining.
const (
	IdxHomeFormScore = iota
	IdxAwayFormScore
	IdxHomePointsPerGame
	IdxAwayPointsPerGame
	IdxHomeGoalsPerGame
	IdxAwayGoalsPerGame
	IdxHomeLeaguePosition
	IdxAwayLeaguePosition
	IdxHomeGoalDifference
	IdxAwayGoalDifference
	IdxHomeExpectedGoals
	IdxAwayExpectedGoals
	IdxH2HFormScore
	IdxH2HHomeWins
	IdxH2HAvgGoals
	IdxHomeRestDays
	IdxAwayRestDays
	IdxHomeInjuryCount
	IdxAwayInjuryCount
	IdxHomeInjuryImpact
	IdxAwayInjuryImpact
	IdxHomeWinStreak
	IdxAwayWinStreak
	IdxHomeUnbeatenStreak
	IdxAwayUnbeatenStreak
	IdxHomeManagerTenure
	IdxAwayManagerTenure
	IdxWeatherImpact
	IdxTemperature
	IdxMarketHomeProb
)

var slotNames = [NumFeatures]string{
	"home_form_score",
	"away_form_score",
	"home_points_per_game",
	"away_points_per_game",
	"home_goals_per_game",
	"away_goals_per_game",
	"home_league_position",
	"away_league_position",
	"home_goal_difference",
	"away_goal_difference",
	"home_expected_goals",
	"away_expected_goals",
	"h2h_form_score",
	"h2h_home_wins",
	"h2h_avg_goals",
	"home_rest_days",
	"away_rest_days",
	"home_injury_count",
	"away_injury_count",
	"home_injury_impact",
	"away_injury_impact",
	"home_win_streak",
	"away_win_streak",
	"home_unbeaten_streak",
	"away_unbeaten_streak",
	"home_manager_tenure",
	"away_manager_tenure",
	"weather_impact",
	"temperature",
	"market_home_prob",
}

// Defaults and scale constants for the slot transforms.
const (
	defaultFormScore     = 0.5
	defaultPointsPerGame = 1.3
	defaultGoalsPerGame  = 1.3
	defaultPosition      = 10
	defaultHomeXG        = 1.5
	defaultAwayXG        = 1.2
	defaultRestDays      = 7
	defaultManagerTenure = 365
	defaultTemperatureC  = 15
	defaultMarketProb    = 0.45

	winStreakCap    = 5
	unbeatenCap     = 10
	injuryCountCap  = 5
	headToHeadLimit = 5
)

// SlotName returns the stable name of a vector slot.
func SlotName(i int) string {
	if i < 0 || i >= NumFeatures {
		return "unknown"
	}
	return slotNames[i]
}

// Vector builds the model input from a match record. It never fails: any
// missing or non-finite input falls back to the slot's default, and the
// names of defaulted slots are returned alongside the vector.
func Vector(rec MatchRecord) ([]float64, []string) {
	b := newBuilder()

	b.setForm(IdxHomeFormScore, rec.Home.LastFiveResults)
	b.setForm(IdxAwayFormScore, rec.Away.LastFiveResults)
	b.setRate(IdxHomePointsPerGame, rec.Home.PointsPerGame, 3, defaultPointsPerGame)
	b.setRate(IdxAwayPointsPerGame, rec.Away.PointsPerGame, 3, defaultPointsPerGame)
	b.setRate(IdxHomeGoalsPerGame, rec.Home.GoalsPerGame, 4, defaultGoalsPerGame)
	b.setRate(IdxAwayGoalsPerGame, rec.Away.GoalsPerGame, 4, defaultGoalsPerGame)
	b.setPosition(IdxHomeLeaguePosition, rec.Home.LeaguePosition)
	b.setPosition(IdxAwayLeaguePosition, rec.Away.LeaguePosition)
	b.set(IdxHomeGoalDifference, clamp(float64(rec.Home.GoalDifference)/50, -1, 1))
	b.set(IdxAwayGoalDifference, clamp(float64(rec.Away.GoalDifference)/50, -1, 1))
	b.setRate(IdxHomeExpectedGoals, rec.Home.ExpectedGoals, 4, defaultHomeXG)
	b.setRate(IdxAwayExpectedGoals, rec.Away.ExpectedGoals, 4, defaultAwayXG)
	b.setHeadToHead(rec.HeadToHead)
	b.setRestDays(IdxHomeRestDays, rec.Home.DaysSinceLastMatch)
	b.setRestDays(IdxAwayRestDays, rec.Away.DaysSinceLastMatch)
	b.setInjuries(rec.Injuries)
	b.set(IdxHomeWinStreak, math.Min(float64(rec.Home.WinStreak)/winStreakCap, 1))
	b.set(IdxAwayWinStreak, math.Min(float64(rec.Away.WinStreak)/winStreakCap, 1))
	b.set(IdxHomeUnbeatenStreak, math.Min(float64(rec.Home.UnbeatenStreak)/unbeatenCap, 1))
	b.set(IdxAwayUnbeatenStreak, math.Min(float64(rec.Away.UnbeatenStreak)/unbeatenCap, 1))
	b.setTenure(IdxHomeManagerTenure, rec.Home.ManagerTenureDays)
	b.setTenure(IdxAwayManagerTenure, rec.Away.ManagerTenureDays)
	b.setWeather(rec.Weather)
	b.setMarket(rec.Market)

	// Final sweep: nothing non-finite leaves this package.
	for i, v := range b.vec {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			b.vec[i] = 0
			b.markDefault(i)
		}
	}
	return b.vec[:], b.defaulted
}

type builder struct {
	vec       [NumFeatures]float64
	defaulted []string
}

func newBuilder() *builder { return &builder{} }

func (b *builder) set(idx int, v float64) { b.vec[idx] = v }

func (b *builder) setDefault(idx int, v float64) {
	b.vec[idx] = v
	b.markDefault(idx)
}

func (b *builder) markDefault(idx int) {
	b.defaulted = append(b.defaulted, slotNames[idx])
}

// setForm scores a W/D/L string as (wins + 0.5*draws)/games. Characters
// other than W/D/L still count as played games.
func (b *builder) setForm(idx int, results string) {
	if results == "" {
		b.setDefault(idx, defaultFormScore)
		return
	}
	var score float64
	for _, r := range results {
		switch r {
		case 'W':
			score++
		case 'D':
			score += 0.5
		}
	}
	b.set(idx, score/float64(len(results)))
}

// setRate scales a per-game rate into [0,1]. Non-positive or non-finite
// values mean the stat is missing.
func (b *builder) setRate(idx int, v, scale, def float64) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		b.setDefault(idx, def/scale)
		return
	}
	b.set(idx, clamp(v/scale, 0, 1))
}

// setPosition maps league position to strength: 1st -> 1.0, 20th -> 0.05.
func (b *builder) setPosition(idx int, pos int) {
	if pos <= 0 {
		b.setDefault(idx, float64(21-defaultPosition)/20)
		return
	}
	p := clamp(float64(pos), 1, 20)
	b.set(idx, (21-p)/20)
}

func (b *builder) setRestDays(idx int, days int) {
	if days <= 0 {
		b.setDefault(idx, math.Min(defaultRestDays/14.0, 1))
		return
	}
	b.set(idx, math.Min(float64(days)/14, 1))
}

func (b *builder) setTenure(idx int, days int) {
	if days <= 0 {
		b.setDefault(idx, math.Min(defaultManagerTenure/1000.0, 1))
		return
	}
	b.set(idx, math.Min(float64(days)/1000, 1))
}

func (b *builder) setHeadToHead(meetings []HeadToHead) {
	if len(meetings) == 0 {
		b.setDefault(IdxH2HFormScore, 0.5)
		b.setDefault(IdxH2HHomeWins, 0.5)
		b.setDefault(IdxH2HAvgGoals, 0.5)
		return
	}
	if len(meetings) > headToHeadLimit {
		meetings = meetings[len(meetings)-headToHeadLimit:]
	}
	var score, wins, goals float64
	for _, m := range meetings {
		switch m.Result {
		case "HOME":
			score++
			wins++
		case "DRAW":
			score += 0.5
		}
		goals += float64(m.HomeGoals + m.AwayGoals)
	}
	n := float64(len(meetings))
	b.set(IdxH2HFormScore, score/n)
	b.set(IdxH2HHomeWins, wins/headToHeadLimit)
	b.set(IdxH2HAvgGoals, clamp(goals/n/5, 0, 1))
}

// setInjuries encodes availability, so a fully fit squad scores 1.
// A nil report is treated as "no known injuries", not as missing data.
func (b *builder) setInjuries(rep *InjuryReport) {
	if rep == nil {
		rep = &InjuryReport{}
	}
	b.set(IdxHomeInjuryCount, 1-math.Min(float64(rep.HomeCount)/injuryCountCap, 1))
	b.set(IdxAwayInjuryCount, 1-math.Min(float64(rep.AwayCount)/injuryCountCap, 1))
	b.set(IdxHomeInjuryImpact, clamp(1-rep.HomeImpact, 0, 1))
	b.set(IdxAwayInjuryImpact, clamp(1-rep.AwayImpact, 0, 1))
}

func (b *builder) setWeather(w *WeatherReport) {
	if w == nil {
		b.setDefault(IdxWeatherImpact, 0)
		b.setDefault(IdxTemperature, (defaultTemperatureC+30)/60.0)
		return
	}
	b.set(IdxWeatherImpact, clamp(w.Impact, 0, 1))
	b.set(IdxTemperature, clamp((w.TemperatureC+30)/60, 0, 1))
}

func (b *builder) setMarket(m *MarketOdds) {
	if m == nil || m.HomeProb <= 0 || m.HomeProb >= 1 || math.IsNaN(m.HomeProb) {
		b.setDefault(IdxMarketHomeProb, defaultMarketProb)
		return
	}
	b.set(IdxMarketHomeProb, m.HomeProb)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
