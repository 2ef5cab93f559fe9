// Package features turns a raw match record into the fixed-width numeric
// vector every model consumes. Missing or malformed inputs never error;
// each slot has a documented default and the builder reports which slots
// were defaulted so callers can log and penalize data quality.
package features

// MatchRecord is the engine's input: everything known about an upcoming
// fixture. Pointer and slice fields are optional; absence means "use
// defaults".
type MatchRecord struct {
	MatchID    string         `json:"matchId"`
	Home       TeamSnapshot   `json:"home"`
	Away       TeamSnapshot   `json:"away"`
	HeadToHead []HeadToHead   `json:"headToHead,omitempty"`
	Injuries   *InjuryReport  `json:"injuries,omitempty"`
	Weather    *WeatherReport `json:"weather,omitempty"`
	Market     *MarketOdds    `json:"market,omitempty"`
}

// TeamSnapshot captures one team's current state.
type TeamSnapshot struct {
	// LastFiveResults is most-recent-last, characters W/D/L.
	LastFiveResults     string  `json:"lastFiveResults"`
	PointsPerGame       float64 `json:"pointsPerGame"`
	GoalsPerGame        float64 `json:"goalsPerGame"`
	GoalsAgainstPerGame float64 `json:"goalsAgainstPerGame"`
	LeaguePosition      int     `json:"leaguePosition"`
	GoalDifference      int     `json:"goalDifference"`
	ExpectedGoals       float64 `json:"expectedGoals"`
	DaysSinceLastMatch  int     `json:"daysSinceLastMatch"`
	WinStreak           int     `json:"winStreak"`
	UnbeatenStreak      int     `json:"unbeatenStreak"`
	ManagerTenureDays   int     `json:"managerTenureDays"`
}

// HeadToHead is one prior meeting. Result is from the current home team's
// perspective: HOME, DRAW or AWAY.
type HeadToHead struct {
	Result    string `json:"result"`
	HomeGoals int    `json:"homeGoals"`
	AwayGoals int    `json:"awayGoals"`
}

// InjuryReport summarizes squad availability for both sides.
type InjuryReport struct {
	HomeCount  int     `json:"homeCount"`
	AwayCount  int     `json:"awayCount"`
	HomeImpact float64 `json:"homeImpact"`
	AwayImpact float64 `json:"awayImpact"`
}

// WeatherReport carries the matchday conditions. Impact is a pre-scored
// severity in [0,1].
type WeatherReport struct {
	Impact       float64 `json:"impact"`
	TemperatureC float64 `json:"temperatureC"`
}

// MarketOdds carries the betting market's implied home win probability.
type MarketOdds struct {
	HomeProb float64 `json:"homeProb"`
}
