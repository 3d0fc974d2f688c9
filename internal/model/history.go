package model

// GameRecord is one player's stat line for one fixture. Records are append-only.
type GameRecord struct {
	PlayerID      int     `json:"player_id"`
	Round         int     `json:"round"`
	FixtureID     int     `json:"fixture_id"`
	OpponentTeam  int     `json:"opponent_team"`
	WasHome       bool    `json:"was_home"`
	Minutes       int     `json:"minutes"`
	Goals         int     `json:"goals_scored"`
	Assists       int     `json:"assists"`
	CleanSheet    int     `json:"clean_sheets"`
	GoalsConceded int     `json:"goals_conceded"`
	Saves         int     `json:"saves"`
	Bonus         int     `json:"bonus"`
	YellowCards   int     `json:"yellow_cards"`
	RedCards      int     `json:"red_cards"`
	OwnGoals      int     `json:"own_goals"`
	Threat        float64 `json:"threat"`
	Creativity    float64 `json:"creativity"`
	TotalPoints   int     `json:"total_points"`
}

// ConversionRatio maps attacking indices to expected goal/assist counts for a position.
type ConversionRatio struct {
	ThreatToGoal       float64 `json:"threat_to_goal"`
	CreativityToAssist float64 `json:"creativity_to_assist"`
}
