package ingestion

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nba-insights/backend/internal/storage/models"
)

func intPtr(n int) *int { return &n }

func TestTransformTeamRendersUnknownForMissingFields(t *testing.T) {
	doc := TransformTeam(models.TeamRecord{Name: "Boston Celtics", Abbreviation: "BOS"})

	assert.Equal(t, "team_BOS", doc.ID)
	assert.Contains(t, doc.Content, "Team: Boston Celtics")
	assert.Contains(t, doc.Content, "City: Unknown")
	assert.Contains(t, doc.Content, "Founded: Unknown")
	assert.Contains(t, doc.Content, "Years Active: Unknown - Unknown")
	assert.Equal(t, "team", doc.Metadata["type"])
}

func TestTransformTeamIsPure(t *testing.T) {
	team := models.TeamRecord{
		Name:         "Los Angeles Lakers",
		Abbreviation: "LAL",
		City:         "Los Angeles",
		League:       "NBA",
		FoundedYear:  intPtr(1947),
		Wins:         "3601",
		Losses:       "2524",
	}

	first := TransformTeam(team)
	second := TransformTeam(team)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Content, second.Content)
}

func TestTransformPlayerRendersBioInSortedOrder(t *testing.T) {
	player := models.PlayerRecord{
		ID:        "jamesle01",
		FirstName: "LeBron",
		LastName:  "James",
		BirthDate: "1984-12-30",
		Bio: map[string]string{
			"Position": "Forward",
			"Born":     "December 30, 1984",
		},
	}

	doc := TransformPlayer(player)

	assert.Equal(t, "player_jamesle01", doc.ID)
	assert.Contains(t, doc.Content, "Player: LeBron James")
	bornAt := strings.Index(doc.Content, "Born:")
	positionAt := strings.Index(doc.Content, "Position:")
	require.GreaterOrEqual(t, bornAt, 0)
	require.GreaterOrEqual(t, positionAt, 0)
	assert.Less(t, bornAt, positionAt, "bio keys render sorted")
}

func TestTransformPlayerCapsStatRowsAndFillsEmptyCells(t *testing.T) {
	rows := [][]string{
		{"2019-20", "67", ""},
		{"2020-21", "45", "25.0"},
		{"2021-22", "56", "30.3"},
		{"2022-23", "55", "28.9"},
	}
	player := models.PlayerRecord{
		ID: "p1",
		Stats: map[string]models.StatTable{
			"per_game": {Headers: []string{"Season", "G", "PTS"}, Rows: rows},
		},
	}

	doc := TransformPlayer(player)

	assert.Contains(t, doc.Content, "Per Game Statistics:")
	assert.Contains(t, doc.Content, "Headers: Season, G, PTS")
	assert.Contains(t, doc.Content, "Row 1: 2019-20, 67, N/A")
	assert.Contains(t, doc.Content, "Row 3: 2021-22, 56, 30.3")
	assert.NotContains(t, doc.Content, "2022-23", "at most three rows per table")
}

func TestTransformSeasonTallies(t *testing.T) {
	games := []models.GameRecord{
		{HomeTeam: "A", AwayTeam: "B", HomeScore: intPtr(100), AwayScore: intPtr(90), Season: 2020, League: "NBA"},
		{HomeTeam: "B", AwayTeam: "C", HomeScore: nil, AwayScore: nil, Season: 2020, League: "NBA"},
	}

	doc := TransformSeason(2020, games)

	assert.Equal(t, "season_2020", doc.ID)
	assert.Contains(t, doc.Content, "NBA Season 2020 Statistics:")
	assert.Contains(t, doc.Content, "Total Games: 2")
	assert.Contains(t, doc.Content, "Completed Games: 1")
	assert.Contains(t, doc.Content, "A: 1W-0L (1.000), Points For: 100, Points Against: 90")
	assert.Contains(t, doc.Content, "B: 0W-1L (0.000), Points For: 90, Points Against: 100")
	assert.Equal(t, 1, doc.Metadata["completed_games"])
}

func TestTransformSeasonTopTenOnly(t *testing.T) {
	var games []models.GameRecord
	// Team T00 beats T01, T02 beats T03, and so on. Winners get one
	// win each; twelve distinct teams appear.
	for i := 0; i < 12; i += 2 {
		games = append(games, models.GameRecord{
			HomeTeam:  fmt.Sprintf("T%02d", i),
			AwayTeam:  fmt.Sprintf("T%02d", i+1),
			HomeScore: intPtr(100),
			AwayScore: intPtr(90),
			Season:    2020,
		})
	}

	doc := TransformSeason(2020, games)

	assert.Equal(t, 10, strings.Count(doc.Content, "Points For:"), "summary lists at most ten teams")
	// Ties break by first appearance, so the last two teams fall off.
	assert.NotContains(t, doc.Content, "T11:")
}

func TestTransformSeasonEmpty(t *testing.T) {
	doc := TransformSeason(1999, nil)

	assert.Contains(t, doc.Content, "Total Games: 0")
	assert.Contains(t, doc.Content, "League: Unknown")
	assert.NotContains(t, doc.Content, "Points For:")
}

func TestTransformCoach(t *testing.T) {
	coach := models.CoachRecord{
		ID:       "jacksph01c",
		FullName: "Phil Jackson",
		Bio:      map[string]string{"Record": "1155-485"},
	}

	doc := TransformCoach(coach)

	assert.Equal(t, "coach_jacksph01c", doc.ID)
	assert.Contains(t, doc.Content, "Coach: Phil Jackson")
	assert.Contains(t, doc.Content, "Record: 1155-485")
	assert.Equal(t, "coach", doc.Metadata["type"])
}
