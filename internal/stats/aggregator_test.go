package stats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves pre-built pages keyed by page number and counts
// fetches.
type fakeSource struct {
	teams      []Team
	teamsErr   error
	teamsCalls int

	pages    map[int][]Game
	pageErrs map[int]error
	fetches  int
}

func (f *fakeSource) Teams(context.Context) ([]Team, error) {
	f.teamsCalls++
	return f.teams, f.teamsErr
}

func (f *fakeSource) GamesPage(_ context.Context, _, _, pageNum int) ([]Game, error) {
	f.fetches++
	if err, ok := f.pageErrs[pageNum]; ok {
		return nil, err
	}
	return f.pages[pageNum], nil
}

func homeWin(teamID, opponentID int) Game {
	return Game{
		HomeTeam:         GameTeam{ID: teamID},
		VisitorTeam:      GameTeam{ID: opponentID},
		HomeTeamScore:    110,
		VisitorTeamScore: 100,
	}
}

func homeLoss(teamID, opponentID int) Game {
	return Game{
		HomeTeam:         GameTeam{ID: teamID},
		VisitorTeam:      GameTeam{ID: opponentID},
		HomeTeamScore:    95,
		VisitorTeamScore: 100,
	}
}

func TestWinsForTeamSeasonPagesUntilShortPage(t *testing.T) {
	// A full first page forces a second fetch; the empty second page
	// ends pagination. Fifty home wins, fifty home losses.
	page1 := make([]Game, 0, PageSize)
	for i := 0; i < 50; i++ {
		page1 = append(page1, homeWin(1, 2))
		page1 = append(page1, homeLoss(1, 2))
	}
	source := &fakeSource{pages: map[int][]Game{1: page1, 2: {}}}
	agg := NewAggregator(source)

	wins, partial, err := agg.WinsForTeamSeason(context.Background(), 1, 2020)
	require.NoError(t, err)

	assert.Equal(t, 50, wins)
	assert.False(t, partial)
	assert.Equal(t, 2, source.fetches)
}

func TestWinsForTeamSeasonSinglePage(t *testing.T) {
	source := &fakeSource{pages: map[int][]Game{
		1: {homeWin(1, 2), homeLoss(1, 3), homeWin(1, 4)},
	}}
	agg := NewAggregator(source)

	wins, partial, err := agg.WinsForTeamSeason(context.Background(), 1, 2020)
	require.NoError(t, err)

	assert.Equal(t, 2, wins)
	assert.False(t, partial)
	assert.Equal(t, 1, source.fetches, "a short page ends pagination")
}

func TestWinsForTeamSeasonCountsVisitorWins(t *testing.T) {
	source := &fakeSource{pages: map[int][]Game{
		1: {
			// Team 1 visiting and winning.
			{HomeTeam: GameTeam{ID: 2}, VisitorTeam: GameTeam{ID: 1}, HomeTeamScore: 90, VisitorTeamScore: 99},
			// Team 1 visiting and losing.
			{HomeTeam: GameTeam{ID: 2}, VisitorTeam: GameTeam{ID: 1}, HomeTeamScore: 99, VisitorTeamScore: 90},
		},
	}}
	agg := NewAggregator(source)

	wins, _, err := agg.WinsForTeamSeason(context.Background(), 1, 2020)
	require.NoError(t, err)
	assert.Equal(t, 1, wins)
}

func TestWinsForTeamSeasonSkipsPostseason(t *testing.T) {
	playoffWin := homeWin(1, 2)
	playoffWin.Postseason = true
	source := &fakeSource{pages: map[int][]Game{
		1: {homeWin(1, 2), playoffWin},
	}}
	agg := NewAggregator(source)

	wins, _, err := agg.WinsForTeamSeason(context.Background(), 1, 2020)
	require.NoError(t, err)
	assert.Equal(t, 1, wins)
}

func TestWinsForTeamSeasonPartialOnMidStreamFailure(t *testing.T) {
	page1 := make([]Game, 0, PageSize)
	for i := 0; i < PageSize; i++ {
		page1 = append(page1, homeWin(1, 2))
	}
	source := &fakeSource{
		pages:    map[int][]Game{1: page1},
		pageErrs: map[int]error{2: errors.New("boom")},
	}
	agg := NewAggregator(source)

	wins, partial, err := agg.WinsForTeamSeason(context.Background(), 1, 2020)
	require.NoError(t, err)

	assert.Equal(t, PageSize, wins)
	assert.True(t, partial)
}

func TestWinsForTeamSeasonPropagatesCancellation(t *testing.T) {
	source := &fakeSource{pageErrs: map[int]error{1: context.Canceled}}
	agg := NewAggregator(source)

	_, _, err := agg.WinsForTeamSeason(context.Background(), 1, 2020)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLeagueAverageWins(t *testing.T) {
	// Two teams, ten games, team 1 wins all of them: average is 5.0.
	var games []Game
	for i := 0; i < 10; i++ {
		games = append(games, homeWin(1, 2))
	}
	source := &fakeSource{pages: map[int][]Game{1: games}}
	agg := NewAggregator(source)

	avg, err := agg.LeagueAverageWins(context.Background(), 2020)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, avg, 1e-9)
}

func TestLeagueAverageWinsCountsWinlessTeams(t *testing.T) {
	source := &fakeSource{pages: map[int][]Game{
		1: {homeWin(1, 2), homeWin(1, 3), homeWin(2, 3)},
	}}
	agg := NewAggregator(source)

	avg, err := agg.LeagueAverageWins(context.Background(), 2020)
	require.NoError(t, err)

	// Three wins across three distinct teams, team 3 contributing zero.
	assert.InDelta(t, 1.0, avg, 1e-9)
}

func TestLeagueAverageWinsEmptySeason(t *testing.T) {
	source := &fakeSource{pages: map[int][]Game{1: {}}}
	agg := NewAggregator(source)

	avg, err := agg.LeagueAverageWins(context.Background(), 1870)
	require.NoError(t, err)
	assert.Zero(t, avg)
}

func TestTeamIDForName(t *testing.T) {
	source := &fakeSource{teams: []Team{
		{ID: 2, FullName: "Boston Celtics"},
		{ID: 14, FullName: "Los Angeles Lakers"},
	}}
	agg := NewAggregator(source)

	id, ok, err := agg.TeamIDForName(context.Background(), "lakers")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 14, id)

	_, ok, err = agg.TeamIDForName(context.Background(), "Seattle SuperSonics")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, source.teamsCalls, "name table is fetched once")
}

func TestTeamIDForNamePropagatesFetchError(t *testing.T) {
	source := &fakeSource{teamsErr: errors.New("unreachable")}
	agg := NewAggregator(source)

	_, _, err := agg.TeamIDForName(context.Background(), "lakers")
	assert.Error(t, err)
}
