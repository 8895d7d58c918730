package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nba-insights/backend/internal/storage/models"
)

type captureSink struct {
	teams []*models.TeamRecord
	games []*models.GameRecord
}

func (s *captureSink) UpsertTeam(team *models.TeamRecord) error {
	s.teams = append(s.teams, team)
	return nil
}

func (s *captureSink) UpsertGame(game *models.GameRecord) error {
	s.games = append(s.games, game)
	return nil
}

const teamsHTML = `<html><body>
<table id="teams_active"><tbody>
<tr>
  <th data-stat="franch_name"><a href="/teams/BOS/">Boston Celtics</a></th>
  <td data-stat="lg_id">NBA</td>
  <td data-stat="year_min">1946-47</td>
  <td data-stat="year_max">2024-25</td>
  <td data-stat="g">6067</td>
  <td data-stat="wins">3611</td>
  <td data-stat="losses">2456</td>
  <td data-stat="win_loss_pct">.595</td>
  <td data-stat="years_playoffs">61</td>
  <td data-stat="years_division_champion">34</td>
  <td data-stat="years_conference_champion">11</td>
  <td data-stat="years_league_champion">18</td>
</tr>
<tr class="thead"><th data-stat="franch_name">Franchise</th></tr>
</tbody></table>
</body></html>`

const scheduleHTML = `<html><body>
<table id="schedule"><tbody>
<tr>
  <th data-stat="date_game">Tue, Oct 22, 2019</th>
  <td data-stat="visitor_team_name"><a href="/teams/NOP/2020.html">New Orleans Pelicans</a></td>
  <td data-stat="visitor_pts">122</td>
  <td data-stat="home_team_name"><a href="/teams/TOR/2020.html">Toronto Raptors</a></td>
  <td data-stat="home_pts">130</td>
</tr>
<tr>
  <th data-stat="date_game">Wed, Apr 15, 2020</th>
  <td data-stat="visitor_team_name"><a href="/teams/BOS/2020.html">Boston Celtics</a></td>
  <td data-stat="visitor_pts"></td>
  <td data-stat="home_team_name"><a href="/teams/MIA/2020.html">Miami Heat</a></td>
  <td data-stat="home_pts"></td>
</tr>
</tbody></table>
</body></html>`

func TestScrapeTeams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/teams/", r.URL.Path)
		w.Write([]byte(teamsHTML))
	}))
	defer server.Close()

	sink := &captureSink{}
	s := New(server.URL, "test-agent", 0, sink)

	count, err := s.ScrapeTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, sink.teams, 1)
	team := sink.teams[0]
	assert.Equal(t, "Boston Celtics", team.Name)
	assert.Equal(t, "BOS", team.Abbreviation)
	assert.Equal(t, "Boston", team.City)
	assert.Equal(t, "NBA", team.League)
	require.NotNil(t, team.FoundedYear)
	assert.Equal(t, 1946, *team.FoundedYear)
	assert.Equal(t, "3611", team.Wins)
	assert.Equal(t, "18", team.YearsLeagueChamps)
}

func TestScrapeSeasonWithoutMonthFilter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(scheduleHTML))
	}))
	defer server.Close()

	sink := &captureSink{}
	s := New(server.URL, "test-agent", 0, sink)

	count, err := s.ScrapeSeason(context.Background(), 2020)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.Len(t, sink.games, 2)
	first := sink.games[0]
	assert.Equal(t, "Tue, Oct 22, 2019", first.Date)
	assert.Equal(t, "TOR", first.HomeTeam)
	assert.Equal(t, "NOP", first.AwayTeam)
	require.NotNil(t, first.HomeScore)
	assert.Equal(t, 130, *first.HomeScore)
	assert.Equal(t, 2020, first.Season)
	assert.Equal(t, "NBA", first.League)

	// Unplayed games keep nil scores.
	second := sink.games[1]
	assert.Nil(t, second.HomeScore)
	assert.Nil(t, second.AwayScore)
}

func TestScrapeSeasonUsesBAAPrefix(t *testing.T) {
	var requestedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer server.Close()

	s := New(server.URL, "test-agent", 0, &captureSink{})

	_, err := s.ScrapeSeason(context.Background(), 1948)
	require.NoError(t, err)
	assert.Equal(t, "/leagues/BAA_1948_games.html", requestedPath)
}

func TestFetchRetriesOnThrottle(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(teamsHTML))
	}))
	defer server.Close()

	sink := &captureSink{}
	s := New(server.URL, "test-agent", 0, sink)
	s.policy.Delay = 0
	s.policy.MaxDelay = 0

	count, err := s.ScrapeTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, count)
}
