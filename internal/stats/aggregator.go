package stats

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/nba-insights/backend/pkg/logger"
)

// GameSource abstracts the paginated stats endpoints so the aggregator
// can be tested against a fake.
type GameSource interface {
	Teams(ctx context.Context) ([]Team, error)
	GamesPage(ctx context.Context, season, teamID, pageNum int) ([]Game, error)
}

// Aggregator sums regular-season results from the external source. The
// team-name table is cached for the process lifetime: team ids are
// effectively static.
type Aggregator struct {
	source GameSource

	mu      sync.Mutex
	teamIDs map[string]int
}

func NewAggregator(source GameSource) *Aggregator {
	return &Aggregator{source: source}
}

// WinsForTeamSeason pages through a season's games for one team and
// counts its regular-season wins. On an upstream failure mid-stream the
// count accumulated so far is returned with partial set to true rather
// than failing the whole request. Context cancellation still aborts.
func (a *Aggregator) WinsForTeamSeason(ctx context.Context, teamID, season int) (wins int, partial bool, err error) {
	for page := 1; ; page++ {
		games, err := a.source.GamesPage(ctx, season, teamID, page)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return wins, true, err
			}
			logger.Warn("Games fetch failed mid-season, returning partial win count",
				zap.Int("team_id", teamID),
				zap.Int("season", season),
				zap.Int("page", page),
				zap.Int("wins_so_far", wins),
				zap.Error(err),
			)
			return wins, true, nil
		}

		for _, game := range games {
			if game.Postseason {
				continue
			}
			if game.HomeTeam.ID == teamID {
				if game.HomeTeamScore > game.VisitorTeamScore {
					wins++
				}
			} else if game.VisitorTeamScore > game.HomeTeamScore {
				wins++
			}
		}

		if len(games) < PageSize {
			break
		}
	}

	logger.Debug("Season wins computed",
		zap.Int("team_id", teamID),
		zap.Int("season", season),
		zap.Int("wins", wins),
	)
	return wins, false, nil
}

// LeagueAverageWins sums regular-season wins for every team in a season
// and divides by the number of distinct teams seen. Zero when the
// season has no games.
func (a *Aggregator) LeagueAverageWins(ctx context.Context, season int) (float64, error) {
	teamWins := make(map[int]int)

	for page := 1; ; page++ {
		games, err := a.source.GamesPage(ctx, season, 0, page)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return 0, err
			}
			logger.Warn("League games fetch failed mid-season, averaging partial tallies",
				zap.Int("season", season),
				zap.Int("page", page),
				zap.Error(err),
			)
			break
		}

		for _, game := range games {
			if game.Postseason {
				continue
			}
			homeWon := game.HomeTeamScore > game.VisitorTeamScore
			if homeWon {
				teamWins[game.HomeTeam.ID]++
				teamWins[game.VisitorTeam.ID] += 0
			} else {
				teamWins[game.VisitorTeam.ID]++
				teamWins[game.HomeTeam.ID] += 0
			}
		}

		if len(games) < PageSize {
			break
		}
	}

	if len(teamWins) == 0 {
		return 0, nil
	}

	total := 0
	for _, wins := range teamWins {
		total += wins
	}
	return float64(total) / float64(len(teamWins)), nil
}

// TeamIDForName resolves a team name to its source id with a
// case-insensitive substring match. The name table is fetched once and
// cached for the process lifetime.
func (a *Aggregator) TeamIDForName(ctx context.Context, name string) (int, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.teamIDs == nil {
		teams, err := a.source.Teams(ctx)
		if err != nil {
			return 0, false, err
		}
		a.teamIDs = make(map[string]int, len(teams))
		for _, team := range teams {
			a.teamIDs[team.FullName] = team.ID
		}
	}

	needle := strings.ToLower(name)
	for fullName, id := range a.teamIDs {
		if strings.Contains(strings.ToLower(fullName), needle) {
			return id, true, nil
		}
	}
	return 0, false, nil
}
