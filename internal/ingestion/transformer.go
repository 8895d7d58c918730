// Package ingestion converts raw basketball records into normalized
// text documents for the semantic index. Every transformer is a pure
// function: missing fields render as "Unknown" rather than failing, and
// identical input always yields an identical document.
package ingestion

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nba-insights/backend/internal/storage/models"
)

const unknown = "Unknown"

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}

func TransformTeam(team models.TeamRecord) *models.Document {
	founded := unknown
	if team.FoundedYear != nil {
		founded = fmt.Sprintf("%d", *team.FoundedYear)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Team: %s\n", orUnknown(team.Name))
	fmt.Fprintf(&b, "City: %s\n", orUnknown(team.City))
	fmt.Fprintf(&b, "Founded: %s\n", founded)
	fmt.Fprintf(&b, "League: %s\n", orUnknown(team.League))
	fmt.Fprintf(&b, "Total Games: %s\n", orUnknown(team.Games))
	fmt.Fprintf(&b, "Total Wins: %s\n", orUnknown(team.Wins))
	fmt.Fprintf(&b, "Total Losses: %s\n", orUnknown(team.Losses))
	fmt.Fprintf(&b, "Win Percentage: %s\n", orUnknown(team.WinLossPct))
	fmt.Fprintf(&b, "Playoff Appearances: %s\n", orUnknown(team.YearsPlayoffs))
	fmt.Fprintf(&b, "Division Championships: %s\n", orUnknown(team.YearsDivChamps))
	fmt.Fprintf(&b, "Conference Championships: %s\n", orUnknown(team.YearsConfChamps))
	fmt.Fprintf(&b, "League Championships: %s\n", orUnknown(team.YearsLeagueChamps))
	fmt.Fprintf(&b, "Years Active: %s - %s", orUnknown(team.YearMin), orUnknown(team.YearMax))

	abbr := team.Abbreviation
	if abbr == "" {
		abbr = "unknown"
	}

	return &models.Document{
		ID:      "team_" + abbr,
		Content: b.String(),
		Metadata: map[string]any{
			"type":         "team",
			"team_name":    team.Name,
			"abbreviation": team.Abbreviation,
			"founded_year": team.FoundedYear,
		},
	}
}

func TransformPlayer(player models.PlayerRecord) *models.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "Player: %s %s\n", player.FirstName, player.LastName)
	fmt.Fprintf(&b, "Birth Date: %s", orUnknown(player.BirthDate))

	writeBio(&b, player.Bio)
	writeStatTables(&b, player.Stats, 3)

	return &models.Document{
		ID:      "player_" + orUnknown(player.ID),
		Content: b.String(),
		Metadata: map[string]any{
			"type":       "player",
			"first_name": player.FirstName,
			"last_name":  player.LastName,
			"birth_date": player.BirthDate,
		},
	}
}

// TransformSeason aggregates a season's games into per-team win/loss
// and scoring tallies and renders the top 10 teams by win count. Ties
// are broken by the order teams first appear in the input.
func TransformSeason(season int, games []models.GameRecord) *models.Document {
	type tally struct {
		wins, losses, pointsFor, pointsAgainst int
	}

	stats := make(map[string]*tally)
	var order []string
	league := unknown
	completed := 0

	track := func(name string) *tally {
		t, ok := stats[name]
		if !ok {
			t = &tally{}
			stats[name] = t
			order = append(order, name)
		}
		return t
	}

	for i, game := range games {
		if i == 0 && game.League != "" {
			league = game.League
		}
		if game.HomeScore == nil || game.AwayScore == nil {
			continue
		}
		completed++

		home := track(game.HomeTeam)
		away := track(game.AwayTeam)
		homeScore, awayScore := *game.HomeScore, *game.AwayScore

		if homeScore > awayScore {
			home.wins++
			away.losses++
		} else {
			away.wins++
			home.losses++
		}
		home.pointsFor += homeScore
		home.pointsAgainst += awayScore
		away.pointsFor += awayScore
		away.pointsAgainst += homeScore
	}

	sort.SliceStable(order, func(a, b int) bool {
		return stats[order[a]].wins > stats[order[b]].wins
	})

	var b strings.Builder
	fmt.Fprintf(&b, "NBA Season %d Statistics:\n", season)
	fmt.Fprintf(&b, "Total Games: %d\n", len(games))
	fmt.Fprintf(&b, "Completed Games: %d\n", completed)
	fmt.Fprintf(&b, "League: %s\n\n", league)
	b.WriteString("Team Performance Summary:")

	top := order
	if len(top) > 10 {
		top = top[:10]
	}
	for _, name := range top {
		t := stats[name]
		winPct := 0.0
		if t.wins+t.losses > 0 {
			winPct = float64(t.wins) / float64(t.wins+t.losses)
		}
		fmt.Fprintf(&b, "\n%s: %dW-%dL (%.3f), Points For: %d, Points Against: %d",
			name, t.wins, t.losses, winPct, t.pointsFor, t.pointsAgainst)
	}

	return &models.Document{
		ID:      fmt.Sprintf("season_%d", season),
		Content: b.String(),
		Metadata: map[string]any{
			"type":            "season",
			"season":          season,
			"total_games":     len(games),
			"completed_games": completed,
		},
	}
}

func TransformCoach(coach models.CoachRecord) *models.Document {
	var b strings.Builder
	fmt.Fprintf(&b, "Coach: %s", orUnknown(coach.FullName))

	writeBio(&b, coach.Bio)
	writeStatTables(&b, coach.Stats, 5)

	return &models.Document{
		ID:      "coach_" + orUnknown(coach.ID),
		Content: b.String(),
		Metadata: map[string]any{
			"type":      "coach",
			"full_name": coach.FullName,
		},
	}
}

// writeBio renders key/value bio lines in sorted key order so the
// output is stable regardless of map construction order.
func writeBio(b *strings.Builder, bio map[string]string) {
	keys := make([]string, 0, len(bio))
	for k := range bio {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "\n%s: %s", k, bio[k])
	}
}

// writeStatTables renders each table's headers and its first maxRows
// data rows. Empty cells render as N/A; all-empty rows are skipped.
func writeStatTables(b *strings.Builder, tables map[string]models.StatTable, maxRows int) {
	ids := make([]string, 0, len(tables))
	for id := range tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		table := tables[id]
		if len(table.Headers) == 0 && len(table.Rows) == 0 {
			continue
		}

		title := titleCase(strings.ReplaceAll(id, "_", " "))
		fmt.Fprintf(b, "\n\n%s Statistics:", title)
		if len(table.Headers) > 0 {
			fmt.Fprintf(b, "\nHeaders: %s", strings.Join(table.Headers, ", "))
		}

		written := 0
		for _, row := range table.Rows {
			if written == maxRows {
				break
			}
			if !anyCell(row) {
				continue
			}
			cells := make([]string, len(row))
			for i, cell := range row {
				if cell == "" {
					cells[i] = "N/A"
				} else {
					cells[i] = cell
				}
			}
			written++
			fmt.Fprintf(b, "\nRow %d: %s", written, strings.Join(cells, ", "))
		}
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func anyCell(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return true
		}
	}
	return false
}
