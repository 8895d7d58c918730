package intent

import "strings"

// fullTeamNames is the controlled vocabulary of canonical team names as
// the numeric stats source indexes them.
var fullTeamNames = []string{
	"Atlanta Hawks",
	"Boston Celtics",
	"Brooklyn Nets",
	"Charlotte Hornets",
	"Chicago Bulls",
	"Cleveland Cavaliers",
	"Dallas Mavericks",
	"Denver Nuggets",
	"Detroit Pistons",
	"Golden State Warriors",
	"Houston Rockets",
	"Indiana Pacers",
	"LA Clippers",
	"Los Angeles Lakers",
	"Memphis Grizzlies",
	"Miami Heat",
	"Milwaukee Bucks",
	"Minnesota Timberwolves",
	"New Orleans Pelicans",
	"New York Knicks",
	"Oklahoma City Thunder",
	"Orlando Magic",
	"Philadelphia 76ers",
	"Phoenix Suns",
	"Portland Trail Blazers",
	"Sacramento Kings",
	"San Antonio Spurs",
	"Toronto Raptors",
	"Utah Jazz",
	"Washington Wizards",
}

// CanonicalTeamName maps a nickname or partial name ("Lakers", "the
// warriors") to the canonical full name. Unrecognized names are
// returned unchanged so downstream lookup can still attempt a match.
func CanonicalTeamName(name string) string {
	needle := strings.ToLower(strings.TrimSpace(name))
	needle = strings.TrimPrefix(needle, "the ")
	if needle == "" {
		return name
	}

	for _, full := range fullTeamNames {
		lower := strings.ToLower(full)
		if lower == needle || strings.Contains(lower, needle) {
			return full
		}
	}
	return name
}
