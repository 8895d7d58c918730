package models

import "time"

// Document is a normalized text unit indexed for semantic search. The
// ID is derived from the source record's natural key so re-processing
// the same record always yields the same document.
type Document struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// StatTable is a scraped statistics table kept as-is: a header row plus
// data rows whose cells may be empty.
type StatTable struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// TeamRecord is a franchise row. Numeric-looking fields stay as text
// because the source renders them as text and any of them may be
// absent.
type TeamRecord struct {
	Name              string
	Abbreviation      string
	City              string
	League            string
	FoundedYear       *int
	YearMin           string
	YearMax           string
	Games             string
	Wins              string
	Losses            string
	WinLossPct        string
	YearsPlayoffs     string
	YearsDivChamps    string
	YearsConfChamps   string
	YearsLeagueChamps string
}

type PlayerRecord struct {
	ID        string
	FirstName string
	LastName  string
	BirthDate string
	Bio       map[string]string
	Stats     map[string]StatTable
}

type GameRecord struct {
	Date      string
	HomeTeam  string
	AwayTeam  string
	HomeScore *int
	AwayScore *int
	Season    int
	League    string
}

type CoachRecord struct {
	ID       string
	FullName string
	URL      string
	Bio      map[string]string
	Stats    map[string]StatTable
}

type IntentMode string

const (
	ModeStandalone    IntentMode = "standalone"
	ModeComparison    IntentMode = "team_comparison"
	ModeLeagueAverage IntentMode = "league_average"
)

type ChartShape string

const (
	ShapeBar  ChartShape = "bar"
	ShapeLine ChartShape = "line"
	ShapePie  ChartShape = "pie"
)

// TimeRange is an inclusive span of seasons, Start <= End.
type TimeRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// StructuredIntent is the interpreted form of a free-text question.
// Entities is non-empty unless Mode is ModeLeagueAverage.
type StructuredIntent struct {
	Entities  []string   `json:"entities"`
	TimeRange *TimeRange `json:"time_range,omitempty"`
	Mode      IntentMode `json:"mode"`
	Shape     ChartShape `json:"visualization_type"`
}

// EvidenceMatch pairs a retrieved document with its similarity score.
type EvidenceMatch struct {
	Document *Document
	Score    float32
}

type SourceRef struct {
	Type           string         `json:"type"`
	ID             string         `json:"id"`
	RelevanceScore float64        `json:"relevance_score"`
	Metadata       map[string]any `json:"metadata"`
}

type AnalysisResult struct {
	ID        string      `json:"id"`
	Query     string      `json:"query"`
	Analysis  string      `json:"analysis"`
	Sources   []SourceRef `json:"sources"`
	Timestamp time.Time   `json:"timestamp"`
	LatencyMS int         `json:"latency_ms"`
}

// WinsResult aggregates regular-season win counts per team and season.
// Unresolved lists requested team names that could not be matched to an
// id; PartialTeams lists teams whose counts were cut short by an
// upstream failure.
type WinsResult struct {
	Shape         ChartShape             `json:"visualization_type"`
	PerEntity     map[string]map[int]int `json:"data"`
	LeagueAverage map[int]float64        `json:"league_averages"`
	Unresolved    []string               `json:"unresolved,omitempty"`
	PartialTeams  []string               `json:"partial,omitempty"`
}

type QueryRecord struct {
	ID          string    `json:"id"`
	QueryText   string    `json:"query"`
	Analysis    string    `json:"analysis"`
	SourceCount int       `json:"source_count"`
	LatencyMS   int       `json:"latency_ms"`
	CreatedAt   time.Time `json:"created_at"`
}
