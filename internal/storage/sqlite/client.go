package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/storage/models"
	"github.com/nba-insights/backend/pkg/logger"
)

// Client is the raw record store: teams, players, games, and coaches
// populated by the scraper and read back by the index builder, plus the
// analysis query history.
type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))
	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS teams (
		abbreviation TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		city TEXT,
		league TEXT,
		founded_year INTEGER,
		year_min TEXT,
		year_max TEXT,
		games TEXT,
		wins TEXT,
		losses TEXT,
		win_loss_pct TEXT,
		years_playoffs TEXT,
		years_div_champs TEXT,
		years_conf_champs TEXT,
		years_league_champs TEXT
	);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		birth_date TEXT,
		bio TEXT,
		stats TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_players_name ON players(last_name, first_name);

	CREATE TABLE IF NOT EXISTS games (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date TEXT NOT NULL,
		home_team TEXT NOT NULL,
		away_team TEXT NOT NULL,
		home_score INTEGER,
		away_score INTEGER,
		season INTEGER NOT NULL,
		league TEXT,
		UNIQUE(date, home_team, away_team)
	);
	CREATE INDEX IF NOT EXISTS idx_games_season ON games(season);

	CREATE TABLE IF NOT EXISTS coaches (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL,
		url TEXT,
		bio TEXT,
		stats TEXT
	);

	CREATE TABLE IF NOT EXISTS query_history (
		id TEXT PRIMARY KEY,
		query_text TEXT NOT NULL,
		analysis TEXT,
		source_count INTEGER,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_created ON query_history(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertTeam(team *models.TeamRecord) error {
	query := `
		INSERT INTO teams (abbreviation, name, city, league, founded_year, year_min, year_max,
			games, wins, losses, win_loss_pct, years_playoffs, years_div_champs,
			years_conf_champs, years_league_champs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(abbreviation) DO UPDATE SET
			name = excluded.name,
			city = excluded.city,
			league = excluded.league,
			founded_year = excluded.founded_year,
			year_min = excluded.year_min,
			year_max = excluded.year_max,
			games = excluded.games,
			wins = excluded.wins,
			losses = excluded.losses,
			win_loss_pct = excluded.win_loss_pct,
			years_playoffs = excluded.years_playoffs,
			years_div_champs = excluded.years_div_champs,
			years_conf_champs = excluded.years_conf_champs,
			years_league_champs = excluded.years_league_champs
	`

	var founded any
	if team.FoundedYear != nil {
		founded = *team.FoundedYear
	}

	_, err := c.db.Exec(query,
		team.Abbreviation, team.Name, team.City, team.League, founded,
		team.YearMin, team.YearMax, team.Games, team.Wins, team.Losses,
		team.WinLossPct, team.YearsPlayoffs, team.YearsDivChamps,
		team.YearsConfChamps, team.YearsLeagueChamps,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert team: %w", err)
	}
	return nil
}

func (c *Client) UpsertGame(game *models.GameRecord) error {
	query := `
		INSERT INTO games (date, home_team, away_team, home_score, away_score, season, league)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date, home_team, away_team) DO UPDATE SET
			home_score = excluded.home_score,
			away_score = excluded.away_score,
			season = excluded.season,
			league = excluded.league
	`

	var homeScore, awayScore any
	if game.HomeScore != nil {
		homeScore = *game.HomeScore
	}
	if game.AwayScore != nil {
		awayScore = *game.AwayScore
	}

	_, err := c.db.Exec(query, game.Date, game.HomeTeam, game.AwayTeam, homeScore, awayScore, game.Season, game.League)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}

func (c *Client) UpsertPlayer(player *models.PlayerRecord) error {
	bioJSON, _ := json.Marshal(player.Bio)
	statsJSON, _ := json.Marshal(player.Stats)

	query := `
		INSERT INTO players (id, first_name, last_name, birth_date, bio, stats)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			birth_date = excluded.birth_date,
			bio = excluded.bio,
			stats = excluded.stats
	`

	_, err := c.db.Exec(query, player.ID, player.FirstName, player.LastName, player.BirthDate, string(bioJSON), string(statsJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

func (c *Client) UpsertCoach(coach *models.CoachRecord) error {
	bioJSON, _ := json.Marshal(coach.Bio)
	statsJSON, _ := json.Marshal(coach.Stats)

	query := `
		INSERT INTO coaches (id, full_name, url, bio, stats)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			url = excluded.url,
			bio = excluded.bio,
			stats = excluded.stats
	`

	_, err := c.db.Exec(query, coach.ID, coach.FullName, coach.URL, string(bioJSON), string(statsJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert coach: %w", err)
	}
	return nil
}

func (c *Client) Teams(ctx context.Context) ([]models.TeamRecord, error) {
	query := `
		SELECT abbreviation, name, city, league, founded_year, year_min, year_max,
			games, wins, losses, win_loss_pct, years_playoffs, years_div_champs,
			years_conf_champs, years_league_champs
		FROM teams ORDER BY name
	`

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query teams: %w", err)
	}
	defer rows.Close()

	var teams []models.TeamRecord
	for rows.Next() {
		var t models.TeamRecord
		var founded sql.NullInt64
		err := rows.Scan(&t.Abbreviation, &t.Name, &t.City, &t.League, &founded,
			&t.YearMin, &t.YearMax, &t.Games, &t.Wins, &t.Losses, &t.WinLossPct,
			&t.YearsPlayoffs, &t.YearsDivChamps, &t.YearsConfChamps, &t.YearsLeagueChamps)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team row: %w", err)
		}
		if founded.Valid {
			year := int(founded.Int64)
			t.FoundedYear = &year
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (c *Client) Players(ctx context.Context) ([]models.PlayerRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, first_name, last_name, birth_date, bio, stats FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []models.PlayerRecord
	for rows.Next() {
		var p models.PlayerRecord
		var bioJSON, statsJSON string
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.BirthDate, &bioJSON, &statsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		json.Unmarshal([]byte(bioJSON), &p.Bio)
		json.Unmarshal([]byte(statsJSON), &p.Stats)
		players = append(players, p)
	}
	return players, rows.Err()
}

// GamesBySeason returns every stored game grouped by season.
func (c *Client) GamesBySeason(ctx context.Context) (map[int][]models.GameRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT date, home_team, away_team, home_score, away_score, season, league FROM games ORDER BY season, date`)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	seasons := make(map[int][]models.GameRecord)
	for rows.Next() {
		var g models.GameRecord
		var homeScore, awayScore sql.NullInt64
		if err := rows.Scan(&g.Date, &g.HomeTeam, &g.AwayTeam, &homeScore, &awayScore, &g.Season, &g.League); err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		if homeScore.Valid {
			score := int(homeScore.Int64)
			g.HomeScore = &score
		}
		if awayScore.Valid {
			score := int(awayScore.Int64)
			g.AwayScore = &score
		}
		seasons[g.Season] = append(seasons[g.Season], g)
	}
	return seasons, rows.Err()
}

func (c *Client) Coaches(ctx context.Context) ([]models.CoachRecord, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT id, full_name, url, bio, stats FROM coaches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query coaches: %w", err)
	}
	defer rows.Close()

	var coaches []models.CoachRecord
	for rows.Next() {
		var co models.CoachRecord
		var bioJSON, statsJSON string
		if err := rows.Scan(&co.ID, &co.FullName, &co.URL, &bioJSON, &statsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan coach row: %w", err)
		}
		json.Unmarshal([]byte(bioJSON), &co.Bio)
		json.Unmarshal([]byte(statsJSON), &co.Stats)
		coaches = append(coaches, co)
	}
	return coaches, rows.Err()
}

func (c *Client) InsertQueryRecord(record *models.QueryRecord) error {
	query := `INSERT INTO query_history (id, query_text, analysis, source_count, latency_ms, created_at) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := c.db.Exec(query, record.ID, record.QueryText, record.Analysis, record.SourceCount, record.LatencyMS, record.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	logger.Debug("Query recorded", zap.String("query_id", record.ID))
	return nil
}

func (c *Client) QueryHistory(limit int) ([]models.QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := c.db.Query(`
		SELECT id, query_text, analysis, source_count, latency_ms, created_at
		FROM query_history ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []models.QueryRecord
	for rows.Next() {
		var r models.QueryRecord
		var createdAt int64
		if err := rows.Scan(&r.ID, &r.QueryText, &r.Analysis, &r.SourceCount, &r.LatencyMS, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		r.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, r)
	}
	return records, rows.Err()
}
