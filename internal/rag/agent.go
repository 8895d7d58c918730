package rag

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/ingestion"
	"github.com/nba-insights/backend/internal/intent"
	"github.com/nba-insights/backend/internal/metrics"
	"github.com/nba-insights/backend/internal/stats"
	"github.com/nba-insights/backend/internal/storage/models"
	"github.com/nba-insights/backend/internal/vector"
	"github.com/nba-insights/backend/pkg/logger"
)

// RecordSource yields the raw records that get transformed into indexed
// documents.
type RecordSource interface {
	Teams(ctx context.Context) ([]models.TeamRecord, error)
	Players(ctx context.Context) ([]models.PlayerRecord, error)
	GamesBySeason(ctx context.Context) (map[int][]models.GameRecord, error)
	Coaches(ctx context.Context) ([]models.CoachRecord, error)
}

// Generator produces the written analysis from a query and its
// retrieved context.
type Generator interface {
	GenerateAnalysis(ctx context.Context, query, contextText string) (string, error)
}

// HistorySink records completed analyses. A nil sink disables history.
type HistorySink interface {
	InsertQueryRecord(record *models.QueryRecord) error
}

// Agent ties retrieval, generation, and the structured win-count
// pipeline together. The index is built lazily on first use and can be
// rebuilt on demand.
type Agent struct {
	store       *vector.Store
	source      RecordSource
	generator   Generator
	interpreter *intent.Interpreter
	agg         *stats.Aggregator
	history     HistorySink
	defaultTopK int

	mu          sync.Mutex
	initialized bool
}

func NewAgent(store *vector.Store, source RecordSource, generator Generator, interpreter *intent.Interpreter, agg *stats.Aggregator, history HistorySink, defaultTopK int) *Agent {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &Agent{
		store:       store,
		source:      source,
		generator:   generator,
		interpreter: interpreter,
		agg:         agg,
		history:     history,
		defaultTopK: defaultTopK,
	}
}

// BuildIndex transforms every stored record into documents and loads
// them into the vector store. Repeat calls are no-ops unless force is
// set, in which case the existing index is discarded and rebuilt from
// scratch.
func (a *Agent) BuildIndex(ctx context.Context, force bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.initialized && !force {
		return nil
	}
	if force {
		a.store.Reset()
		a.initialized = false
	}

	start := time.Now()

	teams, err := a.source.Teams(ctx)
	if err != nil {
		return fmt.Errorf("failed to load teams: %w", err)
	}
	players, err := a.source.Players(ctx)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}
	seasons, err := a.source.GamesBySeason(ctx)
	if err != nil {
		return fmt.Errorf("failed to load games: %w", err)
	}
	coaches, err := a.source.Coaches(ctx)
	if err != nil {
		return fmt.Errorf("failed to load coaches: %w", err)
	}

	var docs []*models.Document
	for _, team := range teams {
		docs = append(docs, ingestion.TransformTeam(team))
	}
	for _, player := range players {
		docs = append(docs, ingestion.TransformPlayer(player))
	}
	for season, games := range seasons {
		docs = append(docs, ingestion.TransformSeason(season, games))
	}
	for _, coach := range coaches {
		docs = append(docs, ingestion.TransformCoach(coach))
	}

	if err := a.store.AddDocuments(ctx, docs); err != nil {
		return fmt.Errorf("failed to index documents: %w", err)
	}

	a.initialized = true
	metrics.IndexBuilds.Inc()
	metrics.IndexDocuments.Set(float64(a.store.Len()))

	logger.Info("Index built",
		zap.Int("documents", len(docs)),
		zap.Int("teams", len(teams)),
		zap.Int("players", len(players)),
		zap.Int("seasons", len(seasons)),
		zap.Int("coaches", len(coaches)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Analyze runs the full retrieval-augmented pipeline: search the index,
// assemble a context window, and generate a written analysis. A
// generation failure still returns a result; the failure is reported in
// the analysis text so the caller always gets the sources that were
// found.
func (a *Agent) Analyze(ctx context.Context, query string, k int) (*models.AnalysisResult, error) {
	if err := a.BuildIndex(ctx, false); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = a.defaultTopK
	}

	start := time.Now()

	matches, err := a.store.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	var b strings.Builder
	sources := make([]models.SourceRef, 0, len(matches))
	for i, m := range matches {
		docType, _ := m.Document.Metadata["type"].(string)
		fmt.Fprintf(&b, "Document %d (%s):\n%s\n\n", i+1, docType, m.Document.Content)
		sources = append(sources, models.SourceRef{
			Type:           docType,
			ID:             m.Document.ID,
			RelevanceScore: float64(m.Score),
			Metadata:       m.Document.Metadata,
		})
	}

	analysis, err := a.generator.GenerateAnalysis(ctx, query, b.String())
	if err != nil {
		logger.Error("Analysis generation failed", zap.Error(err), zap.String("query", query))
		analysis = fmt.Sprintf("I apologize, but I encountered an error while generating the analysis: %v", err)
	}

	result := &models.AnalysisResult{
		ID:        uuid.New().String(),
		Query:     query,
		Analysis:  analysis,
		Sources:   sources,
		Timestamp: time.Now().UTC(),
		LatencyMS: int(time.Since(start).Milliseconds()),
	}

	if a.history != nil {
		record := &models.QueryRecord{
			ID:          result.ID,
			QueryText:   query,
			Analysis:    analysis,
			SourceCount: len(sources),
			LatencyMS:   result.LatencyMS,
			CreatedAt:   result.Timestamp,
		}
		if err := a.history.InsertQueryRecord(record); err != nil {
			logger.Warn("Failed to record query history", zap.Error(err))
		}
	}

	return result, nil
}

// WinsAnalysis interprets the query into a structured intent and
// resolves regular-season win counts for every requested team and
// season. Teams that cannot be resolved to an id are reported in
// Unresolved rather than failing the whole request.
func (a *Agent) WinsAnalysis(ctx context.Context, query string) (*models.WinsResult, error) {
	parsed, err := a.interpreter.Interpret(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &models.WinsResult{
		Shape:         parsed.Shape,
		PerEntity:     make(map[string]map[int]int),
		LeagueAverage: make(map[int]float64),
	}

	var seasonRange models.TimeRange
	if parsed.TimeRange != nil {
		seasonRange = *parsed.TimeRange
	} else {
		def := intent.DefaultIntent()
		seasonRange = *def.TimeRange
	}

	partial := make(map[string]bool)
	for _, name := range parsed.Entities {
		teamID, ok, err := a.agg.TeamIDForName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve team %q: %w", name, err)
		}
		if !ok {
			result.Unresolved = append(result.Unresolved, name)
			continue
		}

		seasonWins := make(map[int]int)
		for season := seasonRange.Start; season <= seasonRange.End; season++ {
			wins, isPartial, err := a.agg.WinsForTeamSeason(ctx, teamID, season)
			if err != nil {
				return nil, fmt.Errorf("failed to count wins for %s season %d: %w", name, season, err)
			}
			seasonWins[season] = wins
			if isPartial {
				partial[name] = true
			}
		}
		result.PerEntity[name] = seasonWins
	}

	for name := range partial {
		result.PartialTeams = append(result.PartialTeams, name)
	}
	sort.Strings(result.PartialTeams)

	if parsed.Mode == models.ModeLeagueAverage {
		for season := seasonRange.Start; season <= seasonRange.End; season++ {
			avg, err := a.agg.LeagueAverageWins(ctx, season)
			if err != nil {
				return nil, fmt.Errorf("failed to compute league average for season %d: %w", season, err)
			}
			result.LeagueAverage[season] = avg
		}
	}

	return result, nil
}
