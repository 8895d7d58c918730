// Package intent turns free-text questions into structured intents by
// delegating extraction to a language-model classifier and defensively
// parsing whatever comes back.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/metrics"
	"github.com/nba-insights/backend/internal/storage/models"
	"github.com/nba-insights/backend/pkg/logger"
)

// Classifier is the external capability that maps a natural-language
// query to JSON-shaped text. The output may be malformed; Interpret
// handles that. A transport-level error is propagated.
type Classifier interface {
	ClassifyIntent(ctx context.Context, query string) (string, error)
}

type Interpreter struct {
	classifier Classifier
}

func NewInterpreter(classifier Classifier) *Interpreter {
	return &Interpreter{classifier: classifier}
}

// wireIntent is the loose JSON shape the classifier is prompted to
// return.
type wireIntent struct {
	TeamNames         []string `json:"team_names"`
	Seasons           []int    `json:"seasons"`
	ComparisonType    string   `json:"comparison_type"`
	VisualizationType string   `json:"visualization_type"`
}

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*\\})\\s*```")

// DefaultIntent is the documented degraded-mode fallback used when the
// classifier returns unusable output. It is not a success signal.
func DefaultIntent() *models.StructuredIntent {
	return &models.StructuredIntent{
		Entities:  []string{"Los Angeles Lakers"},
		TimeRange: &models.TimeRange{Start: 2023, End: 2023},
		Mode:      models.ModeStandalone,
		Shape:     models.ShapeBar,
	}
}

// Interpret classifies the query and normalizes the result. Malformed
// classifier output degrades to DefaultIntent; a classifier transport
// error is returned to the caller.
func (i *Interpreter) Interpret(ctx context.Context, query string) (*models.StructuredIntent, error) {
	raw, err := i.classifier.ClassifyIntent(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("intent classification failed: %w", err)
	}

	var wire wireIntent
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &wire); err != nil {
		logger.Warn("Malformed intent from classifier, falling back to default intent",
			zap.String("query", query),
			zap.Error(err),
		)
		metrics.IntentFallbacks.Inc()
		return DefaultIntent(), nil
	}

	intent := normalize(wire)
	if intent == nil {
		logger.Warn("Unusable intent from classifier, falling back to default intent",
			zap.String("query", query),
		)
		metrics.IntentFallbacks.Inc()
		return DefaultIntent(), nil
	}

	logger.Debug("Query interpreted",
		zap.Strings("entities", intent.Entities),
		zap.String("mode", string(intent.Mode)),
	)
	return intent, nil
}

// ExtractJSON strips a surrounding markdown code fence, if any.
func ExtractJSON(text string) string {
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(text)
}

func normalize(wire wireIntent) *models.StructuredIntent {
	mode := models.IntentMode(strings.ToLower(strings.TrimSpace(wire.ComparisonType)))
	switch mode {
	case models.ModeStandalone, models.ModeComparison, models.ModeLeagueAverage:
	default:
		mode = models.ModeStandalone
	}

	entities := make([]string, 0, len(wire.TeamNames))
	for _, name := range wire.TeamNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		entities = append(entities, CanonicalTeamName(name))
	}
	if len(entities) == 0 && mode != models.ModeLeagueAverage {
		return nil
	}

	if len(wire.Seasons) == 0 {
		return nil
	}
	start := wire.Seasons[0]
	end := wire.Seasons[len(wire.Seasons)-1]
	if start > end {
		start, end = end, start
	}

	shape := models.ChartShape(strings.ToLower(strings.TrimSpace(wire.VisualizationType)))
	switch shape {
	case models.ShapeBar, models.ShapeLine, models.ShapePie:
	default:
		shape = models.ShapeBar
	}

	return &models.StructuredIntent{
		Entities:  entities,
		TimeRange: &models.TimeRange{Start: start, End: end},
		Mode:      mode,
		Shape:     shape,
	}
}
