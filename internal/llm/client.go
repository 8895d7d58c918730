package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/cache/redis"
	"github.com/nba-insights/backend/internal/metrics"
	"github.com/nba-insights/backend/pkg/circuitbreaker"
	"github.com/nba-insights/backend/pkg/logger"
	"github.com/nba-insights/backend/pkg/retry"
	"github.com/nba-insights/backend/pkg/utils"
)

// Client wraps the OpenAI API as three capabilities: text embedding,
// analysis generation, and intent classification. Calls go through a
// circuit breaker and a bounded retry policy. An optional redis cache
// avoids re-embedding identical text (embeddings are deterministic for
// identical input).
type Client struct {
	client         *openai.Client
	model          string
	embeddingModel string
	temperature    float32
	maxTokens      int
	cache          *redis.Cache
	cb             *circuitbreaker.CircuitBreaker
	policy         retry.Policy
}

type CompletionRequest struct {
	Prompt      string
	Temperature float32
	MaxTokens   int
}

func NewClient(apiKey, model, embeddingModel string, temperature float32, maxTokens int, cache *redis.Cache) *Client {
	cb := circuitbreaker.New("llm", circuitbreaker.Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		Logger:           logger.GetLogger(),
	})

	policy := retry.Policy{
		MaxAttempts: 3,
		Delay:       500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Multiplier:  2.0,
		Logger:      logger.GetLogger(),
	}

	logger.Info("LLM client initialized",
		zap.String("model", model),
		zap.String("embedding_model", embeddingModel),
	)

	return &Client{
		client:         openai.NewClient(apiKey),
		model:          model,
		embeddingModel: embeddingModel,
		temperature:    temperature,
		maxTokens:      maxTokens,
		cache:          cache,
		cb:             cb,
		policy:         policy,
	}
}

func (c *Client) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	var content string
	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.policy, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model: c.model,
					Messages: []openai.ChatCompletionMessage{
						{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
					},
					Temperature: temperature,
					MaxTokens:   maxTokens,
				},
			)
			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			content = resp.Choices[0].Message.Content
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return content, nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	key := utils.HashString(text)
	if c.cache != nil {
		if embedding, ok, err := c.cache.GetEmbedding(ctx, key); err == nil && ok {
			metrics.EmbeddingCacheHits.Inc()
			return embedding, nil
		}
		metrics.EmbeddingCacheMisses.Inc()
	}

	embeddings, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetEmbedding(ctx, key, embeddings[0], 24*time.Hour); err != nil {
			logger.Warn("Failed to cache embedding", zap.Error(err))
		}
	}
	return embeddings[0], nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	const batchSize = 100
	embeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := c.embed(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}

	logger.Debug("Batch embeddings generated", zap.Int("count", len(embeddings)))
	return embeddings, nil
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var embeddings [][]float32
	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.policy, func() error {
			resp, err := c.client.CreateEmbeddings(
				ctx,
				openai.EmbeddingRequest{
					Input: texts,
					Model: openai.EmbeddingModel(c.embeddingModel),
				},
			)
			if err != nil {
				return fmt.Errorf("failed to generate embeddings: %w", err)
			}

			embeddings = make([][]float32, len(resp.Data))
			for i, data := range resp.Data {
				embedding := make([]float32, len(data.Embedding))
				copy(embedding, data.Embedding)
				embeddings[i] = embedding
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, expected %d", len(embeddings), len(texts))
	}
	return embeddings, nil
}

// GenerateAnalysis answers a basketball question from retrieved context.
func (c *Client) GenerateAnalysis(ctx context.Context, query, contextText string) (string, error) {
	prompt := fmt.Sprintf(`You are an expert NBA analyst with access to comprehensive basketball statistics data.
Use the provided context to answer the user's question about NBA statistics, players, teams, games, or coaches.

Context Data:
%s

User Question: %s

Instructions:
1. Provide accurate, data-driven analysis based on the context
2. If specific data is not available in the context, mention this limitation
3. Use statistics and numbers to support your analysis
4. Be specific about time periods, teams, and players when relevant
5. If comparing teams or players, provide concrete numbers
6. Keep responses informative but concise

Analysis:`, contextText, query)

	content, err := c.Complete(ctx, CompletionRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("failed to generate analysis: %w", err)
	}

	logger.Info("Analysis generated",
		zap.String("query", query),
		zap.Int("response_length", len(content)),
	)
	return content, nil
}

// ClassifyIntent asks the model for a JSON interpretation of a team
// wins query. The raw text is returned; parsing is the interpreter's
// concern.
func (c *Client) ClassifyIntent(ctx context.Context, query string) (string, error) {
	prompt := fmt.Sprintf(`Analyze this NBA team wins query and return JSON with:
- team_names (array of strings)
- seasons (array of years)
- comparison_type ("standalone", "team_comparison", "league_average")
- visualization_type ("bar", "line", "pie") judge based on the query which visualization is most appropriate, unless specified in the query.

Query: %s

Examples:
1. "Lakers wins in 2020" -> {"team_names": ["Los Angeles Lakers"], "seasons": [2020], "comparison_type": "standalone"}
2. "Compare Celtics and Warriors 2015-2023" -> {"team_names": ["Boston Celtics", "Golden State Warriors"], "seasons": [2015, 2023], "comparison_type": "team_comparison"}

Convert all team names to full names as used in the API, e.g. "Los Angeles Lakers" instead of "Lakers".

Return ONLY valid JSON in the following format:
{
  "team_names": [...],
  "seasons": [...],
  "comparison_type": "...",
  "visualization_type": "..."
}`, query)

	return c.Complete(ctx, CompletionRequest{Prompt: prompt, MaxTokens: 300})
}
