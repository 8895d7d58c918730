package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/nba-insights/backend/internal/rag"
	"github.com/nba-insights/backend/internal/storage/models"
	"github.com/nba-insights/backend/pkg/logger"
)

type WebSocketHandler struct {
	agent *rag.Agent
}

func NewWebSocketHandler(agent *rag.Agent) *WebSocketHandler {
	return &WebSocketHandler{agent: agent}
}

// HandleConnection serves one client: each "query" message runs a full
// analysis, streamed back word by word followed by a completion frame
// with the sources.
func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type    string `json:"type"`
			Content string `json:"content"`
			TopK    int    `json:"top_k"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "query" || msg.Content == "" {
			continue
		}

		logger.Info("Processing WebSocket query", zap.String("query", msg.Content))

		if err := h.streamAnalysis(c, msg.Content, msg.TopK); err != nil {
			logger.Error("Failed to stream analysis", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) streamAnalysis(c *websocket.Conn, query string, topK int) error {
	h.sendChunk(c, "status", "Analyzing...")

	result, err := h.agent.Analyze(context.Background(), query, topK)
	if err != nil {
		return err
	}

	words := splitIntoWords(result.Analysis)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 {
			chunk += " "
		}
		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return h.sendComplete(c, result)
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, result *models.AnalysisResult) error {
	return c.WriteJSON(map[string]interface{}{
		"type":       "complete",
		"message_id": result.ID,
		"sources":    result.Sources,
		"latency_ms": result.LatencyMS,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
