package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/logger"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/utils"
)

const (
	// Provider is the name used in logs and configuration.
	Provider = "openai"

	defaultModel      = goopenai.SmallEmbedding3
	defaultMaxRetries = 3
	retryBaseDelay    = 2 * time.Second
	requestTimeout    = 30 * time.Second
)

var sleep = utils.WaitFor

type embeddingCreator interface {
	CreateEmbeddings(ctx context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error)
}

// Config describes the OpenAI embedding model.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimension  int
	MaxRetries int
}

// Embedder produces embeddings through the OpenAI API or a compatible server.
type Embedder struct {
	client     embeddingCreator
	model      goopenai.EmbeddingModel
	dimension  int
	maxRetries int
	logger     *zap.Logger
}

// New creates an Embedder. BaseURL may point at any OpenAI-compatible
// embeddings endpoint.
func New(cfg Config, log *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	clientCfg := goopenai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = base
	}

	return newEmbedder(goopenai.NewClientWithConfig(clientCfg), cfg, log), nil
}

func newEmbedder(client embeddingCreator, cfg Config, log *zap.Logger) *Embedder {
	model := goopenai.EmbeddingModel(strings.TrimSpace(cfg.Model))
	if model == "" {
		model = defaultModel
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = embedding.DefaultDimension
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	return &Embedder{
		client:     client,
		model:      model,
		dimension:  dimension,
		maxRetries: retries,
		logger:     logger.WithEmbeddingFields(log, Provider, string(model)),
	}
}

// Embed returns the unit-length embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := utils.Backoff(retryBaseDelay, attempt)
			e.logger.Debug("retrying openai embedding",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		vec, err := e.create(ctx, text)
		if err == nil {
			return embedding.Normalize(vec)
		}

		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return nil, fmt.Errorf("openai create embeddings: %w", lastErr)
}

func (e *Embedder) create(ctx context.Context, text string) ([]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(reqCtx, goopenai.EmbeddingRequestStrings{
		Input:      []string{text},
		Model:      e.model,
		Dimensions: e.dimension,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, embedding.ErrEmptyResponse
	}

	e.logger.Debug("openai embedding created",
		zap.Int("dimension", len(resp.Data[0].Embedding)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
	)
	return resp.Data[0].Embedding, nil
}

// Dimension returns the requested output dimensionality.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Model returns the configured model name.
func (e *Embedder) Model() string {
	return string(e.model)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, embedding.ErrEmptyResponse) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
