package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/logger"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/utils"
)

const (
	// Provider is the name used in logs and configuration.
	Provider = "gemini"

	defaultModel      = "text-embedding-004"
	defaultMaxRetries = 3
	retryBaseDelay    = time.Second
	// maxQuotaDelay is the longest server-requested wait we honour before
	// giving up instead of retrying.
	maxQuotaDelay = 30 * time.Second
	taskType      = "SEMANTIC_SIMILARITY"
)

var (
	sleep = utils.WaitFor

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9.]+) ?(s|sec|secs|second|seconds)\b`)
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder produces embeddings through the Gemini API.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimension  int
	maxRetries int
	logger     *zap.Logger
}

// Config describes the Gemini embedding model.
type Config struct {
	APIKey     string
	Model      string
	Dimension  int
	MaxRetries int
}

// New creates an Embedder configured for the Gemini API backend.
func New(ctx context.Context, cfg Config, log *zap.Logger) (*Embedder, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, cfg, log), nil
}

func newEmbedder(models contentEmbedder, cfg Config, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(cfg.Model)
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
		models:     models,
		model:      model,
		dimension:  dimension,
		maxRetries: retries,
		logger:     logger.WithEmbeddingFields(log, Provider, model),
	}
}

// Embed returns the unit-length embedding of text. Temporary API failures
// are retried with backoff up to the configured number of attempts.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text must not be empty")
	}

	dims := int32(e.dimension)
	cfg := &genai.EmbedContentConfig{
		TaskType:             taskType,
		OutputDimensionality: &dims,
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			delay := utils.Backoff(retryBaseDelay, attempt)
			if requested, ok := requestedDelay(lastErr); ok {
				delay = requested
			}
			e.logger.Debug("retrying gemini embedding",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
		if err != nil {
			lastErr = err
			if !retryable(err) {
				break
			}
			continue
		}

		vec, err := firstVector(resp)
		if err != nil {
			return nil, err
		}

		e.logger.Debug("gemini embedding created",
			zap.Int("text_length", utf8.RuneCountInString(text)),
			zap.Int("dimension", len(vec)),
		)
		return embedding.Normalize(vec)
	}

	return nil, fmt.Errorf("gemini embed content: %w", lastErr)
}

// Dimension returns the requested output dimensionality.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// Model returns the configured model name.
func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func firstVector(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil {
		return nil, embedding.ErrEmptyResponse
	}
	for _, emb := range resp.Embeddings {
		if emb != nil && len(emb.Values) > 0 {
			return emb.Values, nil
		}
	}
	return nil, embedding.ErrEmptyResponse
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		delay, ok := requestedDelay(err)
		return !ok || delay <= maxQuotaDelay
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// requestedDelay extracts a "retry after N seconds" hint from quota errors.
func requestedDelay(err error) (time.Duration, bool) {
	var apiErr genai.APIError
	if err == nil || !errors.As(err, &apiErr) {
		return 0, false
	}
	match := retryAfterPattern.FindStringSubmatch(apiErr.Message)
	if match == nil {
		return 0, false
	}
	seconds, parseErr := strconv.ParseFloat(match[1], 64)
	if parseErr != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
