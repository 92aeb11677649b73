package gemini

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
)

type fakeResponse struct {
	resp *genai.EmbedContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResponse
	calls   int
	configs []*genai.EmbedContentConfig
	texts   []string
}

func (f *fakeModels) enqueue(resp *genai.EmbedContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) EmbedContent(_ context.Context, _ string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.configs = append(f.configs, config)
	for _, content := range contents {
		for _, part := range content.Parts {
			f.texts = append(f.texts, part.Text)
		}
	}
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next.resp, next.err
}

func vectorResponse(values ...float32) *genai.EmbedContentResponse {
	return &genai.EmbedContentResponse{
		Embeddings: []*genai.ContentEmbedding{{Values: values}},
	}
}

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	original := sleep
	sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	t.Cleanup(func() { sleep = original })
	return &waits
}

func TestEmbedNormalizesAndRequestsDimension(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(vectorResponse(3, 4), nil)

	e := newEmbedder(models, Config{Dimension: 2}, zap.NewNop())

	vec, err := e.Embed(context.Background(), "  go developer ")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if math.Abs(embedding.Norm(vec)-1) > 1e-6 {
		t.Fatalf("expected unit vector, got norm %f", embedding.Norm(vec))
	}
	if models.texts[0] != "go developer" {
		t.Fatalf("expected trimmed text, got %q", models.texts[0])
	}
	cfg := models.configs[0]
	if cfg == nil || cfg.OutputDimensionality == nil || *cfg.OutputDimensionality != 2 {
		t.Fatalf("expected output dimensionality 2, got %+v", cfg)
	}
	if e.Model() != defaultModel {
		t.Fatalf("expected default model, got %q", e.Model())
	}
}

func TestEmbedRetriesOnTemporaryError(t *testing.T) {
	waits := stubSleep(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(vectorResponse(1, 0), nil)

	e := newEmbedder(models, Config{Dimension: 2, MaxRetries: 2}, zap.NewNop())

	if _, err := e.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
	if len(*waits) != 1 {
		t.Fatalf("expected a single backoff wait, got %v", *waits)
	}
}

func TestEmbedStopsAfterRetriesExhausted(t *testing.T) {
	stubSleep(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	e := newEmbedder(models, Config{MaxRetries: 2}, zap.NewNop())

	_, err := e.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if models.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls)
	}
}

func TestEmbedHonoursShortQuotaDelay(t *testing.T) {
	waits := stubSleep(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry in 2s",
	})
	models.enqueue(vectorResponse(0, 1), nil)

	e := newEmbedder(models, Config{MaxRetries: 3}, zap.NewNop())

	if _, err := e.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(*waits) != 1 || (*waits)[0] != 2*time.Second {
		t.Fatalf("expected requested 2s wait, got %v", *waits)
	}
}

func TestEmbedDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	e := newEmbedder(models, Config{MaxRetries: 3}, zap.NewNop())

	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if models.calls != 1 {
		t.Fatalf("expected single call, got %d", models.calls)
	}
}

func TestEmbedRejectsEmptyInputAndResponse(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(&genai.EmbedContentResponse{}, nil)

	e := newEmbedder(models, Config{}, zap.NewNop())

	if _, err := e.Embed(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
	if models.calls != 0 {
		t.Fatalf("empty text must not reach the api")
	}

	if _, err := e.Embed(context.Background(), "text"); !errors.Is(err, embedding.ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}
