package openai

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/embedding"
)

type fakeCreator struct {
	responses []goopenai.EmbeddingResponse
	errs      []error
	requests  []goopenai.EmbeddingRequestStrings
}

func (f *fakeCreator) CreateEmbeddings(_ context.Context, conv goopenai.EmbeddingRequestConverter) (goopenai.EmbeddingResponse, error) {
	idx := len(f.requests)
	if req, ok := conv.(goopenai.EmbeddingRequestStrings); ok {
		f.requests = append(f.requests, req)
	}
	if idx >= len(f.errs) {
		return goopenai.EmbeddingResponse{}, errors.New("unexpected call")
	}
	return f.responses[idx], f.errs[idx]
}

func response(values ...float32) goopenai.EmbeddingResponse {
	return goopenai.EmbeddingResponse{Data: []goopenai.Embedding{{Embedding: values}}}
}

func noSleep(t *testing.T) {
	t.Helper()
	original := sleep
	sleep = func(context.Context, time.Duration) error { return nil }
	t.Cleanup(func() { sleep = original })
}

func TestEmbedSendsModelAndDimension(t *testing.T) {
	creator := &fakeCreator{
		responses: []goopenai.EmbeddingResponse{response(0, 2)},
		errs:      []error{nil},
	}
	e := newEmbedder(creator, Config{Dimension: 2}, zap.NewNop())

	vec, err := e.Embed(context.Background(), "python engineer")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(embedding.Norm(vec)-1) > 1e-6 {
		t.Fatalf("expected normalized vector, got %v", vec)
	}

	req := creator.requests[0]
	if req.Model != goopenai.SmallEmbedding3 || req.Dimensions != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if len(req.Input) != 1 || req.Input[0] != "python engineer" {
		t.Fatalf("unexpected input: %v", req.Input)
	}
}

func TestEmbedRetriesRateLimit(t *testing.T) {
	noSleep(t)

	creator := &fakeCreator{
		responses: []goopenai.EmbeddingResponse{{}, response(1, 0)},
		errs:      []error{&goopenai.APIError{HTTPStatusCode: http.StatusTooManyRequests}, nil},
	}
	e := newEmbedder(creator, Config{MaxRetries: 3}, zap.NewNop())

	if _, err := e.Embed(context.Background(), "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(creator.requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(creator.requests))
	}
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	noSleep(t)

	creator := &fakeCreator{
		responses: []goopenai.EmbeddingResponse{{}},
		errs:      []error{&goopenai.APIError{HTTPStatusCode: http.StatusUnauthorized}},
	}
	e := newEmbedder(creator, Config{MaxRetries: 3}, zap.NewNop())

	if _, err := e.Embed(context.Background(), "text"); err == nil {
		t.Fatal("expected error")
	}
	if len(creator.requests) != 1 {
		t.Fatalf("expected a single request, got %d", len(creator.requests))
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, zap.NewNop()); err == nil {
		t.Fatal("expected error without api key")
	}
}
