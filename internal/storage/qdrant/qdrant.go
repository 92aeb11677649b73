// Package qdrant serves posting similarity search from a Qdrant collection.
// Posting records stay in the primary store; Qdrant holds only vectors and
// the payload needed for filtering.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/Hemachandran074/Job-recommendation-backend/internal/jobs"
	"github.com/Hemachandran074/Job-recommendation-backend/internal/storage"
)

const (
	DefaultCollection = "job_postings"

	payloadJobID    = "job_id"
	payloadJobType  = "job_type"
	payloadRemote   = "remote"
	payloadLocation = "location"

	// overfetchFactor widens the candidate window when a location filter
	// has to be applied after hydration.
	overfetchFactor = 5
	maxFetch        = 1000
)

// pointNamespace scopes the UUIDs derived from posting ids.
var pointNamespace = uuid.MustParse("6f1d8f6e-3c1a-4f0e-9a57-2b7c4c0e9d21")

// Config locates the Qdrant gRPC endpoint.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

// Index is a storage.VectorSearcher backed by Qdrant.
type Index struct {
	client     *qdrant.Client
	collection string
	dimension  int
	jobs       storage.JobReader
	logger     *zap.Logger
}

// New connects to Qdrant. Postings found by search are loaded from jobs.
func New(cfg Config, jobs storage.JobReader, logger *zap.Logger) (*Index, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Index{
		client:     client,
		collection: collection,
		dimension:  cfg.Dimension,
		jobs:       jobs,
		logger:     logger.With(zap.String("collection", collection)),
	}, nil
}

// EnsureCollection creates the collection and its payload indexes when
// missing.
func (i *Index) EnsureCollection(ctx context.Context) error {
	exists, err := i.client.CollectionExists(ctx, i.collection)
	if err != nil {
		return fmt.Errorf("check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = i.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: i.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(i.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	indexes := map[string]qdrant.FieldType{
		payloadJobType: qdrant.FieldType_FieldTypeKeyword,
		payloadRemote:  qdrant.FieldType_FieldTypeBool,
	}
	for field, fieldType := range indexes {
		_, err = i.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: i.collection,
			FieldName:      field,
			FieldType:      fieldType.Enum(),
		})
		if err != nil {
			return fmt.Errorf("create %s index: %w", field, err)
		}
	}

	i.logger.Info("qdrant collection created", zap.Int("dimension", i.dimension))
	return nil
}

// IndexJob upserts the posting vector and filter payload.
func (i *Index) IndexJob(ctx context.Context, p *jobs.Posting) error {
	if !p.HasEmbedding() {
		return fmt.Errorf("posting %s has no embedding", p.ID)
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(PointID(p.ID)),
		Vectors: qdrant.NewVectorsDense(p.Embedding),
		Payload: qdrant.NewValueMap(payload(p)),
	}

	_, err := i.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: i.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("upsert point for %s: %w", p.ID, err)
	}
	return nil
}

// FindSimilar queries Qdrant and hydrates the hits from the primary store.
// Postings deleted from the store since indexing are skipped.
func (i *Index) FindSimilar(ctx context.Context, q storage.SimilarQuery) ([]storage.ScoredJob, error) {
	threshold := float32(q.MinScore)
	limit := fetchLimit(q)

	points, err := i.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: i.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		ScoreThreshold: &threshold,
		Limit:          &limit,
		Filter:         buildFilter(q.Filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}

	hits := make([]storage.ScoredJob, 0, len(points))
	for _, point := range points {
		jobID := point.GetPayload()[payloadJobID].GetStringValue()
		if jobID == "" {
			continue
		}

		p, err := i.jobs.GetJob(ctx, jobID)
		if errors.Is(err, storage.ErrNotFound) {
			i.logger.Debug("indexed posting no longer stored", zap.String("job_id", jobID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load posting %s: %w", jobID, err)
		}
		if !q.Filter.Match(p) {
			continue
		}

		hits = append(hits, storage.ScoredJob{Job: p, Similarity: float64(point.GetScore())})
		if q.Limit > 0 && len(hits) == q.Limit {
			break
		}
	}

	return hits, nil
}

// Close releases the gRPC connection.
func (i *Index) Close() error {
	return i.client.Close()
}

// PointID derives a stable UUID point id from a posting id.
func PointID(jobID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(jobID)).String()
}

func payload(p *jobs.Posting) map[string]any {
	return map[string]any{
		payloadJobID:    p.ID,
		payloadJobType:  p.JobType,
		payloadRemote:   p.Remote,
		payloadLocation: p.Location,
	}
}

func buildFilter(f storage.Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if f.JobType != "" {
		must = append(must, qdrant.NewMatch(payloadJobType, f.JobType))
	}
	if f.RemoteOnly {
		must = append(must, qdrant.NewMatchBool(payloadRemote, true))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func fetchLimit(q storage.SimilarQuery) uint64 {
	limit := q.Limit
	if limit <= 0 {
		limit = maxFetch
	}
	if q.Filter.Location != "" {
		limit *= overfetchFactor
	}
	if limit > maxFetch {
		limit = maxFetch
	}
	return uint64(limit)
}
