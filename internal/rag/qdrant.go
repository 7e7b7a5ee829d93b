package rag

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// qdrantUpsertBatch is the number of points sent per Upsert RPC.
const qdrantUpsertBatch = 256

// QdrantConfig holds connection parameters for a Qdrant vector store instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use (default: ragqa-fragments).
	Collection string

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// BatchSize caps the number of texts per Embed call during a rebuild.
	BatchSize int
}

// QdrantIndexer mirrors dense fragment embeddings into a Qdrant collection.
// The collection is a cache: every rebuild drops and recreates it from the
// fragment store, and point IDs are fragment positions.
type QdrantIndexer struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// embedder converts fragment and query text to vectors.
	embedder Embedder

	// cfg holds the resolved configuration for this indexer.
	cfg *QdrantConfig
}

// NewQdrantIndexer connects to Qdrant and returns an indexer that writes to
// cfg.Collection. The collection itself is created on the first rebuild,
// once the embedding dimension is known.
func NewQdrantIndexer(embedder Embedder, cfg *QdrantConfig) (*QdrantIndexer, error) {
	if embedder == nil {
		return nil, fmt.Errorf("rag: embedder must not be nil")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = "ragqa-fragments"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultEmbedBatch
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantIndexer{client: client, embedder: embedder, cfg: cfg}, nil
}

// Name implements Indexer.
func (*QdrantIndexer) Name() string { return "qdrant" }

// Client exposes the gRPC client for readiness probes.
func (q *QdrantIndexer) Client() *qdrant.Client { return q.client }

// Rebuild embeds every fragment and replaces the collection contents.
func (q *QdrantIndexer) Rebuild(ctx context.Context, fragments []Fragment) (Index, error) {
	if err := q.dropCollection(ctx); err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return EmptyIndex(), nil
	}

	vectors, err := embedAll(ctx, q.embedder, fragments, q.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(len(vectors[0])),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create collection %q: %w", q.cfg.Collection, err)
	}

	wait := true
	for start := 0; start < len(fragments); start += qdrantUpsertBatch {
		end := min(start+qdrantUpsertBatch, len(fragments))
		points := make([]*qdrant.PointStruct, 0, end-start)
		for i := start; i < end; i++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDNum(uint64(i)),
				Vectors: qdrant.NewVectors(vectors[i]...),
				Payload: qdrant.NewValueMap(map[string]any{
					"source": fragments[i].Source,
					"text":   fragments[i].Text,
				}),
			})
		}
		_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: q.cfg.Collection,
			Wait:           &wait,
			Points:         points,
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant: upsert failed: %w", err)
		}
	}

	return &qdrantIndex{indexer: q, n: len(fragments)}, nil
}

// dropCollection removes the collection if it exists.
func (q *QdrantIndexer) dropCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}
	if err := q.client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
		return fmt.Errorf("qdrant: failed to drop collection %q: %w", q.cfg.Collection, err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (q *QdrantIndexer) Close() error {
	return q.client.Close()
}

// qdrantIndex scores queries against the collection built by Rebuild.
type qdrantIndex struct {
	indexer *QdrantIndexer
	n       int
}

func (x *qdrantIndex) Len() int { return x.n }

// Scores queries Qdrant for every point and maps the results back to
// fragment positions. Points Qdrant does not return score zero.
func (x *qdrantIndex) Scores(ctx context.Context, query string) ([]float64, error) {
	vec, err := embedQuery(ctx, x.indexer.embedder, query)
	if err != nil {
		return nil, err
	}

	limit := uint64(x.n)
	results, err := x.indexer.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: x.indexer.cfg.Collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	scores := make([]float64, x.n)
	for _, r := range results {
		id := r.GetId().GetNum()
		if id < uint64(x.n) {
			scores[id] = float64(r.GetScore())
		}
	}
	return scores, nil
}
