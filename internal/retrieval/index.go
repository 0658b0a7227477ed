package retrieval

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/lucasnoah/changegate/internal/config"
)

const collectionName = "code-chunks"

// Result is one ranked retrieval hit.
type Result struct {
	Chunk      CodeChunk `json:"chunk"`
	Similarity float32   `json:"similarity"`
}

// Index is an in-memory vector index over code chunks. Each run builds a
// fresh index for the repository it reviews; nothing persists across runs.
type Index struct {
	db      *chromem.DB
	embed   chromem.EmbeddingFunc
	topK    int
	minSim  float32
	logger  *zap.Logger
	indexed int
}

// NewIndex creates an Index with the given embedding function.
func NewIndex(embed chromem.EmbeddingFunc, cfg config.Retrieval, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		db:     chromem.NewDB(),
		embed:  embed,
		topK:   cfg.TopK,
		minSim: float32(cfg.MinSimilarity),
		logger: logger,
	}
}

// NewOpenAIEmbedding builds an embedding function against the configured
// OpenAI-compatible endpoint.
func NewOpenAIEmbedding(llm config.LLM, ret config.Retrieval) (chromem.EmbeddingFunc, error) {
	key := os.Getenv(llm.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%s environment variable is not set", llm.APIKeyEnv)
	}
	return chromem.NewEmbeddingFuncOpenAICompat(llm.BaseURL, key, ret.EmbeddingModel, nil), nil
}

// Add embeds and stores a batch of chunks.
func (ix *Index) Add(ctx context.Context, chunks []CodeChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	coll, err := ix.db.GetOrCreateCollection(collectionName, nil, ix.embed)
	if err != nil {
		return fmt.Errorf("open collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, c := range chunks {
		docs[i] = chromem.Document{
			ID:      c.ID(),
			Content: c.Content,
			Metadata: map[string]string{
				"file":       c.File,
				"symbol":     c.Symbol,
				"language":   c.Language,
				"start_line": strconv.Itoa(c.StartLine),
				"end_line":   strconv.Itoa(c.EndLine),
			},
		}
	}

	if err := coll.AddDocuments(ctx, docs, 4); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	ix.indexed += len(chunks)
	ix.logger.Debug("indexed chunks", zap.Int("count", len(chunks)), zap.Int("total", ix.indexed))
	return nil
}

// Size returns the number of indexed chunks.
func (ix *Index) Size() int { return ix.indexed }

// Query returns the chunks most similar to the task description, best
// first, filtered by the similarity floor.
func (ix *Index) Query(ctx context.Context, task string) ([]Result, error) {
	if ix.indexed == 0 {
		return nil, nil
	}

	coll := ix.db.GetCollection(collectionName, ix.embed)
	if coll == nil {
		return nil, fmt.Errorf("collection not initialized")
	}

	k := ix.topK
	if k > coll.Count() {
		k = coll.Count()
	}

	hits, err := coll.Query(ctx, task, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	var results []Result
	for _, hit := range hits {
		if hit.Similarity < ix.minSim {
			continue
		}
		results = append(results, Result{
			Chunk: CodeChunk{
				File:      hit.Metadata["file"],
				Symbol:    hit.Metadata["symbol"],
				Language:  hit.Metadata["language"],
				StartLine: atoi(hit.Metadata["start_line"]),
				EndLine:   atoi(hit.Metadata["end_line"]),
				Content:   hit.Content,
			},
			Similarity: hit.Similarity,
		})
	}
	return results, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
