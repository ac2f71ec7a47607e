package service

import (
	"context"
	"errors"
	"fmt"
	"solveit_backend/internal/config"
	"solveit_backend/internal/model"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	openai "github.com/sashabaranov/go-openai"
)

// DocumentChunk 待写入向量库的文档片段
type DocumentChunk struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// VectorStore 基于 chromem-go 的检索服务，每个服务作用域一个集合
type VectorStore struct {
	db        *chromem.DB
	embedFunc chromem.EmbeddingFunc
	mu        sync.Mutex
}

func NewVectorStore(db *chromem.DB, embedFunc chromem.EmbeddingFunc) *VectorStore {
	return &VectorStore{db: db, embedFunc: embedFunc}
}

// NewVectorStoreFromConfig vector_path 为空时使用内存库
func NewVectorStoreFromConfig(cfg config.RetrievalConfig, ai config.AIConfig) (*VectorStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if cfg.VectorPath != "" {
		db, err = chromem.NewPersistentDB(cfg.VectorPath, true)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}
	return NewVectorStore(db, NewOpenAIEmbeddingFunc(ai)), nil
}

// NewOpenAIEmbeddingFunc 用 embeddings 接口生成向量
func NewOpenAIEmbeddingFunc(ai config.AIConfig) chromem.EmbeddingFunc {
	baseURL, key := ai.EmbeddingURL, ai.EmbeddingKey
	if key == "" {
		key = ai.APIKey
	}
	client := newOpenAIClient(baseURL, key, ai.Timeout)
	model := openai.EmbeddingModel(ai.EmbeddingModel)

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: model,
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, errors.New("embedding response is empty")
		}
		return resp.Data[0].Embedding, nil
	}
}

// Index 向作用域集合写入片段，同 ID 覆盖
func (s *VectorStore) Index(ctx context.Context, scope model.ServiceScope, chunks []DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	s.mu.Lock()
	col, err := s.db.GetOrCreateCollection(scope.Collection(), map[string]string{
		"company":   scope.CompanyKey,
		"namespace": scope.Namespace(),
	}, s.embedFunc)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("open collection: %w", err)
	}

	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = chromem.Document{
			ID:       chunk.ID,
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
		}
	}
	return col.AddDocuments(ctx, docs, 1)
}

// Search 集合不存在或为空时返回空结果
func (s *VectorStore) Search(ctx context.Context, query string, scope model.ServiceScope, topK int) ([]Snippet, error) {
	col := s.db.GetCollection(scope.Collection(), s.embedFunc)
	if col == nil {
		return nil, nil
	}

	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = 2
	}
	// chromem 要求 nResults 不超过集合大小
	if topK > count {
		topK = count
	}

	results, err := col.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	snippets := make([]Snippet, len(results))
	for i, r := range results {
		snippets[i] = Snippet{Text: r.Content, Score: r.Similarity}
	}
	return snippets, nil
}

// Count 作用域内片段数
func (s *VectorStore) Count(scope model.ServiceScope) int {
	col := s.db.GetCollection(scope.Collection(), s.embedFunc)
	if col == nil {
		return 0
	}
	return col.Count()
}

// CollectionCount 已建索引的服务作用域数量
func (s *VectorStore) CollectionCount() int {
	return len(s.db.ListCollections())
}
