package service

import (
	"context"
	"hash/fnv"
	"math"
	"solveit_backend/internal/model"
	"strings"
	"testing"

	chromem "github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bagOfWords 确定性的词袋向量，便于断言排序
func bagOfWords(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 32)
	vec[0] = 0.01
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,?!")
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[1+h.Sum32()%31]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func TestVectorStore_IndexAndSearch(t *testing.T) {
	store := NewVectorStore(chromem.NewDB(), bagOfWords)
	ctx := context.Background()
	scope := model.NewServiceScope("+15550100", "Opening Hours")

	require.NoError(t, store.Index(ctx, scope, []DocumentChunk{
		{ID: "1-0", Content: "Our business hours are 9 to 5 Monday to Friday"},
		{ID: "1-1", Content: "Refunds are processed within ten days"},
		{ID: "1-2", Content: "Parking is available behind the building"},
	}))
	assert.Equal(t, 3, store.Count(scope))
	assert.Equal(t, 1, store.CollectionCount())

	snippets, err := store.Search(ctx, "what are your business hours", scope, 2)
	require.NoError(t, err)
	require.Len(t, snippets, 2)
	assert.Equal(t, "Our business hours are 9 to 5 Monday to Friday", snippets[0].Text)
	assert.GreaterOrEqual(t, snippets[0].Score, snippets[1].Score)

	// 同 ID 覆盖，不新增
	require.NoError(t, store.Index(ctx, scope, []DocumentChunk{{ID: "1-1", Content: "Refunds take five days"}}))
	assert.Equal(t, 3, store.Count(scope))
}

func TestVectorStore_TopKClampedToCollectionSize(t *testing.T) {
	store := NewVectorStore(chromem.NewDB(), bagOfWords)
	ctx := context.Background()
	scope := model.NewServiceScope("100", "Billing")

	require.NoError(t, store.Index(ctx, scope, []DocumentChunk{{ID: "1-0", Content: "Invoices are sent monthly"}}))

	snippets, err := store.Search(ctx, "invoice", scope, 5)
	require.NoError(t, err)
	assert.Len(t, snippets, 1)
}

func TestVectorStore_MissingScopeIsEmpty(t *testing.T) {
	store := NewVectorStore(chromem.NewDB(), bagOfWords)
	ctx := context.Background()

	require.NoError(t, store.Index(ctx, model.NewServiceScope("100", "Billing"), []DocumentChunk{{ID: "1-0", Content: "Invoices are sent monthly"}}))

	// 其它公司的同名类别互不可见
	snippets, err := store.Search(ctx, "invoice", model.NewServiceScope("200", "Billing"), 2)
	require.NoError(t, err)
	assert.Empty(t, snippets)
	assert.Zero(t, store.Count(model.NewServiceScope("200", "Billing")))
}

func TestChunker_Split(t *testing.T) {
	c := Chunker{Size: 10, Overlap: 0.3, MinLength: 3}

	chunks := c.Split("abcdefghijklmnopqrstuvwxyz")
	assert.Equal(t, []string{"abcdefghij", "hijklmnopq", "opqrstuvwx", "vwxyz"}, chunks)

	assert.Empty(t, c.Split("   "))
	assert.Empty(t, c.Split("ab"))

	pages := c.SplitPages([]string{"abcdefghij", "xy", "klmnopqrst"})
	assert.Equal(t, []string{"abcdefghij", "klmnopqrst"}, pages)
}
