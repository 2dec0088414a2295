package knowledge

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCacheKeyDistinguishesNormalize 同一文本的normalize开关是两个独立条目
func TestCacheKeyDistinguishesNormalize(t *testing.T) {
	assert.NotEqual(t, cacheKey("hello", true), cacheKey("hello", false))
	assert.Equal(t, cacheKey("hello", true), cacheKey("hello", true))
	assert.NotEqual(t, cacheKey("hello", true), cacheKey("world", true))
}

// TestCachePutGet 基本读写
func TestCachePutGet(t *testing.T) {
	cache := newEmbeddingCache(4)

	key := cacheKey("policy text", true)
	cache.Put(key, []float32{0.1, 0.2})

	vec, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, []float32{0.1, 0.2}, vec)

	_, ok = cache.Get(cacheKey("other text", true))
	assert.False(t, ok)
	assert.Equal(t, 1, cache.Len())
}

// TestCacheEvictsOldestInsertion 容量满时淘汰最早插入的key（非LRU）
func TestCacheEvictsOldestInsertion(t *testing.T) {
	cache := newEmbeddingCache(3)

	for i := 0; i < 3; i++ {
		cache.Put(fmt.Sprintf("k%d", i), []float32{float32(i)})
	}

	// 读取k0不会使其变新，插入序淘汰与访问无关
	_, ok := cache.Get("k0")
	require.True(t, ok)

	cache.Put("k3", []float32{3})
	_, ok = cache.Get("k0")
	assert.False(t, ok, "最早插入的k0应被淘汰")

	for _, key := range []string{"k1", "k2", "k3"} {
		_, ok := cache.Get(key)
		assert.True(t, ok, key)
	}
	assert.Equal(t, 3, cache.Len())

	// 继续插入按环推进，k1成为下一个被淘汰的
	cache.Put("k4", []float32{4})
	_, ok = cache.Get("k1")
	assert.False(t, ok)
}

// TestCacheReplaceInPlace 已存在的key覆盖值但不占新槽位
func TestCacheReplaceInPlace(t *testing.T) {
	cache := newEmbeddingCache(2)

	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})
	cache.Put("a", []float32{9})

	assert.Equal(t, 2, cache.Len())
	vec, ok := cache.Get("a")
	require.True(t, ok)
	assert.Equal(t, []float32{9}, vec)
	_, ok = cache.Get("b")
	assert.True(t, ok)
}

// TestCacheZeroCapacity 零容量缓存不存任何条目
func TestCacheZeroCapacity(t *testing.T) {
	cache := newEmbeddingCache(0)

	cache.Put("a", []float32{1})
	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.Len())
}

// TestCacheClear 清空返回条目数并复位淘汰环
func TestCacheClear(t *testing.T) {
	cache := newEmbeddingCache(3)

	cache.Put("a", []float32{1})
	cache.Put("b", []float32{2})
	assert.Equal(t, 2, cache.Clear())
	assert.Equal(t, 0, cache.Len())

	// 清空后重新填满仍按插入序淘汰
	for i := 0; i < 4; i++ {
		cache.Put(fmt.Sprintf("n%d", i), []float32{float32(i)})
	}
	_, ok := cache.Get("n0")
	assert.False(t, ok)
	assert.Equal(t, 3, cache.Len())
}

// TestCacheConcurrentAccess 并发读写不panic不竞态
func TestCacheConcurrentAccess(t *testing.T) {
	cache := newEmbeddingCache(16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%32)
				cache.Put(key, []float32{float32(n)})
				cache.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, cache.Len(), 16)
}
