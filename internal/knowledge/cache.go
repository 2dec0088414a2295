package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
)

// embeddingCache 固定容量的向量缓存
// 淘汰策略为插入序最旧优先（非LRU）：key环形数组+哈希表，插入与淘汰均为O(1)。
// 互斥锁仅保证内存安全；不做按key加锁，并发miss可能重复生成同一向量，
// 结果幂等因此只损失效率不损失正确性。
type embeddingCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]float32
	keys     []string // 环形数组，记录插入顺序
	head     int      // 指向最旧的key
}

func newEmbeddingCache(capacity int) *embeddingCache {
	if capacity < 0 {
		capacity = 0
	}
	return &embeddingCache{
		capacity: capacity,
		entries:  make(map[string][]float32, capacity),
		keys:     make([]string, 0, capacity),
	}
}

// cacheKey 对(text, normalize)计算SHA-256摘要
func cacheKey(text string, normalize bool) string {
	sum := sha256.Sum256([]byte(text + "::" + strconv.FormatBool(normalize)))
	return hex.EncodeToString(sum[:])
}

// Get 查询缓存
func (c *embeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	vec, ok := c.entries[key]
	return vec, ok
}

// Put 写入缓存，容量满时淘汰最早插入的key
func (c *embeddingCache) Put(key string, embedding []float32) {
	if c.capacity == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = embedding
		return
	}

	if len(c.entries) >= c.capacity {
		oldest := c.keys[c.head]
		delete(c.entries, oldest)
		c.keys[c.head] = key
		c.head = (c.head + 1) % c.capacity
	} else {
		c.keys = append(c.keys, key)
	}
	c.entries[key] = embedding
}

// Len 当前缓存条目数
func (c *embeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear 清空缓存，返回清除的条目数
func (c *embeddingCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := len(c.entries)
	c.entries = make(map[string][]float32, c.capacity)
	c.keys = c.keys[:0]
	c.head = 0
	return count
}
