package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestChunkerEmptyText 空文本与纯空白文本返回空序列
func TestChunkerEmptyText(t *testing.T) {
	chunker := NewChunker(512, 2)

	assert.Empty(t, chunker.Chunk(""))
	assert.Empty(t, chunker.Chunk("   \n\t  "))
	// 清洗后为空的文本同样返回空
	assert.Empty(t, chunker.Chunk("€€€ ★★★"))
}

// TestChunkerSingleChunk 短文本产生单个分块
func TestChunkerSingleChunk(t *testing.T) {
	chunker := NewChunker(512, 2)

	chunks := chunker.Chunk("Access controls must be reviewed quarterly. Logs are retained for one year.")
	require.Len(t, chunks, 1)

	chunk := chunks[0]
	assert.Equal(t, 0, chunk.ChunkIndex)
	assert.Equal(t, "Access controls must be reviewed quarterly. Logs are retained for one year.", chunk.ChunkText)
	assert.Equal(t, 0, chunk.StartPosition)
	assert.Equal(t, len(chunk.ChunkText), chunk.EndPosition)
	assert.Equal(t, len(chunk.ChunkText), chunk.CharCount)
	assert.Equal(t, 12, chunk.TokenCount)
}

// TestChunkerOverlap 相邻分块共享末尾句子作为重叠
func TestChunkerOverlap(t *testing.T) {
	chunker := NewChunker(30, 1)

	text := "One two three. Four five six. Seven eight nine. Ten eleven."
	chunks := chunker.Chunk(text)
	require.Len(t, chunks, 3)

	assert.Equal(t, "One two three. Four five six.", chunks[0].ChunkText)
	assert.Equal(t, "Four five six. Seven eight nine.", chunks[1].ChunkText)
	assert.Equal(t, "Seven eight nine. Ten eleven.", chunks[2].ChunkText)

	// 位置按封存分块的累计长度推进（重叠句重复计入）
	assert.Equal(t, 0, chunks[0].StartPosition)
	assert.Equal(t, 29, chunks[0].EndPosition)
	assert.Equal(t, 29, chunks[1].StartPosition)
	assert.Equal(t, 61, chunks[1].EndPosition)
	assert.Equal(t, 61, chunks[2].StartPosition)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
	}
}

// TestChunkerOversizedSentence 超长单句单独成块而不丢弃
func TestChunkerOversizedSentence(t *testing.T) {
	chunker := NewChunker(20, 1)

	long := strings.Repeat("word ", 20) + "end."
	chunks := chunker.Chunk("Short one. " + long)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Short one.", chunks[0].ChunkText)
	assert.Contains(t, chunks[1].ChunkText, "end.")
}

// TestChunkerCleanText 空白折叠与非法字符剔除
func TestChunkerCleanText(t *testing.T) {
	chunker := NewChunker(512, 2)

	chunks := chunker.Chunk("Data   is\n\nencrypted™ at® rest.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Data is encrypted at rest.", chunks[0].ChunkText)
}

// TestChunkerCleanTextPreservesUnicodeLetters 清洗不得破坏非ASCII字母
func TestChunkerCleanTextPreservesUnicodeLetters(t *testing.T) {
	chunker := NewChunker(512, 2)

	chunks := chunker.Chunk("Le café traite des données personnelles.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Le café traite des données personnelles.", chunks[0].ChunkText)

	chunks = chunker.Chunk("Die API-Schlüssel müssen über größere Zeiträume rotiert werden.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Die API-Schlüssel müssen über größere Zeiträume rotiert werden.", chunks[0].ChunkText)
}

// TestChunkerHeaderDetection 短且不以终结标点结尾的首行视为标题
func TestChunkerHeaderDetection(t *testing.T) {
	chunker := NewChunker(512, 2)

	chunks := chunker.Chunk("Security Policy Overview")
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].HasHeader)
	require.NotNil(t, chunks[0].SectionTitle)
	assert.Equal(t, "Security Policy Overview", *chunks[0].SectionTitle)

	chunks = chunker.Chunk("This sentence ends with a period.")
	require.Len(t, chunks, 1)
	assert.False(t, chunks[0].HasHeader)
	assert.Nil(t, chunks[0].SectionTitle)
}

// TestSplitSentences 句子边界为终结符后跟空白
func TestSplitSentences(t *testing.T) {
	sentences := splitSentences("First rule. Second rule! Third rule? Version 2.5 applies.")
	assert.Equal(t, []string{"First rule.", "Second rule!", "Third rule?", "Version 2.5 applies."}, sentences)

	// 小数点后无空白不是边界
	sentences = splitSentences("Threshold is 99.9 percent uptime")
	assert.Equal(t, []string{"Threshold is 99.9 percent uptime"}, sentences)
}
