package knowledge

import (
	"regexp"
	"strings"
	"unicode"
)

// ChunkRecord 分块结果
// StartPosition/EndPosition基于重组后的分块文本（重叠句会重复计入），
// 不是原始文本的偏移
type ChunkRecord struct {
	ChunkIndex    int
	ChunkText     string
	TokenCount    int
	CharCount     int
	StartPosition int
	EndPosition   int
	HasHeader     bool
	SectionTitle  *string
}

// Chunker 句子级文本分块器
type Chunker struct {
	chunkSize        int
	overlapSentences int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlapSentences int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 512
	}
	if overlapSentences < 0 {
		overlapSentences = 0
	}
	return &Chunker{
		chunkSize:        chunkSize,
		overlapSentences: overlapSentences,
	}
}

// 保留任意语言的字母数字、空白与常见标点，其余字符剔除
var disallowedChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-"'\[\]]`)

// Chunk 将文档文本切分为带重叠的有序分块
// 空文本或纯空白文本返回空序列，调用方必须将零分块视为流水线终止条件
func (c *Chunker) Chunk(text string) []ChunkRecord {
	clean := c.cleanText(text)
	if clean == "" {
		return nil
	}

	sentences := splitSentences(clean)

	var chunks []ChunkRecord
	var current []string
	currentLength := 0
	charPosition := 0

	for _, sentence := range sentences {
		sentenceLength := len(sentence)

		// 超过目标大小且缓冲区非空时封存当前分块
		if currentLength+sentenceLength > c.chunkSize && len(current) > 0 {
			chunkText := strings.Join(current, " ")
			chunks = append(chunks, c.buildRecord(len(chunks), chunkText, charPosition))
			charPosition += len(chunkText)

			// 携带末尾句子作为重叠，保证相邻分块共享上下文
			overlap := current
			if len(current) > c.overlapSentences {
				overlap = current[len(current)-c.overlapSentences:]
			}
			current = append(append([]string{}, overlap...), sentence)
			currentLength = 0
			for _, s := range current {
				currentLength += len(s)
			}
		} else {
			current = append(current, sentence)
			currentLength += sentenceLength
		}
	}

	// 封存剩余缓冲区
	if len(current) > 0 {
		chunkText := strings.Join(current, " ")
		chunks = append(chunks, c.buildRecord(len(chunks), chunkText, charPosition))
	}

	return chunks
}

func (c *Chunker) buildRecord(index int, chunkText string, startPosition int) ChunkRecord {
	charCount := len(chunkText)
	hasHeader, sectionTitle := detectHeader(chunkText)
	return ChunkRecord{
		ChunkIndex:    index,
		ChunkText:     chunkText,
		TokenCount:    estimateTokens(chunkText),
		CharCount:     charCount,
		StartPosition: startPosition,
		EndPosition:   startPosition + charCount,
		HasHeader:     hasHeader,
		SectionTitle:  sectionTitle,
	}
}

// cleanText 折叠空白并剔除允许列表之外的字符
func (c *Chunker) cleanText(text string) string {
	var builder strings.Builder
	builder.Grow(len(text))

	var prevSpace bool
	for _, r := range text {
		if unicode.IsSpace(r) {
			if prevSpace {
				continue
			}
			builder.WriteRune(' ')
			prevSpace = true
			continue
		}
		builder.WriteRune(r)
		prevSpace = false
	}

	cleaned := disallowedChars.ReplaceAllString(builder.String(), "")
	return strings.TrimSpace(cleaned)
}

// splitSentences 以.!?后跟空白作为句子边界
func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '.' || r == '!' || r == '?' {
			// 边界要求终结符后紧跟空白
			if i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				sentence := strings.TrimSpace(string(runes[start : i+1]))
				if sentence != "" {
					sentences = append(sentences, sentence)
				}
				start = i + 1
			}
		}
	}

	if start < len(runes) {
		sentence := strings.TrimSpace(string(runes[start:]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
	}

	return sentences
}

// estimateTokens 以空白分词数近似token数
func estimateTokens(text string) int {
	return len(strings.Fields(text))
}

// detectHeader 首行短于100字符且不以终结标点结尾视为标题
func detectHeader(text string) (bool, *string) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return false, nil
	}

	firstLine := strings.TrimSpace(lines[0])
	if len(lines[0]) >= 100 || firstLine == "" {
		return false, nil
	}
	if strings.HasSuffix(firstLine, ".") || strings.HasSuffix(firstLine, "!") || strings.HasSuffix(firstLine, "?") {
		return false, nil
	}
	return true, &firstLine
}
