package knowledge

import (
	"regexp"
	"sort"
	"strings"
)

// Framework 合规框架定义
type Framework struct {
	ID       int
	Name     string
	Keywords []string
}

// TagResult 分块标注结果
type TagResult struct {
	ComplianceFrameworkID *int
	ComplianceTags        []string
	Keywords              []string
}

// Tagger 合规框架标注器
type Tagger struct {
	frameworks  []Framework
	maxKeywords int
}

// 框架表顺序即主框架的优先顺序
var defaultFrameworks = []Framework{
	{ID: 1, Name: "SOC 2", Keywords: []string{"soc 2", "service organization control", "trust services", "security", "availability", "confidentiality"}},
	{ID: 2, Name: "ISO 27001", Keywords: []string{"iso 27001", "information security", "isms", "risk management", "security controls"}},
	{ID: 3, Name: "GDPR", Keywords: []string{"gdpr", "data protection", "privacy", "personal data", "consent", "data subject"}},
	{ID: 4, Name: "HIPAA", Keywords: []string{"hipaa", "phi", "protected health information", "healthcare", "medical records"}},
	{ID: 5, Name: "PCI DSS", Keywords: []string{"pci dss", "payment card", "cardholder data", "payment security"}},
}

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {}, "to": {}, "for": {},
	"of": {}, "with": {}, "by": {}, "from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {}, "be": {},
	"been": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"should": {}, "could": {}, "may": {}, "might": {}, "must": {}, "can": {}, "this": {}, "that": {},
	"these": {}, "those": {}, "it": {}, "its": {}, "they": {}, "them": {}, "their": {},
}

var wordPattern = regexp.MustCompile(`\b[a-z]{3,}\b`)

// NewTagger 创建标注器
func NewTagger() *Tagger {
	return &Tagger{
		frameworks:  defaultFrameworks,
		maxKeywords: 10,
	}
}

// Tag 标注分块文本的合规框架与关键词
// 主框架取框架表顺序中第一个命中的框架，不按命中短语数量决定
func (t *Tagger) Tag(chunkText string) TagResult {
	textLower := strings.ToLower(chunkText)

	var primaryID *int
	var tags []string
	seen := make(map[string]struct{})

	for _, fw := range t.frameworks {
		for _, keyword := range fw.Keywords {
			if strings.Contains(textLower, keyword) {
				if primaryID == nil {
					id := fw.ID
					primaryID = &id
				}
				if _, ok := seen[fw.Name]; !ok {
					seen[fw.Name] = struct{}{}
					tags = append(tags, fw.Name)
				}
				// 每个框架命中一个短语即可
				break
			}
		}
	}

	return TagResult{
		ComplianceFrameworkID: primaryID,
		ComplianceTags:        tags,
		Keywords:              t.extractKeywords(textLower),
	}
}

// extractKeywords 按词频提取Top-K关键词，频率相同时保持首次出现顺序
func (t *Tagger) extractKeywords(textLower string) []string {
	words := wordPattern.FindAllString(textLower, -1)

	counts := make(map[string]int)
	var order []string
	for _, word := range words {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if _, ok := counts[word]; !ok {
			order = append(order, word)
		}
		counts[word]++
	}

	// 稳定排序保证并列词序确定
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > t.maxKeywords {
		order = order[:t.maxKeywords]
	}
	return order
}
