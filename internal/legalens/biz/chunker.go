package biz

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultMinChunkLength 默认最短条款长度（字符数）。
const DefaultMinChunkLength = 50

var (
	// 空行边界，\s* 可跨越多个换行。
	blankLineRe = regexp.MustCompile(`^\n\s*\n`)
	// 换行后紧跟的编号标记：1. / * / (a) / IV.
	listMarkerRe = regexp.MustCompile(`^\s*(?:\d+\.|\*|\([a-zA-Z]\)|[IVX]+\.)`)
)

// Chunker 将文档切分为条款。
type Chunker struct {
	minLength int
}

// NewChunker 创建切分器，minLength <= 0 时使用默认值。
func NewChunker(minLength int) *Chunker {
	if minLength <= 0 {
		minLength = DefaultMinChunkLength
	}
	return &Chunker{minLength: minLength}
}

// Split 按空行和编号标记切分文本，去除首尾空白后丢弃过短的片段。
// 标记本身保留在下一个条款开头，结果保持原文顺序。
func (c *Chunker) Split(text string) []string {
	chunks := make([]string, 0)
	for _, piece := range splitClauses(text) {
		piece = strings.TrimSpace(piece)
		if utf8.RuneCountInString(piece) >= c.minLength {
			chunks = append(chunks, piece)
		}
	}
	return chunks
}

func splitClauses(text string) []string {
	var pieces []string
	start := 0
	for i := 0; i < len(text); {
		if text[i] != '\n' {
			i++
			continue
		}
		if loc := blankLineRe.FindStringIndex(text[i:]); loc != nil {
			pieces = append(pieces, text[start:i])
			i += loc[1]
			start = i
			continue
		}
		if listMarkerRe.MatchString(text[i+1:]) {
			pieces = append(pieces, text[start:i])
			i++
			start = i
			continue
		}
		i++
	}
	return append(pieces, text[start:])
}
