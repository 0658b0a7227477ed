package retrieval

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// CodeChunk is one retrievable slice of a source file.
type CodeChunk struct {
	File      string `json:"file"`
	Symbol    string `json:"symbol,omitempty"`
	Language  string `json:"language"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Content   string `json:"content"`
}

// ID returns a stable identifier for the chunk.
func (c CodeChunk) ID() string {
	return fmt.Sprintf("%s#%d-%d", c.File, c.StartLine, c.EndLine)
}

var languageByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "jsx",
	".ts":   "typescript",
	".tsx":  "tsx",
	".rb":   "ruby",
	".rs":   "rust",
	".java": "java",
}

// symbolRe matches top-level declaration lines across the supported
// languages; the second group captures the symbol name.
var symbolRe = regexp.MustCompile(`^(func|def|class|type|function|const|var|interface)\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`)

const (
	maxChunkLines     = 60
	chunkOverlapLines = 10
)

// Chunker splits file contents into line-window chunks, preferring to break
// at declaration boundaries so a chunk carries a whole symbol when it fits.
type Chunker struct {
	maxLines int
	overlap  int
}

// NewChunker creates a Chunker with the default window.
func NewChunker() *Chunker {
	return &Chunker{maxLines: maxChunkLines, overlap: chunkOverlapLines}
}

// Chunk splits one file into chunks. Empty files produce no chunks.
func (c *Chunker) Chunk(file, content string) []CodeChunk {
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}

	lang := languageByExt[path.Ext(file)]
	if lang == "" {
		lang = "text"
	}

	boundaries := symbolBoundaries(lines)

	var chunks []CodeChunk
	start := 0
	for start < len(lines) {
		end := start + c.maxLines
		if end >= len(lines) {
			end = len(lines)
		} else if b := lastBoundaryBefore(boundaries, start+1, end); b > start {
			// Cut at the declaration so the next chunk starts on it.
			end = b
		}

		chunks = append(chunks, CodeChunk{
			File:      file,
			Symbol:    symbolAt(lines, boundaries, start),
			Language:  lang,
			StartLine: start + 1,
			EndLine:   end,
			Content:   strings.Join(lines[start:end], "\n"),
		})

		if end == len(lines) {
			break
		}
		// Overlap only when the cut fell mid-symbol; boundary cuts are clean.
		next := end
		if !hasBoundary(boundaries, end) {
			next = end - c.overlap
			if next <= start {
				next = end
			}
		}
		start = next
	}

	return chunks
}

func symbolBoundaries(lines []string) map[int]string {
	b := make(map[int]string)
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if m := symbolRe.FindStringSubmatch(trimmed); m != nil && trimmed == line {
			b[i] = m[2]
		}
	}
	return b
}

func lastBoundaryBefore(boundaries map[int]string, from, to int) int {
	for i := to; i > from; i-- {
		if _, ok := boundaries[i]; ok {
			return i
		}
	}
	return -1
}

func hasBoundary(boundaries map[int]string, idx int) bool {
	_, ok := boundaries[idx]
	return ok
}

func symbolAt(lines []string, boundaries map[int]string, start int) string {
	if sym, ok := boundaries[start]; ok {
		return sym
	}
	return ""
}
