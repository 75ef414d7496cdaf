package chunker

import (
	"regexp"
	"strings"
)

// Chunk is one retrieval unit cut out of a document.
type Chunk struct {
	Content   string
	Index     int
	StartChar int
	EndChar   int
}

// Chunker splits cleaned text into overlapping, sentence-aligned chunks.
type Chunker struct {
	chunkSize int
	overlap   int
	sentences *regexp.Regexp
}

func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		sentences: regexp.MustCompile(`[^.!?]+[.!?]+\s*|[^.!?]+$`),
	}
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	specialsRe   = regexp.MustCompile(`[^\p{L}\p{N}_\s.,!?;:()\-'"]+`)
	pageNumRe    = regexp.MustCompile(`\b[Pp]age\s+\d+\b|\bp\.\s*\d+\b`)
)

// Clean normalizes raw PDF text: collapses whitespace, strips odd symbols
// and page-number artifacts.
func Clean(text string) string {
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = specialsRe.ReplaceAllString(text, "")
	text = pageNumRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// Split cleans the text and cuts it into chunks of roughly chunkSize
// characters. Chunks end on sentence boundaries where possible and
// neighboring chunks share about overlap characters of context.
func (c *Chunker) Split(text string) []Chunk {
	text = Clean(text)
	if text == "" {
		return nil
	}

	sentences := c.sentences.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}

	var chunks []Chunk
	var cur strings.Builder
	index := 0
	pos := 0
	curStart := 0

	flush := func(end int) {
		content := strings.TrimSpace(cur.String())
		if content == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Content:   content,
			Index:     index,
			StartChar: curStart,
			EndChar:   end,
		})
		index++
	}

	for _, sent := range sentences {
		sentLen := len(sent)

		// an oversize sentence becomes its own hard-cut chunks; whatever
		// is buffered goes out first, without an overlap tail
		if sentLen > c.chunkSize {
			flush(pos)
			cur.Reset()

			for start := 0; start < sentLen; start += c.chunkSize - c.overlap {
				end := start + c.chunkSize
				if end > sentLen {
					end = sentLen
				}
				piece := strings.TrimSpace(sent[start:end])
				if piece == "" {
					continue
				}
				chunks = append(chunks, Chunk{
					Content:   piece,
					Index:     index,
					StartChar: pos + start,
					EndChar:   pos + end,
				})
				index++
				if end == sentLen {
					break
				}
			}

			pos += sentLen
			curStart = pos
			continue
		}

		if cur.Len() > 0 && cur.Len()+sentLen > c.chunkSize {
			flush(pos)

			// carry the tail of the finished chunk into the next one
			tail := overlapTail(cur.String(), c.overlap)
			cur.Reset()
			curStart = pos - len(tail)
			cur.WriteString(tail)
		} else if cur.Len() == 0 {
			curStart = pos
		}

		cur.WriteString(sent)
		pos += sentLen
	}

	flush(pos)
	return chunks
}

func overlapTail(s string, overlap int) string {
	s = strings.TrimSpace(s)
	if overlap <= 0 || len(s) <= overlap {
		return ""
	}

	tail := s[len(s)-overlap:]
	// cut at a word boundary so the overlap does not start mid-word
	if i := strings.IndexByte(tail, ' '); i >= 0 {
		tail = tail[i+1:]
	}
	return tail + " "
}
