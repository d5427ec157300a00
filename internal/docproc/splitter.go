package docproc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	MetaFilename   = "filename"
	MetaFileType   = "file_type"
	MetaChunkIndex = "chunk_index"
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Chunk is one piece of a document together with the metadata it was split with.
type Chunk struct {
	Index    int
	Content  string
	Metadata map[string]string
}

type Splitter struct {
	splitter textsplitter.RecursiveCharacter
}

func NewSplitter(size, overlap int) *Splitter {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Splitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
			textsplitter.WithSeparators(defaultSeparators),
		),
	}
}

// Split breaks text into chunks. Every chunk gets its own copy of metadata plus
// its position under chunk_index. Whitespace-only pieces are dropped.
func (s *Splitter) Split(text string, metadata map[string]string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	pieces, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("split text failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		idx := len(chunks)
		meta := make(map[string]string, len(metadata)+1)
		for k, v := range metadata {
			meta[k] = v
		}
		meta[MetaChunkIndex] = strconv.Itoa(idx)
		chunks = append(chunks, Chunk{
			Index:    idx,
			Content:  piece,
			Metadata: meta,
		})
	}
	return chunks, nil
}
