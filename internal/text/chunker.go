package text

import (
	"errors"
	"fmt"
)

// ErrBadOverlap is returned when overlap >= chunkSize, which would make the
// window never advance.
var ErrBadOverlap = errors.New("overlap must be smaller than chunk size")

// Chunk is a contiguous window of the input text. Index is the 0-based
// position of the chunk in document order.
type Chunk struct {
	Index   int
	Content string
}

// Split cuts text into windows of at most chunkSize bytes where consecutive
// windows share `overlap` bytes. The last chunk may be shorter. Overlap 0
// yields disjoint chunks. Dropping the leading `overlap` bytes of every
// chunk after the first and concatenating reconstructs the input exactly.
func Split(text string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrBadOverlap, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d, chunk size %d", ErrBadOverlap, overlap, chunkSize)
	}

	var chunks []Chunk
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Content: text[start:end]})

		if start+chunkSize >= len(text) {
			break
		}
		start = start + chunkSize - overlap
	}
	return chunks, nil
}
