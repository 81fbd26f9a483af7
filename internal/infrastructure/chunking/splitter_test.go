package chunking

import (
	"strings"
	"testing"
)

func TestSplitAdjacentWindowsShareExactOverlap(t *testing.T) {
	const size, overlap = 10, 3
	s := NewSplitter(size, overlap)

	text := "abcdefghijklmnopqrstuvwxyz0123456789"
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i := 0; i < len(chunks)-1; i++ {
		left := []rune(chunks[i])
		right := []rune(chunks[i+1])
		tail := string(left[len(left)-overlap:])
		head := string(right[:overlap])
		if tail != head {
			t.Fatalf("chunks %d/%d overlap mismatch: %q vs %q", i, i+1, tail, head)
		}
	}
}

func TestSplitLastChunkMayBeShorter(t *testing.T) {
	s := NewSplitter(10, 3)
	chunks := s.Split("abcdefghijklmno")
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 10 {
		t.Fatalf("expected full first chunk, got len %d", len(chunks[0]))
	}
	if len(chunks[1]) >= 10 {
		t.Fatalf("expected shorter final chunk, got len %d", len(chunks[1]))
	}
	if !strings.HasSuffix(chunks[1], "o") {
		t.Fatalf("final chunk must reach end of text, got %q", chunks[1])
	}
}

func TestSplitTextShorterThanWindow(t *testing.T) {
	s := NewSplitter(300, 50)
	chunks := s.Split("short text")
	if len(chunks) != 1 {
		t.Fatalf("expected single chunk, got %d", len(chunks))
	}
	if chunks[0] != "short text" {
		t.Fatalf("expected untouched text, got %q", chunks[0])
	}
}

func TestSplitEmptyTextProducesNoChunks(t *testing.T) {
	s := NewSplitter(300, 50)
	if chunks := s.Split(""); chunks != nil {
		t.Fatalf("expected nil for empty text, got %v", chunks)
	}
}

func TestSplitReconstructsOriginalText(t *testing.T) {
	const size, overlap = 12, 4
	s := NewSplitter(size, overlap)
	text := strings.Repeat("the quick brown fox ", 7)

	chunks := s.Split(text)
	var b strings.Builder
	for i, chunk := range chunks {
		runes := []rune(chunk)
		if i == 0 {
			b.WriteString(chunk)
			continue
		}
		b.WriteString(string(runes[overlap:]))
	}
	if b.String() != text {
		t.Fatalf("dropping overlaps must reconstruct the document")
	}
}

func TestNewSplitterClampsDegenerateOverlap(t *testing.T) {
	s := NewSplitter(100, 100)
	if s.Overlap >= s.ChunkSize {
		t.Fatalf("overlap %d must stay below chunk size %d", s.Overlap, s.ChunkSize)
	}
}
