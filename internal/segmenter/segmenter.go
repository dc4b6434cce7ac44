package segmenter

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"lawrag/internal/model"
)

// Legal marker patterns in tie-break priority order:
// chapter > article > clause > item. Each matches 第N章/条/款/项 with N
// in Chinese numerals or digits.
var markerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`第[零一二三四五六七八九十百千万\d]+章`),
	regexp.MustCompile(`第[零一二三四五六七八九十百千万\d]+条`),
	regexp.MustCompile(`第[零一二三四五六七八九十百千万\d]+款`),
	regexp.MustCompile(`第[零一二三四五六七八九十百千万\d]+项`),
}

type marker struct {
	offset   int // byte offset into the source text
	text     string
	priority int
}

// Segmenter splits raw document text into ordered chunks. In
// structure-aware mode it cuts at legal markers so provisions are not
// split mid-article; otherwise (or when no markers are found) it
// slides fixed-size overlapping windows.
type Segmenter struct {
	chunkSize      int
	chunkOverlap   int
	structureAware bool
}

// New validates the chunking parameters up front. An overlap at or
// above the chunk size would make the fixed-size window never advance.
func New(chunkSize, chunkOverlap int, structureAware bool) (*Segmenter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("chunk overlap must not be negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", chunkOverlap, chunkSize)
	}
	return &Segmenter{
		chunkSize:      chunkSize,
		chunkOverlap:   chunkOverlap,
		structureAware: structureAware,
	}, nil
}

// Segment returns the ordered chunks of text for documentID.
// ChunkIndex is assigned 0..n-1 in emission order regardless of which
// path produced the chunk. Empty text yields no chunks.
func (s *Segmenter) Segment(text string, documentID int64) []model.Chunk {
	if text == "" {
		return nil
	}
	if s.structureAware {
		return s.segmentByStructure(text, documentID)
	}
	return s.segmentBySize(text, documentID)
}

func (s *Segmenter) segmentByStructure(text string, documentID int64) []model.Chunk {
	markers := findMarkers(text)
	if len(markers) == 0 {
		return s.segmentBySize(text, documentID)
	}

	var chunks []model.Chunk
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1].offset
		}
		span := strings.TrimSpace(text[m.offset:end])

		if runeLen(span) > s.chunkSize*2 {
			for j, sub := range splitFixed(span, s.chunkSize) {
				chunks = append(chunks, model.Chunk{
					DocumentID:    documentID,
					ChunkIndex:    len(chunks),
					ChunkPosition: fmt.Sprintf("%s-%d", m.text, j+1),
					Text:          sub,
				})
			}
			continue
		}
		chunks = append(chunks, model.Chunk{
			DocumentID:    documentID,
			ChunkIndex:    len(chunks),
			ChunkPosition: m.text,
			Text:          span,
		})
	}
	return chunks
}

// segmentBySize slides a window of chunkSize runes with chunkOverlap
// runes shared between consecutive windows. The range label keeps the
// nominal window end even when the last window is truncated.
func (s *Segmenter) segmentBySize(text string, documentID int64) []model.Chunk {
	runes := []rune(text)
	step := s.chunkSize - s.chunkOverlap

	var chunks []model.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		sliceEnd := end
		if sliceEnd > len(runes) {
			sliceEnd = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:sliceEnd]))
		if window == "" {
			continue
		}
		chunks = append(chunks, model.Chunk{
			DocumentID:    documentID,
			ChunkIndex:    len(chunks),
			ChunkPosition: fmt.Sprintf("Position %d-%d", start, end),
			Text:          window,
		})
	}
	return chunks
}

// findMarkers collects matches of all patterns and orders them by
// offset; equal offsets fall back to pattern priority.
func findMarkers(text string) []marker {
	var markers []marker
	for prio, pattern := range markerPatterns {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			markers = append(markers, marker{
				offset:   loc[0],
				text:     text[loc[0]:loc[1]],
				priority: prio,
			})
		}
	}
	sort.Slice(markers, func(i, j int) bool {
		if markers[i].offset != markers[j].offset {
			return markers[i].offset < markers[j].offset
		}
		return markers[i].priority < markers[j].priority
	})
	return markers
}

// splitFixed cuts text into consecutive pieces of at most size runes.
// Pieces are not trimmed so their concatenation reproduces the input.
func splitFixed(text string, size int) []string {
	runes := []rune(text)
	var parts []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

func runeLen(s string) int {
	return len([]rune(s))
}
