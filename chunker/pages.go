package chunker

import (
	"sort"

	"github.com/yhilem/distill/extract"
)

// AssignPages fills FirstPage and LastPage on each chunk from a sorted
// list of page start offsets (byte offsets into the chunked text, first
// page at offset 0). Pages are numbered from 1. Chunks are modified in
// place.
func AssignPages(chunks []extract.Chunk, pageStarts []int) {
	if len(pageStarts) == 0 {
		return
	}
	for i := range chunks {
		chunks[i].FirstPage = pageAt(pageStarts, chunks[i].CharStart)
		end := chunks[i].CharEnd
		if end > chunks[i].CharStart {
			end--
		}
		chunks[i].LastPage = pageAt(pageStarts, end)
	}
}

// pageAt returns the 1-based page containing the byte offset.
func pageAt(pageStarts []int, offset int) int {
	idx := sort.SearchInts(pageStarts, offset+1)
	if idx == 0 {
		return 1
	}
	return idx
}
