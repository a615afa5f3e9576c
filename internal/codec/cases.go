package codec

import (
	"fmt"

	"github.com/couchcryptid/covid-trends-service/internal/domain"
)

// CaseEntry is one region's block in a binary case file.
type CaseEntry struct {
	ID     int
	Counts [domain.NumCaseTypes][]int64
}

// DecodeCases reads a case file:
//
//	[varint numEntries] { [varint id] [series confirmed] [series deaths]
//	                      [series recovered] [series active] }*
//
// where each series is [varint N] followed by N varints. If the input ends
// early the entries completed so far are returned together with an error
// wrapping ErrTruncated.
func DecodeCases(data []byte) ([]CaseEntry, error) {
	s := NewByteStream(data)

	n, err := s.ReadVarint()
	if err != nil {
		return nil, fmt.Errorf("read entry count: %w", err)
	}

	// Every entry takes at least five bytes, which bounds the allocation
	// against a corrupt header.
	entries := make([]CaseEntry, 0, min(int(n), s.Remaining()/5))
	for e := int64(0); e < n; e++ {
		id, err := s.ReadVarint()
		if err != nil {
			return entries, fmt.Errorf("entry %d: read id: %w", e, err)
		}
		entry := CaseEntry{ID: int(id)}
		for _, ct := range domain.CaseTypes {
			series, err := readSeries(s)
			if err != nil {
				return entries, fmt.Errorf("entry %d (id %d): read %s: %w", e, id, ct, err)
			}
			entry.Counts[ct] = series
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func readSeries(s *ByteStream) ([]int64, error) {
	n, err := s.ReadVarint()
	if err != nil {
		return nil, err
	}
	series := make([]int64, 0, min(int(n), s.Remaining()))
	for i := int64(0); i < n; i++ {
		v, err := s.ReadVarint()
		if err != nil {
			return nil, err
		}
		series = append(series, v)
	}
	return series, nil
}

// EncodeCases is the inverse of DecodeCases.
func EncodeCases(entries []CaseEntry) []byte {
	buf := AppendVarint(nil, int64(len(entries)))
	for _, e := range entries {
		buf = AppendVarint(buf, int64(e.ID))
		for _, ct := range domain.CaseTypes {
			buf = AppendVarint(buf, int64(len(e.Counts[ct])))
			for _, v := range e.Counts[ct] {
				buf = AppendVarint(buf, v)
			}
		}
	}
	return buf
}
