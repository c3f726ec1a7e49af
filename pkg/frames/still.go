package frames

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// DefaultIndexFile is the index file name inside a still-image directory
const DefaultIndexFile = "index.txt"

// IndexEntry maps a timestamp to an image file
type IndexEntry struct {
	Timestamp float64
	File      string
}

// Index is a timestamp-sorted list of still images
type Index struct {
	entries []IndexEntry
}

// ParseIndex parses index content: one "<timestamp> <filename>" entry per line. The
// text after the last newline is ignored, so the file is expected to end with one.
func ParseIndex(content string) (*Index, error) {
	lines := strings.Split(content, "\n")
	lines = lines[:len(lines)-1]

	entries := make([]IndexEntry, 0, len(lines))
	for n, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return nil, fmt.Errorf("index line %d: expected \"<timestamp> <file>\", got %q", n+1, line)
		}
		ts, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("index line %d: invalid timestamp: %w", n+1, err)
		}
		entries = append(entries, IndexEntry{Timestamp: ts, File: fields[1]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return &Index{entries: entries}, nil
}

// LoadIndex reads and parses an index file
func LoadIndex(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame index: %w", err)
	}
	return ParseIndex(string(data))
}

// Len returns the number of entries
func (x *Index) Len() int {
	return len(x.entries)
}

// Nearest returns the entry closest to timestamp. Timestamps before the first or after
// the last entry clamp to it; a tie between two neighbours picks the earlier one.
func (x *Index) Nearest(timestamp float64) (IndexEntry, bool) {
	n := len(x.entries)
	if n == 0 {
		return IndexEntry{}, false
	}

	i := sort.Search(n, func(i int) bool { return x.entries[i].Timestamp >= timestamp })
	switch {
	case i == 0:
		return x.entries[0], true
	case i == n:
		return x.entries[n-1], true
	}

	before, after := x.entries[i-1], x.entries[i]
	if after.Timestamp-timestamp < timestamp-before.Timestamp {
		return after, true
	}
	return before, true
}

// IndexCache keeps parsed indexes keyed by camera directory. It is safe for concurrent use.
type IndexCache struct {
	mu      sync.Mutex
	indexes map[string]*Index
}

// NewIndexCache returns an empty cache
func NewIndexCache() *IndexCache {
	return &IndexCache{indexes: make(map[string]*Index)}
}

// Get returns the index of the camera directory, parsing indexFile on first use
func (c *IndexCache) Get(dir, indexFile string) (*Index, error) {
	key := filepath.Clean(dir)

	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.indexes[key]; ok {
		return idx, nil
	}
	idx, err := LoadIndex(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, err
	}
	c.indexes[key] = idx
	return idx, nil
}

// Len returns the number of cached indexes
func (c *IndexCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.indexes)
}

// StillSource serves the still image nearest to a timestamp from an indexed directory
type StillSource struct {
	Dir       string
	IndexFile string
	Cache     *IndexCache
}

// NewStillSource returns a source for dir sharing cache. A nil cache gets a private one.
func NewStillSource(dir string, cache *IndexCache) *StillSource {
	if cache == nil {
		cache = NewIndexCache()
	}
	return &StillSource{Dir: dir, IndexFile: DefaultIndexFile, Cache: cache}
}

// Lookup returns the path of the still nearest to timestamp
func (s *StillSource) Lookup(timestamp float64) (string, error) {
	indexFile := s.IndexFile
	if indexFile == "" {
		indexFile = DefaultIndexFile
	}
	idx, err := s.Cache.Get(s.Dir, indexFile)
	if err != nil {
		return "", err
	}
	entry, ok := idx.Nearest(timestamp)
	if !ok {
		return "", fmt.Errorf("%w: empty index in %s", ErrNoFrame, s.Dir)
	}
	return filepath.Join(s.Dir, entry.File), nil
}

// Frame loads the still nearest to timestamp
func (s *StillSource) Frame(ctx context.Context, timestamp float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.Lookup(timestamp)
	if err != nil {
		return nil, err
	}
	return LoadImage(path)
}
