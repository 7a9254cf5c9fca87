package recognition

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
)

// Fingerprint returns the content hash used to key the recognition cache and
// pending-review entries: SHA-256 over the normalized image bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Cache is a content-addressed store of recognition results, so resubmitted
// images (a batch re-run after a partial failure, typically) skip
// recognition entirely. It is loaded wholesale at batch start and rewritten
// wholesale at batch end; it is an optimization, not a correctness
// dependency.
type Cache struct {
	path    string
	cap     int
	entries map[string][]CandidateLine
	// order tracks insertion for eviction. Entries loaded from disk get an
	// arbitrary order; oldest-first eviction is approximate by design.
	order []string
}

// NewCache creates a cache persisted at path, holding at most cap entries.
// A cap of 0 means unbounded.
func NewCache(path string, cap int) *Cache {
	return &Cache{
		path:    path,
		cap:     cap,
		entries: make(map[string][]CandidateLine),
	}
}

// Load reads the cache file. A missing file is an empty cache, not an error.
func (c *Cache) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading cache file: %w", err)
	}

	entries := make(map[string][]CandidateLine)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("unmarshaling cache file: %w", err)
	}

	c.entries = entries
	c.order = c.order[:0]
	for fingerprint := range entries {
		c.order = append(c.order, fingerprint)
	}
	return nil
}

// Save rewrites the cache file.
func (c *Cache) Save() error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}
	return nil
}

// Get returns the cached lines for a fingerprint, if present.
func (c *Cache) Get(fingerprint string) ([]CandidateLine, bool) {
	lines, ok := c.entries[fingerprint]
	return lines, ok
}

// Put stores lines under a fingerprint, evicting the oldest-inserted entries
// when the cap is exceeded. Re-writing an existing fingerprint is harmless.
func (c *Cache) Put(fingerprint string, lines []CandidateLine) {
	if _, exists := c.entries[fingerprint]; !exists {
		c.order = append(c.order, fingerprint)
	}
	c.entries[fingerprint] = lines

	for c.cap > 0 && len(c.entries) > c.cap {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
