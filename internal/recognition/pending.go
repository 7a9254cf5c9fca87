package recognition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// PendingStore is the pending-review holding area: a directory of inputs the
// pipeline could not process, saved for manual reprocessing. Each entry is
// the normalized image named by its fingerprint plus a small JSON sidecar
// with the failure context.
type PendingStore struct {
	dir string
}

// PendingMeta is the sidecar written next to each deferred image.
type PendingMeta struct {
	Fingerprint string    `json:"fingerprint"`
	Reason      string    `json:"reason"`
	DeferredAt  time.Time `json:"deferred_at"`
}

// NewPendingStore creates the holding directory if needed.
func NewPendingStore(dir string) (*PendingStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating pending directory: %w", err)
	}
	return &PendingStore{dir: dir}, nil
}

// Save writes the image and its metadata sidecar. Writing the same
// fingerprint twice overwrites, which is fine: entries are idempotent.
func (p *PendingStore) Save(fingerprint string, imageData []byte, reason string) error {
	imagePath := filepath.Join(p.dir, fingerprint+".png")
	if err := os.WriteFile(imagePath, imageData, 0644); err != nil {
		return fmt.Errorf("writing pending image: %w", err)
	}

	meta := PendingMeta{
		Fingerprint: fingerprint,
		Reason:      reason,
		DeferredAt:  time.Now(),
	}
	metaData, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling pending metadata: %w", err)
	}
	metaPath := filepath.Join(p.dir, fingerprint+".json")
	if err := os.WriteFile(metaPath, metaData, 0644); err != nil {
		return fmt.Errorf("writing pending metadata: %w", err)
	}
	return nil
}

// List returns the fingerprints currently held for review.
func (p *PendingStore) List() ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("reading pending directory: %w", err)
	}

	var fingerprints []string
	for _, entry := range entries {
		name := entry.Name()
		if filepath.Ext(name) == ".png" {
			fingerprints = append(fingerprints, name[:len(name)-len(".png")])
		}
	}
	return fingerprints, nil
}

// Meta reads the metadata sidecar for a pending entry.
func (p *PendingStore) Meta(fingerprint string) (*PendingMeta, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, fingerprint+".json"))
	if err != nil {
		return nil, fmt.Errorf("reading pending metadata: %w", err)
	}
	var meta PendingMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("unmarshaling pending metadata: %w", err)
	}
	return &meta, nil
}

// Get retrieves a pending image by fingerprint.
func (p *PendingStore) Get(fingerprint string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(p.dir, fingerprint+".png"))
	if err != nil {
		return nil, fmt.Errorf("reading pending image: %w", err)
	}
	return data, nil
}

// Remove deletes a pending entry and its sidecar after reprocessing.
func (p *PendingStore) Remove(fingerprint string) error {
	if err := os.Remove(filepath.Join(p.dir, fingerprint+".png")); err != nil {
		return fmt.Errorf("removing pending image: %w", err)
	}
	// Sidecar is best-effort; older entries may not have one.
	os.Remove(filepath.Join(p.dir, fingerprint+".json"))
	return nil
}
