package order

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.etcd.io/bbolt"
)

const (
	itemBucketName  = "item_aliases"
	storeBucketName = "store_aliases"
)

// AliasDB persists the item and store alias tables between batch runs, so
// auto-learned names survive the process. The pipeline itself only depends
// on AliasTable; this interface is the load/save lifecycle around it.
type AliasDB interface {
	// LoadItems reads the item alias table
	LoadItems() (*AliasTable, error)

	// LoadStores reads the known-store alias table
	LoadStores() (*AliasTable, error)

	// SaveItems writes the item alias table back
	SaveItems(table *AliasTable) error

	// SaveStores writes the known-store alias table back
	SaveStores(table *AliasTable) error

	// Close closes the database
	Close() error
}

// BoltAliasDB implements AliasDB using BoltDB.
type BoltAliasDB struct {
	db *bbolt.DB
}

// aliasRecord is the stored value per canonical name. Seq preserves
// registration order across load/save cycles.
type aliasRecord struct {
	Seq      int      `json:"seq"`
	Variants []string `json:"variants,omitempty"`
}

// NewBoltAliasDB opens (or creates) the alias database at path.
func NewBoltAliasDB(path string) (*BoltAliasDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening alias db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(itemBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(storeBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating alias buckets: %w", err)
	}

	return &BoltAliasDB{db: db}, nil
}

// LoadItems reads the item alias table
func (b *BoltAliasDB) LoadItems() (*AliasTable, error) {
	return b.load(itemBucketName)
}

// LoadStores reads the known-store alias table
func (b *BoltAliasDB) LoadStores() (*AliasTable, error) {
	return b.load(storeBucketName)
}

// SaveItems writes the item alias table back
func (b *BoltAliasDB) SaveItems(table *AliasTable) error {
	return b.save(itemBucketName, table)
}

// SaveStores writes the known-store alias table back
func (b *BoltAliasDB) SaveStores(table *AliasTable) error {
	return b.save(storeBucketName, table)
}

func (b *BoltAliasDB) load(bucket string) (*AliasTable, error) {
	type entry struct {
		canonical string
		record    aliasRecord
	}
	var entries []entry

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucket)).ForEach(func(k, v []byte) error {
			var record aliasRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling alias record %q: %w", k, err)
			}
			entries = append(entries, entry{canonical: string(k), record: record})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].record.Seq < entries[j].record.Seq
	})

	table := NewAliasTable()
	for _, e := range entries {
		table.AddEntry(e.canonical)
		for _, v := range e.record.Variants {
			table.AddVariant(e.canonical, v)
		}
	}
	return table, nil
}

func (b *BoltAliasDB) save(bucket string, table *AliasTable) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		// Rewrite wholesale so removed entries disappear.
		if err := tx.DeleteBucket([]byte(bucket)); err != nil {
			return err
		}
		bkt, err := tx.CreateBucket([]byte(bucket))
		if err != nil {
			return err
		}

		for seq, canonical := range table.Entries() {
			record := aliasRecord{Seq: seq, Variants: table.Variants(canonical)}
			data, err := json.Marshal(record)
			if err != nil {
				return fmt.Errorf("marshaling alias record %q: %w", canonical, err)
			}
			if err := bkt.Put([]byte(canonical), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close closes the database
func (b *BoltAliasDB) Close() error {
	return b.db.Close()
}
