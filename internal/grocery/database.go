package grocery

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	analysisBucketName = "analyses"
	scanBucketName     = "scans"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveAnalysis saves an analysis to the database
	SaveAnalysis(analysis *Analysis) error

	// GetAnalysis retrieves an analysis by ID
	GetAnalysis(id string) (*Analysis, error)

	// ListAnalyses returns all analyses
	ListAnalyses() ([]*Analysis, error)

	// DeleteAnalysis removes an analysis from the database
	DeleteAnalysis(id string) error

	// SaveScan saves a receipt scan to the database
	SaveScan(scan *Scan) error

	// GetScan retrieves a receipt scan by ID
	GetScan(id string) (*Scan, error)

	// DeleteScan removes a receipt scan from the database
	DeleteScan(id string) error

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	// Create buckets if they don't exist
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{analysisBucketName, scanBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func (b *BoltDB) put(bucketName, id string, v any) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshaling %s: %w", bucketName, err)
		}
		return tx.Bucket([]byte(bucketName)).Put([]byte(id), data)
	})
}

func (b *BoltDB) get(bucketName, kind, id string, v any) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(bucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%s %w: %s", kind, ErrNotFound, id)
		}
		return json.Unmarshal(data, v)
	})
}

func (b *BoltDB) remove(bucketName, kind, id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket.Get([]byte(id)) == nil {
			return fmt.Errorf("%s %w: %s", kind, ErrNotFound, id)
		}
		return bucket.Delete([]byte(id))
	})
}

// SaveAnalysis saves an analysis to the database
func (b *BoltDB) SaveAnalysis(analysis *Analysis) error {
	return b.put(analysisBucketName, analysis.ID, analysis)
}

// GetAnalysis retrieves an analysis by ID
func (b *BoltDB) GetAnalysis(id string) (*Analysis, error) {
	var analysis Analysis
	if err := b.get(analysisBucketName, "analysis", id, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// ListAnalyses returns all analyses
func (b *BoltDB) ListAnalyses() ([]*Analysis, error) {
	analyses := make([]*Analysis, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(analysisBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var analysis Analysis
			if err := json.Unmarshal(v, &analysis); err != nil {
				return fmt.Errorf("unmarshaling analysis: %w", err)
			}
			analyses = append(analyses, &analysis)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return analyses, nil
}

// DeleteAnalysis removes an analysis from the database
func (b *BoltDB) DeleteAnalysis(id string) error {
	return b.remove(analysisBucketName, "analysis", id)
}

// SaveScan saves a receipt scan to the database
func (b *BoltDB) SaveScan(scan *Scan) error {
	return b.put(scanBucketName, scan.ID, scan)
}

// GetScan retrieves a receipt scan by ID
func (b *BoltDB) GetScan(id string) (*Scan, error) {
	var scan Scan
	if err := b.get(scanBucketName, "scan", id, &scan); err != nil {
		return nil, err
	}
	return &scan, nil
}

// DeleteScan removes a receipt scan from the database
func (b *BoltDB) DeleteScan(id string) error {
	return b.remove(scanBucketName, "scan", id)
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
