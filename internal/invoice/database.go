package invoice

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const invoiceBucketName = "invoices"

// DB defines the interface for invoice persistence
type DB interface {
	// SaveRecord saves a validated invoice record
	SaveRecord(record *Record) error

	// GetRecord retrieves a record by ID
	GetRecord(id string) (*Record, error)

	// ListRecords returns all records
	ListRecords() ([]*Record, error)

	// DeleteRecord removes a record
	DeleteRecord(id string) error

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

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(invoiceBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveRecord saves a validated invoice record
func (b *BoltDB) SaveRecord(record *Record) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshaling record: %w", err)
		}
		return bucket.Put([]byte(record.ID), data)
	})
}

// GetRecord retrieves a record by ID
func (b *BoltDB) GetRecord(id string) (*Record, error) {
	var record *Record
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("invoice not found: %s", id)
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// ListRecords returns all records
func (b *BoltDB) ListRecords() ([]*Record, error) {
	records := make([]*Record, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var record Record
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("unmarshaling record: %w", err)
			}
			records = append(records, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteRecord removes a record
func (b *BoltDB) DeleteRecord(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		return bucket.Delete([]byte(id))
	})
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
