package dbbolt

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/boltdb/bolt"
	"imuslab.com/fileviewer/mod/database/dbinc"
)

// Ensure the Database struct implements the Backend interface
var _ dbinc.Backend = (*Database)(nil)

type Database struct {
	Db *bolt.DB //This is the bolt database object
}

func NewBoltDatabase(dbfile string) (*Database, error) {
	db, err := bolt.Open(dbfile, 0600, &bolt.Options{Timeout: dbinc.LockTimeout})
	if errors.Is(err, bolt.ErrTimeout) {
		return nil, fmt.Errorf("%w: %s", dbinc.ErrLocked, dbfile)
	} else if err != nil {
		return nil, err
	}

	return &Database{
		Db: db,
	}, err
}

// Create a new table
func (d *Database) NewTable(tableName string) error {
	return d.Db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(tableName))
		return err
	})
}

// Check is table exists
func (d *Database) TableExists(tableName string) bool {
	return d.Db.View(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(tableName)) == nil {
			return dbinc.ErrTableNotFound
		}
		return nil
	}) == nil
}

// Write to table
func (d *Database) Write(tableName string, key string, value interface{}) error {
	jsonString, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return d.Db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(tableName))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), jsonString)
	})
}

func (d *Database) Read(tableName string, key string, assignee interface{}) error {
	return d.Db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(tableName))
		if b == nil {
			return dbinc.ErrTableNotFound
		}
		v := b.Get([]byte(key))
		if v == nil {
			return dbinc.ErrKeyNotFound
		}
		return json.Unmarshal(v, assignee)
	})
}

func (d *Database) Delete(tableName string, key string) error {
	return d.Db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(tableName))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (d *Database) ListTable(tableName string) ([][][]byte, error) {
	var results [][][]byte
	err := d.Db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(tableName))
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			//Bolt reuses the slices after the transaction ends
			results = append(results, [][]byte{append([]byte{}, k...), append([]byte{}, v...)})
		}
		return nil
	})
	return results, err
}

func (d *Database) Close() {
	d.Db.Close()
}
