package dbleveldb

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"imuslab.com/fileviewer/mod/database/dbinc"
)

// Ensure the DB struct implements the Backend interface
var _ dbinc.Backend = (*DB)(nil)

type DB struct {
	db    *leveldb.DB
	Table sync.Map //For emulating table creation
}

func NewDB(path string) (*DB, error) {
	//If the path is not a directory (e.g. /tmp/dbfile.db), convert the filename to directory
	if ext := filepath.Ext(path); ext != "" {
		path = strings.TrimSuffix(path, ext) + "_" + strings.TrimPrefix(ext, ".")
	}

	db, err := leveldb.OpenFile(path, nil)
	if errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) {
		return nil, fmt.Errorf("%w: %s", dbinc.ErrLocked, path)
	} else if err != nil {
		return nil, err
	}
	return &DB{db: db, Table: sync.Map{}}, nil
}

func tableKey(tableName string, key string) []byte {
	return []byte(tableName + "/" + key)
}

func (d *DB) NewTable(tableName string) error {
	//Create a table entry in the sync.Map
	d.Table.Store(tableName, true)
	return nil
}

func (d *DB) TableExists(tableName string) bool {
	_, ok := d.Table.Load(tableName)
	return ok
}

func (d *DB) Write(tableName string, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	d.Table.Store(tableName, true)
	return d.db.Put(tableKey(tableName, key), data, nil)
}

func (d *DB) Read(tableName string, key string, assignee interface{}) error {
	data, err := d.db.Get(tableKey(tableName, key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return dbinc.ErrKeyNotFound
	} else if err != nil {
		return err
	}
	return json.Unmarshal(data, assignee)
}

func (d *DB) Delete(tableName string, key string) error {
	return d.db.Delete(tableKey(tableName, key), nil)
}

func (d *DB) ListTable(tableName string) ([][][]byte, error) {
	iter := d.db.NewIterator(util.BytesPrefix([]byte(tableName+"/")), nil)
	defer iter.Release()

	var result [][][]byte
	for iter.Next() {
		//The key contains the table name as prefix. Trim it before returning
		key := strings.TrimPrefix(string(iter.Key()), tableName+"/")
		value := append([]byte{}, iter.Value()...)
		result = append(result, [][]byte{[]byte(key), value})
	}

	err := iter.Error()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *DB) Close() {
	d.db.Close()
}
