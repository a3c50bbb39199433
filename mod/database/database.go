package database

/*
	Database Access Module

	Small key-value store used by the file viewer to remember
	generated artifacts (e.g. video thumbnails) between runs.
	Values are stored as JSON under (table, key).
*/

import (
	"imuslab.com/fileviewer/mod/database/dbbolt"
	"imuslab.com/fileviewer/mod/database/dbinc"
	"imuslab.com/fileviewer/mod/database/dbleveldb"
)

type Database struct {
	Db          dbinc.Backend
	BackendType dbinc.BackendType
}

func NewDatabase(dbfile string, backendType dbinc.BackendType) (*Database, error) {
	var backend dbinc.Backend
	var err error
	switch backendType {
	case dbinc.BackendBoltDB:
		backend, err = dbbolt.NewBoltDatabase(dbfile)
	case dbinc.BackendLevelDB:
		backend, err = dbleveldb.NewDB(dbfile)
	default:
		return nil, dbinc.ErrUnknownBackend
	}
	if err != nil {
		return nil, err
	}

	return &Database{
		Db:          backend,
		BackendType: backendType,
	}, nil
}

/*
	Create a table
	Usage:
	if !sysdb.TableExists("MyTable") {
		err := sysdb.NewTable("MyTable")
	}
*/

// Create a new table
func (d *Database) NewTable(tableName string) error {
	return d.Db.NewTable(tableName)
}

// Check is table exists
func (d *Database) TableExists(tableName string) bool {
	return d.Db.TableExists(tableName)
}

/*
Write to database with given tablename and key. Example Usage:
err := sysdb.Write("thumbnails", hash, record)
*/
func (d *Database) Write(tableName string, key string, value interface{}) error {
	return d.Db.Write(tableName, key, value)
}

/*
Read from database and assign the content to a given datatype.
Returns dbinc.ErrKeyNotFound if the key does not exist.

record := new(ThumbnailRecord)
err := sysdb.Read("thumbnails", hash, record)
*/
func (d *Database) Read(tableName string, key string, assignee interface{}) error {
	return d.Db.Read(tableName, key, assignee)
}

// Delete a value from the database table given tablename and key
func (d *Database) Delete(tableName string, key string) error {
	return d.Db.Delete(tableName, key)
}

/*
List all key-value pairs of a table. Each entry is [key, json value]

entries, err := sysdb.ListTable("thumbnails")

	for _, keypairs := range entries {
		record := new(ThumbnailRecord)
		json.Unmarshal(keypairs[1], record)
	}
*/
func (d *Database) ListTable(tableName string) ([][][]byte, error) {
	return d.Db.ListTable(tableName)
}

func (d *Database) Close() {
	d.Db.Close()
}
