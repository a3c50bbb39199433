package dbinc

import (
	"errors"
	"strings"
	"time"
)

/*
dbinc is the interface for all database backend
*/
type BackendType int

const (
	BackendBoltDB  BackendType = iota //Default backend
	BackendLevelDB                    //LevelDB backend

	BackEndAuto = BackendBoltDB
)

// How long to wait for another process holding the database file
const LockTimeout = 1 * time.Second

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrTableNotFound  = errors.New("table not exists")
	ErrLocked         = errors.New("database is locked by another process")
	ErrUnknownBackend = errors.New("unknown database backend")
)

type Backend interface {
	NewTable(tableName string) error
	TableExists(tableName string) bool
	Write(tableName string, key string, value interface{}) error
	Read(tableName string, key string, assignee interface{}) error
	Delete(tableName string, key string) error
	ListTable(tableName string) ([][][]byte, error)
	Close()
}

func (b BackendType) String() string {
	switch b {
	case BackendBoltDB:
		return "BoltDB"
	case BackendLevelDB:
		return "LevelDB"
	default:
		return "Unknown"
	}
}

// ParseBackendType converts the -db flag value into a backend type
func ParseBackendType(name string) (BackendType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		return BackEndAuto, nil
	case "bolt", "boltdb":
		return BackendBoltDB, nil
	case "leveldb":
		return BackendLevelDB, nil
	default:
		return BackEndAuto, ErrUnknownBackend
	}
}
