package db

import "errors"

// Sentinel errors for store operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	ErrInvalidQuery  = errors.New("db: invalid query")
)

// Op names the failing Redis command.
type Op string

// Redis commands reported in errors.
const (
	OpConnect     Op = "CONNECT"
	OpPing        Op = "PING"
	OpCreateIndex Op = "FT.CREATE"
	OpDropIndex   Op = "FT.DROPINDEX"
	OpIndexInfo   Op = "FT.INFO"
	OpSearch      Op = "FT.SEARCH"
	OpDel         Op = "DEL"
	OpHSet        Op = "HSET"
	OpExists      Op = "EXISTS"
	OpGet         Op = "GET"
	OpSet         Op = "SET"
)

// Error wraps a Redis failure with the command and, for per-key failures, the key.
type Error struct {
	Op  Op
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key != "" {
		return string(e.Op) + " " + e.Key + ": " + e.Err.Error()
	}
	return string(e.Op) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }
