package db

import "errors"

// ErrKeyNotFound is returned by single-key reads of a missing key.
var ErrKeyNotFound = errors.New("db: key not found")

// Op names the failing store operation in an Error.
const (
	OpPing   = "PING"
	OpGet    = "GET"
	OpMGet   = "MGET"
	OpSet    = "SET"
	OpDel    = "DEL"
	OpIncrBy = "INCRBY"
	OpExpire = "EXPIRE"
	OpScan   = "SCAN"
	OpHSetNX = "HSETNX"
	OpAppend = "RPUSH+LTRIM"
	OpLRange = "LRANGE"
)

// Error wraps a store failure with the operation name.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
