package stream

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

var lastBlockKey = []byte("last_block")

// Cursor persists the number of the last fully delivered block so a restarted
// session resumes where it stopped.
type Cursor struct {
	file string
	db   *leveldb.DB
}

// OpenCursor opens (or creates) the cursor database at file. An empty file
// keeps the cursor in memory.
func OpenCursor(file string) (*Cursor, error) {
	if file == "" {
		db, err := leveldb.Open(storage.NewMemStorage(), nil)
		if err != nil {
			return nil, err
		}
		return &Cursor{db: db}, nil
	}
	db, err := leveldb.OpenFile(file, &opt.Options{
		Filter: filter.NewBloomFilter(10),
	})
	if _, corrupted := err.(*lerrors.ErrCorrupted); corrupted {
		db, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Cursor{file: file, db: db}, nil
}

// Load returns 0 when no block has been recorded yet.
func (c *Cursor) Load() (uint32, error) {
	data, err := c.db.Get(lastBlockKey, nil)
	if err == leveldb.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, nil
	}
	return binary.BigEndian.Uint32(data), nil
}

func (c *Cursor) Save(blockNum uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], blockNum)
	return c.db.Put(lastBlockKey, buf[:], nil)
}

func (c *Cursor) FileName() string {
	return c.file
}

func (c *Cursor) Close() {
	_ = c.db.Close()
}
