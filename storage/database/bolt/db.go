package boltrepos

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/trezcool/markbook/core"
)

var (
	usersBucket       = []byte("users")
	usernamesBucket   = []byte("usernames") // username -> user ID
	coursesBucket     = []byte("courses")
	assignmentsBucket = []byte("assignments")

	allBuckets = [][]byte{usersBucket, usernamesBucket, coursesBucket, assignmentsBucket}

	errTxNotWritable = errors.New("bolt: write inside a read-only transaction")
)

type txKey struct{}

// DB is a bbolt file holding all markbook data.
// Writes are serialized by bbolt (one writer at a time); reads run concurrently.
type DB struct {
	bolt *bbolt.DB
}

// Open opens (or creates) the bolt file at path and makes sure all buckets exist.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating data directory")
	}
	bdb, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.Wrap(err, "opening bolt file")
	}

	err = bdb.Update(func(tx *bbolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = bdb.Close()
		return nil, errors.Wrap(err, "creating buckets")
	}
	return &DB{bolt: bdb}, nil
}

func (db *DB) Close() error {
	return db.bolt.Close()
}

// Path returns the path of the underlying file.
func (db *DB) Path() string {
	return db.bolt.Path()
}

// RunInTx runs fn in a read-write bolt transaction carried by the context given to fn.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := txFrom(ctx); tx != nil && tx.Writable() {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return checkOpen(db.bolt.Update(func(tx *bbolt.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	}))
}

// checkOpen turns the error of a closed database into a shutdown error.
func checkOpen(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return core.NewShutdownError("bolt database is closed")
	}
	return err
}

func txFrom(ctx context.Context) *bbolt.Tx {
	tx, _ := ctx.Value(txKey{}).(*bbolt.Tx)
	return tx
}

// view runs fn in the context transaction, or in a new read-only one.
func (db *DB) view(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		return fn(tx)
	}
	return checkOpen(db.bolt.View(fn))
}

// update runs fn in the context transaction, or in a new read-write one.
func (db *DB) update(ctx context.Context, fn func(tx *bbolt.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		if !tx.Writable() {
			return errTxNotWritable
		}
		return fn(tx)
	}
	return checkOpen(db.bolt.Update(fn))
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// nextID returns the next sequence number of bucket b.
func nextID(b *bbolt.Bucket) (int64, error) {
	seq, err := b.NextSequence()
	if err != nil {
		return 0, errors.Wrap(err, "generating ID")
	}
	return int64(seq), nil
}

func put(b *bbolt.Bucket, id int64, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	return b.Put(itob(id), data)
}

// get decodes the record id of bucket b into v. found is false if there is no such record.
func get(b *bbolt.Bucket, id int64, v interface{}) (found bool, err error) {
	data := b.Get(itob(id))
	if data == nil {
		return false, nil
	}
	if err = json.Unmarshal(data, v); err != nil {
		return false, errors.Wrap(err, "decoding record")
	}
	return true, nil
}
