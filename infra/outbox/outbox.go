// Package outbox is a durable queue of trade messages between the engine
// and downstream publishers, stored in pebble.
//
// Records move NEW -> SENT -> ACKED and are deleted on ack. A record left
// SENT by a crash is offered again, so delivery is at least once.
package outbox

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// Outbox has a single appender; the rest of its methods are safe from
// any goroutine.
type Outbox struct {
	db     *pebble.DB
	seq    atomic.Uint64
	now    func() time.Time
	sync   *pebble.WriteOptions
	commit func(*pebble.Batch, *pebble.WriteOptions) error
}

type Option func(*options)

type options struct {
	fs     vfs.FS
	noSync bool
}

// WithFS replaces the filesystem, typically with vfs.NewMem in tests.
func WithFS(fs vfs.FS) Option {
	return func(o *options) { o.fs = fs }
}

// WithoutSync skips fsync on writes.
func WithoutSync() Option {
	return func(o *options) { o.noSync = true }
}

func Open(dir string, opts ...Option) (*Outbox, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	popts := &pebble.Options{}
	if o.fs != nil {
		popts.FS = o.fs
	}
	db, err := pebble.Open(dir, popts)
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}

	ob := &Outbox{db: db, now: time.Now, sync: pebble.Sync, commit: (*pebble.Batch).Commit}
	if o.noSync {
		ob.sync = pebble.NoSync
	}
	last, err := ob.lastSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	ob.seq.Store(last)
	return ob, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Append stores payloads as NEW records in one batch and returns the
// sequence assigned to the first. Sequences are taken only once the batch
// is committed, so a failed append leaves no gap.
func (o *Outbox) Append(payloads ...[]byte) (uint64, error) {
	if len(payloads) == 0 {
		return 0, nil
	}
	b := o.db.NewBatch()
	defer b.Close()

	last := o.seq.Load()
	first := last + 1
	for i, p := range payloads {
		rec := Record{State: StateNew, Payload: p}
		if err := b.Set(keyFor(first+uint64(i)), encodeRecord(rec), nil); err != nil {
			return 0, fmt.Errorf("outbox: stage: %w", err)
		}
	}
	if err := o.commit(b, o.sync); err != nil {
		return 0, fmt.Errorf("outbox: commit: %w", err)
	}
	o.seq.Store(last + uint64(len(payloads)))
	return first, nil
}

// Get returns the stored record. Acked and unknown sequences report
// pebble.ErrNotFound.
func (o *Outbox) Get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decodeRecord(seq, val)
}

// MarkSent records a delivery attempt.
func (o *Outbox) MarkSent(seq uint64) error {
	rec, err := o.Get(seq)
	if err != nil {
		return fmt.Errorf("outbox: mark sent %d: %w", seq, err)
	}
	rec.State = StateSent
	rec.Retries++
	rec.LastAttempt = o.now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(rec), o.sync)
}

// MarkAcked drops the record. Acking twice is not an error.
func (o *Outbox) MarkAcked(seq uint64) error {
	if err := o.db.Delete(keyFor(seq), o.sync); err != nil {
		return fmt.Errorf("outbox: ack %d: %w", seq, err)
	}
	return nil
}

// ScanPending visits every stored record in sequence order. Returning an
// error from fn stops the scan and is returned as is.
func (o *Outbox) ScanPending(fn func(Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec, err := decodeRecord(seq, iter.Value())
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// Pending counts stored records.
func (o *Outbox) Pending() (int, error) {
	n := 0
	err := o.ScanPending(func(Record) error { n++; return nil })
	return n, err
}

// LastSeq is the highest sequence handed out so far.
func (o *Outbox) LastSeq() uint64 { return o.seq.Load() }

func (o *Outbox) lastSeq() (uint64, error) {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefix),
		UpperBound: []byte(keyPrefix + "~"),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, iter.Error()
	}
	return parseKey(iter.Key())
}

// IsNotFound reports whether err means the record is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, pebble.ErrNotFound)
}
