package outbox

import (
	"errors"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchcore/engine"
)

func openMem(t *testing.T, fs vfs.FS) *Outbox {
	t.Helper()
	o, err := Open("outbox", WithFS(fs))
	require.NoError(t, err)
	return o
}

func TestAppendAndScan(t *testing.T) {
	o := openMem(t, vfs.NewMem())
	defer o.Close()

	first, err := o.Append([]byte("a"), []byte("b"))
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)
	next, err := o.Append([]byte("c"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, next)

	var got []string
	require.NoError(t, o.ScanPending(func(r Record) error {
		assert.Equal(t, StateNew, r.State)
		got = append(got, string(r.Payload))
		return nil
	}))
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestLifecycle(t *testing.T) {
	o := openMem(t, vfs.NewMem())
	defer o.Close()

	seq, err := o.Append([]byte("x"))
	require.NoError(t, err)

	require.NoError(t, o.MarkSent(seq))
	rec, err := o.Get(seq)
	require.NoError(t, err)
	assert.Equal(t, StateSent, rec.State)
	assert.EqualValues(t, 1, rec.Retries)
	assert.NotZero(t, rec.LastAttempt)

	require.NoError(t, o.MarkAcked(seq))
	require.NoError(t, o.MarkAcked(seq))
	_, err = o.Get(seq)
	assert.True(t, IsNotFound(err))

	n, err := o.Pending()
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.True(t, IsNotFound(o.MarkSent(seq)))
}

func TestSequenceSurvivesReopen(t *testing.T) {
	fs := vfs.NewMem()
	o := openMem(t, fs)
	_, err := o.Append([]byte("a"), []byte("b"))
	require.NoError(t, err)
	require.NoError(t, o.MarkSent(2))
	require.NoError(t, o.Close())

	o = openMem(t, fs)
	defer o.Close()
	assert.EqualValues(t, 2, o.LastSeq())

	seq, err := o.Append([]byte("c"))
	require.NoError(t, err)
	assert.EqualValues(t, 3, seq)

	rec, err := o.Get(2)
	require.NoError(t, err)
	assert.Equal(t, StateSent, rec.State, "unacked sends are retried after restart")
}

func TestFailedAppendLeavesNoGap(t *testing.T) {
	o := openMem(t, vfs.NewMem())
	defer o.Close()

	_, err := o.Append([]byte("a"))
	require.NoError(t, err)

	diskFull := errors.New("disk full")
	commit := o.commit
	o.commit = func(*pebble.Batch, *pebble.WriteOptions) error { return diskFull }
	_, err = o.Append([]byte("lost"), []byte("lost"))
	require.ErrorIs(t, err, diskFull)
	assert.EqualValues(t, 1, o.LastSeq())

	o.commit = commit
	seq, err := o.Append([]byte("b"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, seq)

	var got []uint64
	require.NoError(t, o.ScanPending(func(r Record) error {
		got = append(got, r.Seq)
		return nil
	}))
	assert.Equal(t, []uint64{1, 2}, got)
}

func TestScanStopsOnError(t *testing.T) {
	o := openMem(t, vfs.NewMem())
	defer o.Close()
	_, err := o.Append([]byte("a"), []byte("b"))
	require.NoError(t, err)

	stop := errors.New("stop")
	calls := 0
	err = o.ScanPending(func(Record) error { calls++; return stop })
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestRecordTrades(t *testing.T) {
	o := openMem(t, vfs.NewMem())
	defer o.Close()

	id := uuid.New()
	require.NoError(t, o.Record([]engine.Trade{
		{ID: id, Seq: 9, Symbol: "DEMO", BuyID: 1, SellID: 2, Price: 100.5, Qty: 3},
	}))

	rec, err := o.Get(1)
	require.NoError(t, err)
	msg, err := DecodeTrade(rec.Payload)
	require.NoError(t, err)
	assert.Equal(t, TradeMessage{V: 1, Seq: 9, TradeID: id, BuyID: 1, SellID: 2, Price: 100.5, Qty: 3, Symbol: "DEMO"}, msg)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := decodeRecord(1, []byte{0, 1})
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = decodeRecord(1, append([]byte{9}, make([]byte, 12)...))
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = parseKey([]byte("trade/abc"))
	assert.ErrorIs(t, err, ErrInvalidRecord)
	_, err = DecodeTrade([]byte(`{"v":2}`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
