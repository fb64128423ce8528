package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/relay-latch/internal/latch"
)

type nopCloser struct{ *bytes.Buffer }

func (nopCloser) Close() error { return nil }

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestAppendAndReadAll(t *testing.T) {
	var buf bytes.Buffer
	j := New(nopCloser{&buf})

	require.NoError(t, j.Append(latch.Event{Type: latch.EventOn, Level: latch.High, Armed: true, Expiry: 6000, Millis: 1000, At: at}))
	require.NoError(t, j.Append(latch.Event{Type: latch.EventUnlock, Level: latch.High, Millis: 6000, At: at.Add(5 * time.Second)}))

	recs, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "ON", recs[0].Event)
	assert.True(t, recs[0].Level)
	assert.True(t, recs[0].Armed)
	assert.Equal(t, uint32(6000), recs[0].Expiry)
	assert.True(t, recs[0].Timestamp.Equal(at))

	assert.Equal(t, "UNLOCK", recs[1].Event)
	assert.False(t, recs[1].Armed)
	assert.Equal(t, uint32(0), recs[1].Expiry)
}

func TestFromEventDropsStaleExpiry(t *testing.T) {
	rec := FromEvent(latch.Event{Type: latch.EventReset, Expiry: 1234, Armed: false})
	assert.Equal(t, uint32(0), rec.Expiry)
}

func TestAppendAfterCloseIsIgnored(t *testing.T) {
	var buf bytes.Buffer
	j := New(nopCloser{&buf})
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	require.NoError(t, j.Append(latch.Event{Type: latch.EventOn, At: at}))
	assert.Zero(t, buf.Len())
}

func TestReadAllTruncatedTail(t *testing.T) {
	var buf bytes.Buffer
	j := New(nopCloser{&buf})
	require.NoError(t, j.Append(latch.Event{Type: latch.EventOn, At: at}))
	require.NoError(t, j.Append(latch.Event{Type: latch.EventOff, At: at}))

	data := buf.Bytes()
	recs, err := ReadAll(bytes.NewReader(data[:len(data)-3]))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestOpenAppendsAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.cbor")

	for _, typ := range []latch.EventType{latch.EventOn, latch.EventReset} {
		j, err := Open(path)
		require.NoError(t, err)
		require.NoError(t, j.Append(latch.Event{Type: typ, At: at}))
		require.NoError(t, j.Close())
	}

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	recs, err := ReadAll(f)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "RESET", recs[1].Event)
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	j := New(nopCloser{&buf})
	require.NoError(t, j.Append(latch.Event{Type: latch.EventOn, Level: latch.High, Armed: true, Expiry: 6000, Millis: 1000, At: at}))

	var out strings.Builder
	require.NoError(t, Dump(&out, &buf))
	assert.Equal(t, "2026-03-01T12:00:00Z ON     d1=1 millis=1000 expiry=6000\n", out.String())
}
