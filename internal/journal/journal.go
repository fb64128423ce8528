// Package journal appends latch events to a CBOR file.
//
// The journal is history only. It is never read back to restore the output
// or the latch timer.
package journal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/sweeney/relay-latch/internal/latch"
)

// Record is one journal entry. Integer keys keep the file compact.
type Record struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Event     string    `cbor:"2,keyasint"`
	Level     bool      `cbor:"3,keyasint"`
	Armed     bool      `cbor:"4,keyasint,omitempty"`
	Expiry    uint32    `cbor:"5,keyasint,omitempty"`
	Millis    uint32    `cbor:"6,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("journal: cbor decoder mode: %v", err))
	}
}

// FromEvent converts a controller event to a Record.
func FromEvent(e latch.Event) Record {
	r := Record{
		Timestamp: e.At,
		Event:     string(e.Type),
		Level:     bool(e.Level),
		Armed:     e.Armed,
		Millis:    uint32(e.Millis),
	}
	if e.Armed {
		r.Expiry = uint32(e.Expiry)
	}
	return r
}

// Journal appends records to a writer. It is safe for concurrent use.
type Journal struct {
	mu     sync.Mutex
	w      io.WriteCloser
	enc    *cbor.Encoder
	closed bool
}

// Open opens path for appending, creating it with mode 0644 if needed.
func Open(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return New(f), nil
}

// New wraps w. Close closes w.
func New(w io.WriteCloser) *Journal {
	return &Journal{w: w, enc: encMode.NewEncoder(w)}
}

// Append writes the event. Calls after Close are ignored.
func (j *Journal) Append(e latch.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	return j.enc.Encode(FromEvent(e))
}

// Close closes the underlying writer. It is safe to call more than once.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	return j.w.Close()
}

// ReadAll decodes every record in r. A truncated final record, as left by a
// power cut mid-write, ends the read without an error.
func ReadAll(r io.Reader) ([]Record, error) {
	dec := decMode.NewDecoder(r)
	var out []Record
	for {
		var rec Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("decode record %d: %w", len(out), err)
		}
		out = append(out, rec)
	}
}

// Dump writes the records in r as text lines to w.
func Dump(w io.Writer, r io.Reader) error {
	recs, err := ReadAll(r)
	for _, rec := range recs {
		lvl := "0"
		if rec.Level {
			lvl = "1"
		}
		line := fmt.Sprintf("%s %-6s d1=%s millis=%d", rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.Event, lvl, rec.Millis)
		if rec.Armed {
			line += fmt.Sprintf(" expiry=%d", rec.Expiry)
		}
		if _, werr := fmt.Fprintln(w, line); werr != nil {
			return werr
		}
	}
	return err
}
