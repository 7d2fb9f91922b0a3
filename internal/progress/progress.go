// Package progress implements the append-only progress log every dump and
// load run writes to, so an interrupted operation can be resumed from the
// last durably-recorded step instead of restarting from scratch.
package progress

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

// StepKind classifies one progress entry.
type StepKind string

const (
	StepPlan        StepKind = "plan"
	StepDDL         StepKind = "ddl"
	StepChunkStart  StepKind = "chunk-start"
	StepChunkDone   StepKind = "chunk-done"
	StepChunkFail   StepKind = "chunk-fail"
	StepIndexDefer  StepKind = "index-defer"
	StepIndexCreate StepKind = "index-create"
	StepFinalize    StepKind = "finalize"
)

// Outcome is the result recorded for a progress entry.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeRetriableFail Outcome = "retriable-fail"
	OutcomeFatal         Outcome = "fatal"
)

// Entry is one append-only progress-log record, per spec.md §3's Progress
// entry data model.
type Entry struct {
	Seq       int64     `json:"seq"`
	Kind      StepKind  `json:"kind"`
	StepKey   string    `json:"step_key"`
	Schema    string    `json:"schema,omitempty"`
	Table     string    `json:"table,omitempty"`
	ChunkIdx  int       `json:"chunk_index,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   Outcome   `json:"outcome"`
	Cause     string    `json:"cause,omitempty"`
}

// maxEntryBytes bounds a single record so one write() call always fits
// inside the atomic single-write guarantee spec.md §4.11 requires.
const maxEntryBytes = 4096

// Log is the single appender for one dump or load run's progress file.
// storage.Backend exposes only a truncating OpenWrite (no append handle,
// matching every backend's actual PUT/create semantics), so Log keeps the
// entry list in memory and recommits the whole length-prefixed stream on
// every Append — for an HTTP(S) PAR backend this is exactly the "full
// overwrite, last writer wins" semantics spec.md §4.11 calls for; for
// file/S3/Azure/OCI it is the same operation, just more conservative than
// strictly necessary. Writes are serialized behind mu.
type Log struct {
	mu      sync.Mutex
	backend storage.Backend
	path    string
	nextSeq int64
	entries []Entry
}

// DefaultFileName builds the default progressFile name, keyed by the
// server's UUID so concurrent dumps of different servers never collide.
func DefaultFileName(serverUUID string) string {
	if serverUUID == "" {
		serverUUID = uuid.NewString()
	}
	return "load-progress." + serverUUID + ".json"
}

// Open creates a fresh progress log at path on backend. Use Replay first
// and seed Log.entries via Reopen when resuming an interrupted run.
func Open(ctx context.Context, backend storage.Backend, path string) (*Log, error) {
	return &Log{backend: backend, path: path}, nil
}

// Reopen resumes an existing log: prior replays its entries so nextSeq and
// the in-memory copy continue from where the interrupted run left off.
func Reopen(ctx context.Context, backend storage.Backend, path string, prior []Entry) *Log {
	l := &Log{backend: backend, path: path, entries: append([]Entry(nil), prior...)}
	for _, e := range prior {
		if e.Seq > l.nextSeq {
			l.nextSeq = e.Seq
		}
	}
	return l
}

// Append durably records entry: fields Seq and Timestamp are filled in if
// zero. The full entry list, including entry, is committed as one
// length-prefixed JSON stream via backend.OpenWrite.
func (l *Log) Append(ctx context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextSeq++
	e.Seq = l.nextSeq
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	buf, err := json.Marshal(e)
	if err != nil {
		return shellerr.Wrap(shellerr.ArgumentError, "marshaling progress entry", err)
	}
	if len(buf) > maxEntryBytes {
		return shellerr.New(shellerr.PreconditionError, "progress entry exceeds 4KiB single-write bound")
	}

	l.entries = append(l.entries, e)
	return l.commitLocked(ctx)
}

func (l *Log) commitLocked(ctx context.Context) error {
	wc, err := l.backend.OpenWrite(ctx, l.path)
	if err != nil {
		return shellerr.Wrap(shellerr.PersistentIO, "committing progress log", err)
	}
	for _, e := range l.entries {
		buf, err := json.Marshal(e)
		if err != nil {
			wc.Close()
			return shellerr.Wrap(shellerr.ArgumentError, "marshaling progress entry", err)
		}
		if _, err := wc.Write(encodeRecord(buf)); err != nil {
			wc.Close()
			return shellerr.Wrap(shellerr.PersistentIO, "committing progress log", err)
		}
	}
	return wc.Close()
}

func encodeRecord(payload []byte) []byte {
	out := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(out, uint32(len(payload)))
	copy(out[4:], payload)
	return out
}

// ChunkDone satisfies internal/dumpsched.ProgressRecorder.
func (l *Log) ChunkDone(ctx context.Context, schema, table string, chunkIndex int) error {
	return l.Append(ctx, Entry{Kind: StepChunkDone, StepKey: chunkKey(schema, table, chunkIndex), Schema: schema, Table: table, ChunkIdx: chunkIndex, Outcome: OutcomeOK})
}

// ChunkRetriable satisfies internal/dumpsched.ProgressRecorder.
func (l *Log) ChunkRetriable(ctx context.Context, schema, table string, chunkIndex int, cause error) error {
	c := ""
	if cause != nil {
		c = cause.Error()
	}
	return l.Append(ctx, Entry{Kind: StepChunkFail, StepKey: chunkKey(schema, table, chunkIndex), Schema: schema, Table: table, ChunkIdx: chunkIndex, Outcome: OutcomeRetriableFail, Cause: c})
}

// StepDone satisfies internal/loadsched.ProgressRecorder.
func (l *Log) StepDone(ctx context.Context, stepID string) error {
	return l.Append(ctx, Entry{Kind: StepDDL, StepKey: stepID, Outcome: OutcomeOK})
}

func chunkKey(schema, table string, chunkIndex int) string {
	return schema + "." + table + "#" + itoa(chunkIndex)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Replay reads every well-formed entry from path, tolerating a truncated
// final record (the tail of a log whose writer crashed mid-write).
func Replay(ctx context.Context, backend storage.Backend, path string) ([]Entry, error) {
	rc, err := backend.OpenRead(ctx, path)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PersistentIO, "opening progress log for replay", err)
	}
	defer rc.Close()

	br := bufio.NewReader(rc)
	var entries []Entry
	for {
		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			break // EOF or truncated length prefix: stop, tolerate the tail
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(br, payload); err != nil {
			break // truncated payload: partial final entry, ignored per spec.md §4.11
		}
		var e Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			break
		}
		entries = append(entries, e)
	}
	return entries, nil
}
