// Package id provides centralized ID generation for the server.
//
// Two formats are in use:
//   - ULIDs for trace and span identifiers: lexicographically sortable, so log
//     lines for one request or connection sort by time.
//   - UUIDv4 for connection identifiers: opaque and unguessable, since a
//     connection id is the ownership key for every session it creates.
//
// Session identifiers are not generated here. They are chosen by the client
// (one per window) and only validated by the server.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// ConnID identifies one duplex connection
type ConnID string

// TraceID identifies a trace (an HTTP request or a websocket connection)
type TraceID string

// SpanID identifies one span within a trace
type SpanID string

const (
	ConnPrefix  = "conn"
	TracePrefix = "trace"
	SpanPrefix  = "span"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand, made monotonic
// so that ids minted in the same millisecond still sort in creation order
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewConnID generates a new connection ID
func NewConnID() ConnID {
	return ConnID(ConnPrefix + "_" + uuid.NewString())
}

// NewTraceID generates a new trace ID
func NewTraceID() TraceID {
	return TraceID(Default().GenerateWithPrefix(TracePrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

func (id ConnID) String() string  { return string(id) }
func (id TraceID) String() string { return string(id) }
func (id SpanID) String() string  { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the timestamp from a ULID
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
