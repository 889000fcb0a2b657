package main

import "sync"

// opKind enumerates the operations Stats counts individually.
type opKind int

const (
	opGet opKind = iota
	opSet
	opAdd
	opReplace
	opAppend
	opPrepend
	opDelete
	numOps
)

// Stats holds process-wide counters updated by the connection handlers and
// read back by the CLI and logging layer. All fields are guarded by mu; a
// snapshot returned by Snapshot is a defensive copy safe to read without
// further locking.
type Stats struct {
	mu            sync.Mutex
	ops           [numOps]uint64
	bytesRead     uint64
	bytesWritten  uint64
	connections   uint64
	totalAccepted uint64
}

// NewStats returns a zeroed Stats.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) incr(op opKind) {
	s.mu.Lock()
	s.ops[op]++
	s.mu.Unlock()
}

func (s *Stats) addBytesRead(n uint64) {
	s.mu.Lock()
	s.bytesRead += n
	s.mu.Unlock()
}

func (s *Stats) addBytesWritten(n uint64) {
	s.mu.Lock()
	s.bytesWritten += n
	s.mu.Unlock()
}

func (s *Stats) connectionOpened() {
	s.mu.Lock()
	s.connections++
	s.totalAccepted++
	s.mu.Unlock()
}

func (s *Stats) connectionClosed() {
	s.mu.Lock()
	s.connections--
	s.mu.Unlock()
}

// Snapshot is a point-in-time defensive copy of the counters.
type Snapshot struct {
	Gets, Sets, Adds, Replaces, Appends, Prepends, Deletes uint64
	BytesRead, BytesWritten                                uint64
	Connections, TotalAccepted                             uint64
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Gets:          s.ops[opGet],
		Sets:          s.ops[opSet],
		Adds:          s.ops[opAdd],
		Replaces:      s.ops[opReplace],
		Appends:       s.ops[opAppend],
		Prepends:      s.ops[opPrepend],
		Deletes:       s.ops[opDelete],
		BytesRead:     s.bytesRead,
		BytesWritten:  s.bytesWritten,
		Connections:   s.connections,
		TotalAccepted: s.totalAccepted,
	}
}
