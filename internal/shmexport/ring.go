package shmexport

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

// slotOverhead is the 4-byte length prefix preceding each slot's entry
// bytes.
const slotOverhead = 4

// ring is a fixed-capacity circular buffer of slots over a shared
// []byte region. write_pos/read_pos/entry_count/crc32 are the atomic
// fields spec.md's ring buffer layout names; they live as Go atomics
// here rather than as bytes inside buf, since the actual cross-process
// memory-sharing transport is out of scope and a reader in this
// package always shares the Go process with (or has already decoded
// from) the writer.
//
// Grounded on the evict-oldest-on-full shape internal/scrollbuf.Buffer
// uses for bounded history, adapted to a preallocated fixed-size ring
// of fixed-size slots instead of a growable slice, since this ring's
// layout must be describable by a RingDescriptor{Offset, Size}.
type ring struct {
	mu       sync.Mutex
	buf      []byte
	slotSize int
	capacity int

	writePos   atomic.Uint64 // next slot index to write, monotonically increasing
	readPos    atomic.Uint64 // oldest valid slot index, monotonically increasing
	entryCount atomic.Uint64
	crc32      atomic.Uint32 // checksum trailer of the most recently written entry
}

func newRing(buf []byte, slotSize int) (*ring, error) {
	if slotSize <= slotOverhead {
		return nil, ferrors.New(ferrors.InvalidAccess, "shmexport.newRing", "slot size too small to hold any entry")
	}
	capacity := len(buf) / slotSize
	if capacity < 1 {
		return nil, ferrors.New(ferrors.InvalidAccess, "shmexport.newRing", "ring region smaller than one slot")
	}
	return &ring{buf: buf, slotSize: slotSize, capacity: capacity}, nil
}

// write stores entry (already length- and checksum-encoded) into the
// next slot, advancing read_pos over the oldest entry first if the
// ring is already at capacity.
func (r *ring) write(entry []byte) error {
	if len(entry) > r.slotSize-slotOverhead {
		return ferrors.New(ferrors.InvalidAccess, "shmexport.ring.write", "encoded entry exceeds slot capacity")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.writePos.Load() % uint64(r.capacity)
	slot := r.buf[int(idx)*r.slotSize : (int(idx)+1)*r.slotSize]

	binary.LittleEndian.PutUint32(slot[:slotOverhead], uint32(len(entry)))
	copy(slot[slotOverhead:], entry)
	for i := slotOverhead + len(entry); i < len(slot); i++ {
		slot[i] = 0
	}

	r.writePos.Add(1)
	if r.entryCount.Load() >= uint64(r.capacity) {
		r.readPos.Add(1)
	} else {
		r.entryCount.Add(1)
	}
	r.crc32.Store(binary.LittleEndian.Uint32(entry[len(entry)-4:]))
	return nil
}

// entries returns the raw slot payloads from oldest to newest
// currently retained, without decoding them.
func (r *ring) entries() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := int(r.entryCount.Load())
	read := r.readPos.Load()
	out := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		idx := (read + uint64(i)) % uint64(r.capacity)
		slot := r.buf[int(idx)*r.slotSize : (int(idx)+1)*r.slotSize]
		n := binary.LittleEndian.Uint32(slot[:slotOverhead])
		if n == 0 {
			continue // unwritten slot
		}
		if int(n) > r.slotSize-slotOverhead {
			continue // corrupt length prefix; skip rather than panic on slice bounds
		}
		payload := make([]byte, n)
		copy(payload, slot[slotOverhead:slotOverhead+int(n)])
		out = append(out, payload)
	}
	return out
}
