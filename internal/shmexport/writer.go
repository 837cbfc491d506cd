package shmexport

import (
	"github.com/gofrs/flock"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

// Default slot sizes, sized to the bounds in entries.go plus encoding
// overhead. Callers laying out a region size it as
// commandCapacity*commandSlotSize + fileCapacity*fileSlotSize, plus
// headerEncodedSize for the header itself.
const (
	commandSlotSize = 8 + 4 + MaxCommandLength + 4 + MaxWorkingDirLength + 1 + 4 + 8 + 4 + slotOverhead
	fileSlotSize    = 8 + 4 + MaxFilePathLength + 4 + 4 + 4 + MaxSliceContentLength + 4 + slotOverhead
)

// Writer appends entries to an export region's command-history and
// file-slice rings, serializing concurrent writers — in this process
// via an internal mutex (see ring.mu), and across processes via an
// advisory file lock — around each append.
//
// The advisory lock is the region's single-writer guarantee: spec.md
// names writer-advances-on-full as the only way entries are ever
// evicted, which only holds if at most one writer is ever advancing
// read_pos at a time.
type Writer struct {
	lock     *flock.Flock
	commands *ring
	files    *ring
	header   Header
}

// NewWriter lays out a fresh export region of the given capacities
// over region, writes its header, and returns a Writer bound to it.
// lockPath names the advisory lock file guarding cross-process writer
// exclusion; it need not exist yet.
func NewWriter(lockPath string, region []byte, commandCapacity, fileCapacity int) (*Writer, error) {
	commandRingSize := commandCapacity * commandSlotSize
	fileRingSize := fileCapacity * fileSlotSize
	totalSize := uint64(headerEncodedSize + commandRingSize + fileRingSize)
	if len(region) < int(totalSize) {
		return nil, ferrors.New(ferrors.InvalidAccess, "shmexport.NewWriter", "region smaller than header plus both rings")
	}

	commandRing := RingDescriptor{Offset: headerEncodedSize, Size: uint64(commandRingSize)}
	fileRing := RingDescriptor{Offset: headerEncodedSize + uint64(commandRingSize), Size: uint64(fileRingSize)}
	header := NewHeader(totalSize, commandRing, fileRing)
	header.Encode(region[:headerEncodedSize])

	commands, err := newRing(region[commandRing.Offset:commandRing.Offset+commandRing.Size], commandSlotSize)
	if err != nil {
		return nil, err
	}
	files, err := newRing(region[fileRing.Offset:fileRing.Offset+fileRing.Size], fileSlotSize)
	if err != nil {
		return nil, err
	}

	return &Writer{
		lock:     flock.New(lockPath),
		commands: commands,
		files:    files,
		header:   header,
	}, nil
}

// WriteCommand appends a command-history entry, evicting the oldest
// entry first if the ring is already full.
func (w *Writer) WriteCommand(e CommandEntry) error {
	if err := w.lock.Lock(); err != nil {
		return ferrors.Wrap(ferrors.InvalidAccess, "shmexport.Writer.WriteCommand", "acquiring writer lock", err)
	}
	defer w.lock.Unlock()

	return w.commands.write(encodeCommand(e))
}

// WriteFileSlice appends a file-slice entry, evicting the oldest entry
// first if the ring is already full.
func (w *Writer) WriteFileSlice(e FileSliceEntry) error {
	if err := w.lock.Lock(); err != nil {
		return ferrors.Wrap(ferrors.InvalidAccess, "shmexport.Writer.WriteFileSlice", "acquiring writer lock", err)
	}
	defer w.lock.Unlock()

	return w.files.write(encodeFileSlice(e))
}

// Header returns the header this Writer laid out. Readers opening the
// same region independently decode their own copy via DecodeHeader
// rather than trusting this one, but tests and in-process readers can
// use it directly.
func (w *Writer) Header() Header { return w.header }
