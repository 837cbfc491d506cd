package shmexport

// Reader walks an export region's two rings oldest-to-newest,
// validating each entry's checksum as it goes and stopping at the
// first mismatch rather than skipping past it — matching spec.md's
// "readers validate per-entry checksums and stop on mismatch".
//
// Reader shares ring state with the Writer that produced it (see
// NewReader) rather than re-deriving write_pos/read_pos/entry_count
// from raw bytes, since an independent process reattaching to the
// region and recovering that live state is exactly the cross-process
// shared-memory transport the export contract leaves unspecified.
// OpenReader covers that external case with a best-effort slot scan
// instead.
type Reader struct {
	commands *ring
	files    *ring
}

// NewReader returns a Reader over the same rings w writes to. Calls
// to the Reader always observe w's latest state.
func NewReader(w *Writer) *Reader {
	return &Reader{commands: w.commands, files: w.files}
}

// ReadCommands returns every retained command-history entry,
// oldest first. If a later entry's checksum fails to validate, the
// entries decoded before it are returned alongside the error.
func (r *Reader) ReadCommands() ([]CommandEntry, error) {
	raw := r.commands.entries()
	out := make([]CommandEntry, 0, len(raw))
	for _, payload := range raw {
		entry, err := decodeCommand(payload)
		if err != nil {
			return out, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// ReadFileSlices returns every retained file-slice entry, oldest
// first, with the same stop-on-mismatch behavior as ReadCommands.
func (r *Reader) ReadFileSlices() ([]FileSliceEntry, error) {
	raw := r.files.entries()
	out := make([]FileSliceEntry, 0, len(raw))
	for _, payload := range raw {
		entry, err := decodeFileSlice(payload)
		if err != nil {
			return out, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// OpenReader decodes region's header and returns a Reader over fresh
// ring views of its two ring byte ranges. Unlike NewReader, this does
// not share a Writer's live ring positions — it's the path an external
// reader reattaching to the region from scratch would take — so it
// recovers entries by scanning every slot in on-disk order and
// decoding the ones with a non-zero length prefix, stopping at the
// first checksum failure it encounters in that scan order. Region
// must be the same byte slice (or an exact copy of it) a Writer laid
// out with NewWriter.
func OpenReader(region []byte) (*Reader, error) {
	header, err := DecodeHeader(region)
	if err != nil {
		return nil, err
	}
	commands, err := newRing(region[header.CommandRing.Offset:header.CommandRing.Offset+header.CommandRing.Size], commandSlotSize)
	if err != nil {
		return nil, err
	}
	files, err := newRing(region[header.FileRing.Offset:header.FileRing.Offset+header.FileRing.Size], fileSlotSize)
	if err != nil {
		return nil, err
	}
	// A freshly attached ring has no recollection of how many slots
	// are populated, so treat the whole ring as in-window and let
	// entries() skip the unwritten (zero length-prefix) slots itself.
	commands.entryCount.Store(uint64(commands.capacity))
	files.entryCount.Store(uint64(files.capacity))
	return &Reader{commands: commands, files: files}, nil
}
