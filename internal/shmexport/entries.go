package shmexport

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/ferroterm/ferroterm/internal/ferrors"
)

// Bounds on the variable-length fields of each entry kind. Entries
// longer than these are truncated before encoding rather than
// rejected.
const (
	MaxCommandLength    = 4096
	MaxWorkingDirLength = 1024
	MaxFilePathLength   = 1024
	MaxSliceContentLength = 16384
)

// CommandEntry records one executed command for the command-history
// ring. ExitCode is only meaningful when HasExitCode is true — a
// still-running command has neither.
type CommandEntry struct {
	Timestamp    time.Time
	Command      string
	WorkingDir   string
	HasExitCode  bool
	ExitCode     int32
	OutputLength int64
}

// FileSliceEntry records one rendered file excerpt for the file-slice
// ring, identifying the source file and the [StartLine, EndLine] range
// Content was taken from.
type FileSliceEntry struct {
	Timestamp time.Time
	FilePath  string
	StartLine int
	EndLine   int
	Content   string
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

// encodeCommand serializes e as length-prefixed fields followed by a
// trailing CRC32 over everything before it, the per-entry checksum a
// Reader validates before trusting the entry.
func encodeCommand(e CommandEntry) []byte {
	command := truncate(e.Command, MaxCommandLength)
	workingDir := truncate(e.WorkingDir, MaxWorkingDirLength)

	body := make([]byte, 0, 8+4+len(command)+4+len(workingDir)+1+4+8)
	var tmp [8]byte

	binary.LittleEndian.PutUint64(tmp[:8], uint64(e.Timestamp.UnixNano()))
	body = append(body, tmp[:8]...)

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(command)))
	body = append(body, tmp[:4]...)
	body = append(body, command...)

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(workingDir)))
	body = append(body, tmp[:4]...)
	body = append(body, workingDir...)

	if e.HasExitCode {
		body = append(body, 1)
	} else {
		body = append(body, 0)
	}
	binary.LittleEndian.PutUint32(tmp[:4], uint32(e.ExitCode))
	body = append(body, tmp[:4]...)

	binary.LittleEndian.PutUint64(tmp[:8], uint64(e.OutputLength))
	body = append(body, tmp[:8]...)

	checksum := crc32.ChecksumIEEE(body)
	binary.LittleEndian.PutUint32(tmp[:4], checksum)
	return append(body, tmp[:4]...)
}

func decodeCommand(buf []byte) (CommandEntry, error) {
	if len(buf) < 8+4 {
		return CommandEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeCommand", "entry shorter than fixed fields")
	}
	body := buf[:len(buf)-4]
	wantChecksum := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if crc32.ChecksumIEEE(body) != wantChecksum {
		return CommandEntry{}, ferrors.New(ferrors.ChecksumMismatch, "shmexport.decodeCommand", "entry checksum mismatch")
	}

	off := 0
	ts := int64(binary.LittleEndian.Uint64(body[off : off+8]))
	off += 8

	cmdLen := int(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	if off+cmdLen > len(body) {
		return CommandEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeCommand", "command length out of bounds")
	}
	command := string(body[off : off+cmdLen])
	off += cmdLen

	dirLen := int(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	if off+dirLen > len(body) {
		return CommandEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeCommand", "working dir length out of bounds")
	}
	workingDir := string(body[off : off+dirLen])
	off += dirLen

	if off+1+4+8 > len(body) {
		return CommandEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeCommand", "trailing fields out of bounds")
	}
	hasExitCode := body[off] != 0
	off++
	exitCode := int32(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	outputLength := int64(binary.LittleEndian.Uint64(body[off : off+8]))

	return CommandEntry{
		Timestamp:    time.Unix(0, ts),
		Command:      command,
		WorkingDir:   workingDir,
		HasExitCode:  hasExitCode,
		ExitCode:     exitCode,
		OutputLength: outputLength,
	}, nil
}

func encodeFileSlice(e FileSliceEntry) []byte {
	filePath := truncate(e.FilePath, MaxFilePathLength)
	content := truncate(e.Content, MaxSliceContentLength)

	body := make([]byte, 0, 8+4+len(filePath)+4+4+4+len(content))
	var tmp [8]byte

	binary.LittleEndian.PutUint64(tmp[:8], uint64(e.Timestamp.UnixNano()))
	body = append(body, tmp[:8]...)

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(filePath)))
	body = append(body, tmp[:4]...)
	body = append(body, filePath...)

	binary.LittleEndian.PutUint32(tmp[:4], uint32(e.StartLine))
	body = append(body, tmp[:4]...)
	binary.LittleEndian.PutUint32(tmp[:4], uint32(e.EndLine))
	body = append(body, tmp[:4]...)

	binary.LittleEndian.PutUint32(tmp[:4], uint32(len(content)))
	body = append(body, tmp[:4]...)
	body = append(body, content...)

	checksum := crc32.ChecksumIEEE(body)
	binary.LittleEndian.PutUint32(tmp[:4], checksum)
	return append(body, tmp[:4]...)
}

func decodeFileSlice(buf []byte) (FileSliceEntry, error) {
	if len(buf) < 8+4 {
		return FileSliceEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeFileSlice", "entry shorter than fixed fields")
	}
	body := buf[:len(buf)-4]
	wantChecksum := binary.LittleEndian.Uint32(buf[len(buf)-4:])
	if crc32.ChecksumIEEE(body) != wantChecksum {
		return FileSliceEntry{}, ferrors.New(ferrors.ChecksumMismatch, "shmexport.decodeFileSlice", "entry checksum mismatch")
	}

	off := 0
	ts := int64(binary.LittleEndian.Uint64(body[off : off+8]))
	off += 8

	pathLen := int(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	if off+pathLen > len(body) {
		return FileSliceEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeFileSlice", "file path length out of bounds")
	}
	filePath := string(body[off : off+pathLen])
	off += pathLen

	if off+4+4+4 > len(body) {
		return FileSliceEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeFileSlice", "line range out of bounds")
	}
	startLine := int(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	endLine := int(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4

	contentLen := int(binary.LittleEndian.Uint32(body[off : off+4]))
	off += 4
	if off+contentLen > len(body) {
		return FileSliceEntry{}, ferrors.New(ferrors.InvalidAccess, "shmexport.decodeFileSlice", "content length out of bounds")
	}
	content := string(body[off : off+contentLen])

	return FileSliceEntry{
		Timestamp: time.Unix(0, ts),
		FilePath:  filePath,
		StartLine: startLine,
		EndLine:   endLine,
		Content:   content,
	}, nil
}
