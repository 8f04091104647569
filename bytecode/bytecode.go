// Package bytecode reads and writes nilan's on-disk compiled-program
// format (SPEC_FULL.md §6.2): a fixed "NILN" magic, a version byte, the
// string pool, the constant pool, and the assembled instruction stream,
// each length-prefixed and little-endian via encoding/binary.
//
// informatter-nilan's own DumpBytecode only ever wrote the raw
// instruction bytes as a hex string — no magic, no version, no string
// pool or constant pool alongside it, so a dumped file could never be
// reloaded and run on its own. This format closes that gap: a .nic file
// is now a self-contained unit the `emit`/`run` subcommands can write
// and read back without the original source.
package bytecode

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic identifies a nilan compiled-bytecode file.
var Magic = [4]byte{'N', 'I', 'L', 'N'}

// Version is the current on-disk format version.
const Version uint8 = 1

// FormatError reports a malformed or unsupported bytecode file.
type FormatError struct {
	Message string
}

func (e FormatError) Error() string {
	return fmt.Sprintf("💥 bytecode: %s", e.Message)
}

// Write serializes consts, stringPool, and code to w in the §6.2
// layout: magic, version, string pool (u32 count, per string u32
// length + UTF-8 bytes), consts (u32 length + raw bytes), code (u32
// length + raw bytes).
func Write(w io.Writer, consts []byte, stringPool []string, code []byte) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, Version); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(stringPool))); err != nil {
		return err
	}
	for _, s := range stringPool {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		if _, err := io.WriteString(w, s); err != nil {
			return err
		}
	}
	if err := writeLengthPrefixed(w, consts); err != nil {
		return err
	}
	return writeLengthPrefixed(w, code)
}

func writeLengthPrefixed(w io.Writer, data []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// Read parses a file written by Write, returning its consts,
// stringPool, and code.
func Read(r io.Reader) (consts []byte, stringPool []string, code []byte, err error) {
	var magic [4]byte
	if _, err = io.ReadFull(r, magic[:]); err != nil {
		return nil, nil, nil, err
	}
	if magic != Magic {
		return nil, nil, nil, FormatError{Message: "bad magic, not a nilan bytecode file"}
	}

	var version uint8
	if err = binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, nil, nil, err
	}
	if version != Version {
		return nil, nil, nil, FormatError{Message: fmt.Sprintf("unsupported format version %d", version)}
	}

	var poolCount uint32
	if err = binary.Read(r, binary.LittleEndian, &poolCount); err != nil {
		return nil, nil, nil, err
	}
	stringPool = make([]string, poolCount)
	for i := range stringPool {
		var n uint32
		if err = binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, nil, nil, err
		}
		buf := make([]byte, n)
		if _, err = io.ReadFull(r, buf); err != nil {
			return nil, nil, nil, err
		}
		stringPool[i] = string(buf)
	}

	if consts, err = readLengthPrefixed(r); err != nil {
		return nil, nil, nil, err
	}
	if code, err = readLengthPrefixed(r); err != nil {
		return nil, nil, nil, err
	}
	return consts, stringPool, code, nil
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
