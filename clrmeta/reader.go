// Package clrmeta reads type declarations from the ECMA-335 metadata of a
// compiled .NET assembly.
//
// Only the parts of the metadata needed to enumerate declared types are
// decoded: the PE headers and section table, the CLI header, the metadata
// root, the #Strings heap and the Module, TypeRef and TypeDef tables.
package clrmeta

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	cliHeaderSize     = 72
	metadataSignature = 0x424A5342 // "BSJB"
	maxStreamName     = 32
)

// Metadata table numbers.
const (
	tableModule      = 0x00
	tableTypeRef     = 0x01
	tableTypeDef     = 0x02
	tableField       = 0x04
	tableMethodDef   = 0x06
	tableModuleRef   = 0x1A
	tableTypeSpec    = 0x1B
	tableAssemblyRef = 0x23
)

// HeapSizes flags from the tables stream header.
const (
	heapStringsWide = 0x01
	heapGUIDWide    = 0x02
	heapBlobWide    = 0x04
	heapExtraData   = 0x40
)

var le = binary.LittleEndian

var errBadIndex = errors.New("string index out of range")

// TypeDef is a single row of the TypeDef table.
type TypeDef struct {
	Namespace string
	Name      string
	Flags     uint32
}

// Module holds the types declared by an assembly's manifest module.
type Module struct {
	// Name is the module name recorded in the Module table.
	Name string
	// Types lists every TypeDef row that could be decoded.
	Types []TypeDef
	// Skipped counts TypeDef rows that could not be decoded.
	Skipped int
}

// Partial reports whether some declared types could not be read.
func (m *Module) Partial() bool {
	return m.Skipped > 0
}

// Open reads the metadata of the assembly at path.
func Open(path string) (*Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return Read(f, info.Size())
}

// Read decodes the metadata of an assembly image of the given size.
// Rows of the TypeDef table that cannot be decoded are counted in
// Module.Skipped instead of failing the whole read.
func Read(r io.ReaderAt, size int64) (*Module, error) {
	img, err := parseImage(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse PE image: %w", err)
	}
	if !img.managed() {
		return nil, ErrNotManaged
	}

	hdr, err := img.readRVA(img.cli[0], cliHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("read CLI header: %w", err)
	}

	meta, err := img.readRVA(le.Uint32(hdr[8:]), le.Uint32(hdr[12:]))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	streams, err := parseRoot(meta)
	if err != nil {
		return nil, err
	}

	tablesData, ok := streams["#~"]
	if !ok {
		tablesData, ok = streams["#-"]
	}
	if !ok {
		return nil, fmt.Errorf("%w: #~", ErrMissingStream)
	}
	heap, ok := streams["#Strings"]
	if !ok {
		return nil, fmt.Errorf("%w: #Strings", ErrMissingStream)
	}

	t, err := parseTables(tablesData)
	if err != nil {
		return nil, err
	}

	return t.module(heap), nil
}

// parseRoot decodes the metadata root and returns the stream contents by name.
func parseRoot(meta []byte) (map[string][]byte, error) {
	if len(meta) < 16 {
		return nil, fmt.Errorf("%w: metadata root", ErrTruncated)
	}
	if le.Uint32(meta) != metadataSignature {
		return nil, ErrBadSignature
	}

	pos := 16 + uint64(le.Uint32(meta[12:]))
	if pos+4 > uint64(len(meta)) {
		return nil, fmt.Errorf("%w: metadata version", ErrTruncated)
	}
	count := int(le.Uint16(meta[pos+2:]))
	pos += 4

	streams := make(map[string][]byte, count)
	for i := 0; i < count; i++ {
		if pos+8 > uint64(len(meta)) {
			return nil, fmt.Errorf("%w: stream header %d", ErrTruncated, i)
		}
		off := uint64(le.Uint32(meta[pos:]))
		size := uint64(le.Uint32(meta[pos+4:]))
		pos += 8

		rest := meta[pos:]
		if len(rest) > maxStreamName {
			rest = rest[:maxStreamName]
		}
		n := bytes.IndexByte(rest, 0)
		if n < 0 {
			return nil, fmt.Errorf("%w: stream name %d", ErrTruncated, i)
		}
		name := string(rest[:n])
		pos += align4(uint64(n) + 1)

		if off+size > uint64(len(meta)) {
			return nil, fmt.Errorf("%w: stream %s", ErrTruncated, name)
		}
		streams[name] = meta[off : off+size]
	}
	return streams, nil
}

func align4(n uint64) uint64 {
	return (n + 3) &^ 3
}

// tables is the decoded header of the #~ stream.
type tables struct {
	heapSizes byte
	rows      [64]uint32
	body      []byte
}

func parseTables(data []byte) (*tables, error) {
	if len(data) < 24 {
		return nil, fmt.Errorf("%w: tables header", ErrTruncated)
	}

	t := &tables{heapSizes: data[6]}
	valid := le.Uint64(data[8:])
	pos := 24
	for i := range t.rows {
		if valid&(1<<uint(i)) == 0 {
			continue
		}
		if pos+4 > len(data) {
			return nil, fmt.Errorf("%w: row counts", ErrTruncated)
		}
		t.rows[i] = le.Uint32(data[pos:])
		pos += 4
	}
	if t.heapSizes&heapExtraData != 0 {
		pos += 4
	}
	if pos > len(data) {
		return nil, fmt.Errorf("%w: tables header", ErrTruncated)
	}
	t.body = data[pos:]
	return t, nil
}

func (t *tables) stringIndex() int { return heapIndex(t.heapSizes, heapStringsWide) }
func (t *tables) guidIndex() int   { return heapIndex(t.heapSizes, heapGUIDWide) }

func heapIndex(sizes, flag byte) int {
	if sizes&flag != 0 {
		return 4
	}
	return 2
}

func (t *tables) simpleIndex(table int) int {
	if t.rows[table] < 1<<16 {
		return 2
	}
	return 4
}

func (t *tables) codedIndex(tagBits uint, candidates ...int) int {
	limit := uint32(1) << (16 - tagBits)
	for _, c := range candidates {
		if t.rows[c] >= limit {
			return 4
		}
	}
	return 2
}

func (t *tables) moduleRowSize() int {
	return 2 + t.stringIndex() + 3*t.guidIndex()
}

func (t *tables) typeRefRowSize() int {
	scope := t.codedIndex(2, tableModule, tableModuleRef, tableAssemblyRef, tableTypeRef)
	return scope + 2*t.stringIndex()
}

func (t *tables) typeDefRowSize() int {
	extends := t.codedIndex(2, tableTypeDef, tableTypeRef, tableTypeSpec)
	return 4 + 2*t.stringIndex() + extends + t.simpleIndex(tableField) + t.simpleIndex(tableMethodDef)
}

func (t *tables) module(heap []byte) *Module {
	m := &Module{}
	str := t.stringIndex()

	moduleRow := uint64(t.moduleRowSize())
	if t.rows[tableModule] > 0 && moduleRow <= uint64(len(t.body)) {
		if name, err := heapString(heap, readIndex(t.body[2:], str)); err == nil {
			m.Name = name
		}
	}

	start := uint64(t.rows[tableModule])*moduleRow + uint64(t.rows[tableTypeRef])*uint64(t.typeRefRowSize())
	row := uint64(t.typeDefRowSize())
	n := t.rows[tableTypeDef]
	for i := uint32(0); i < n; i++ {
		off := start + uint64(i)*row
		if off+row > uint64(len(t.body)) {
			m.Skipped += int(n - i)
			break
		}
		b := t.body[off : off+row]

		name, err := heapString(heap, readIndex(b[4:], str))
		if err != nil {
			m.Skipped++
			continue
		}
		ns, err := heapString(heap, readIndex(b[4+str:], str))
		if err != nil {
			m.Skipped++
			continue
		}
		m.Types = append(m.Types, TypeDef{Namespace: ns, Name: name, Flags: le.Uint32(b)})
	}
	return m
}

func readIndex(b []byte, size int) uint32 {
	if size == 4 {
		return le.Uint32(b)
	}
	return uint32(le.Uint16(b))
}

// heapString returns the NUL-terminated string at idx in the #Strings heap.
func heapString(heap []byte, idx uint32) (string, error) {
	if uint64(idx) >= uint64(len(heap)) {
		return "", fmt.Errorf("%w: %d", errBadIndex, idx)
	}
	end := bytes.IndexByte(heap[idx:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at %d", errBadIndex, idx)
	}
	return string(heap[idx : int(idx)+end]), nil
}
