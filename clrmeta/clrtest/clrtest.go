// Package clrtest builds minimal .NET assembly images for tests.
//
// The images are PE32 files with a single section holding a CLI header and
// a metadata root with #~ and #Strings streams. Only the Module, TypeRef and
// TypeDef tables are emitted, which is all clrmeta needs to enumerate types.
package clrtest

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	sectionRVA     = 0x2000
	sectionOffset  = 0x200
	peHeaderOffset = 0x40
	optHeaderSize  = 224
	cliHeaderSize  = 72
)

// COFF machine values.
const (
	MachineI386 = 0x14c
	// MachineReadyToRunLinuxAMD64 is how ReadyToRun images built for
	// linux-x64 record their machine: AMD64 XORed with the Linux OS value.
	MachineReadyToRunLinuxAMD64 = 0x8664 ^ 0x7B79
)

// Type describes a TypeDef row to emit.
type Type struct {
	Namespace string
	Name      string
	// Broken makes the row's namespace index point past the end of the
	// #Strings heap so the reader cannot decode it.
	Broken bool
}

// Assembly describes the image to build.
type Assembly struct {
	ModuleName string
	Types      []Type
	// TypeRefs emits TypeRef rows (references to types of other
	// assemblies) ahead of the TypeDef table.
	TypeRefs []Type
	// Machine overrides the COFF machine field (default MachineI386).
	Machine uint16
	// WideStrings emits 4-byte #Strings heap indices.
	WideStrings bool
	// ExtraData sets the HeapSizes extra-data bit and its 4 trailing bytes.
	ExtraData bool
}

// Types returns one class per namespace, named after its position.
func Types(namespaces ...string) []Type {
	out := make([]Type, 0, len(namespaces))
	for i, ns := range namespaces {
		out = append(out, Type{Namespace: ns, Name: "Type" + string(rune('A'+i%26))})
	}
	return out
}

// Bytes renders the assembly as a PE image.
func (a Assembly) Bytes() []byte {
	meta := a.metadata()

	section := new(bytes.Buffer)
	cli := make([]byte, cliHeaderSize)
	putU32(cli[0:], cliHeaderSize)
	putU16(cli[4:], 2)
	putU16(cli[6:], 5)
	putU32(cli[8:], sectionRVA+cliHeaderSize)
	putU32(cli[12:], uint32(len(meta)))
	putU32(cli[16:], 1) // ILONLY
	section.Write(cli)
	section.Write(meta)
	pad(section, 0x200)

	img := make([]byte, sectionOffset)
	img[0], img[1] = 'M', 'Z'
	putU32(img[0x3c:], peHeaderOffset)
	copy(img[peHeaderOffset:], "PE\x00\x00")

	fh := img[peHeaderOffset+4:]
	machine := a.Machine
	if machine == 0 {
		machine = MachineI386
	}
	putU16(fh[0:], machine)
	putU16(fh[2:], 1)
	putU16(fh[16:], optHeaderSize)
	putU16(fh[18:], 0x2102)

	oh := fh[20:]
	putU16(oh[0:], 0x10b) // PE32
	putU32(oh[28:], 0x400000)
	putU32(oh[32:], 0x2000)
	putU32(oh[36:], 0x200)
	putU32(oh[56:], sectionRVA+uint32(section.Len()))
	putU32(oh[60:], sectionOffset)
	putU32(oh[92:], 16)
	dirs := oh[96:]
	putU32(dirs[14*8:], sectionRVA)
	putU32(dirs[14*8+4:], cliHeaderSize)

	sh := oh[optHeaderSize:]
	copy(sh[0:8], ".text")
	putU32(sh[8:], uint32(section.Len()))
	putU32(sh[12:], sectionRVA)
	putU32(sh[16:], uint32(section.Len()))
	putU32(sh[20:], sectionOffset)
	putU32(sh[36:], 0x60000020)

	return append(img, section.Bytes()...)
}

// WriteFile writes the assembly into dir and returns its path.
func (a Assembly) WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, a.Bytes(), 0644); err != nil {
		t.Fatalf("write assembly: %v", err)
	}
	return path
}

// Write is shorthand for an assembly with one type per namespace.
func Write(t testing.TB, dir, name string, namespaces ...string) string {
	t.Helper()
	return Assembly{ModuleName: name, Types: Types(namespaces...)}.WriteFile(t, dir, name)
}

func (a Assembly) metadata() []byte {
	heap := new(bytes.Buffer)
	heap.WriteByte(0)
	offsets := map[string]uint32{"": 0}
	intern := func(s string) uint32 {
		if off, ok := offsets[s]; ok {
			return off
		}
		off := uint32(heap.Len())
		heap.WriteString(s)
		heap.WriteByte(0)
		offsets[s] = off
		return off
	}

	moduleName := intern(a.ModuleName)
	type row struct{ name, ns uint32 }
	refs := make([]row, 0, len(a.TypeRefs))
	for _, typ := range a.TypeRefs {
		refs = append(refs, row{name: intern(typ.Name), ns: intern(typ.Namespace)})
	}
	rows := make([]row, 0, len(a.Types)+1)
	rows = append(rows, row{name: intern("<Module>")})
	for _, typ := range a.Types {
		rows = append(rows, row{name: intern(typ.Name), ns: intern(typ.Namespace)})
	}
	pad(heap, 4)
	for i, typ := range a.Types {
		if typ.Broken {
			rows[i+1].ns = uint32(heap.Len() + 16)
		}
	}

	writeStr := writeU16Index
	var heapSizes byte
	if a.WideStrings {
		writeStr = writeU32
		heapSizes |= 0x01
	}
	if a.ExtraData {
		heapSizes |= 0x40
	}

	tbl := new(bytes.Buffer)
	hdr := make([]byte, 24)
	hdr[4] = 2
	hdr[6] = heapSizes
	hdr[7] = 1
	valid := uint64(1<<0 | 1<<2)
	if len(refs) > 0 {
		valid |= 1 << 1
	}
	binary.LittleEndian.PutUint64(hdr[8:], valid)
	tbl.Write(hdr)
	writeU32(tbl, 1)
	if len(refs) > 0 {
		writeU32(tbl, uint32(len(refs)))
	}
	writeU32(tbl, uint32(len(rows)))
	if a.ExtraData {
		writeU32(tbl, 0)
	}

	// Module: Generation, Name, Mvid, EncId, EncBaseId
	writeU16(tbl, 0)
	writeStr(tbl, moduleName)
	writeU16(tbl, 0)
	writeU16(tbl, 0)
	writeU16(tbl, 0)

	// TypeRef: ResolutionScope (AssemblyRef 1), TypeName, TypeNamespace
	for _, r := range refs {
		writeU16(tbl, 1<<2|2)
		writeStr(tbl, r.name)
		writeStr(tbl, r.ns)
	}

	// TypeDef: Flags, TypeName, TypeNamespace, Extends, FieldList, MethodList
	var extends uint16
	if len(refs) > 0 {
		extends = 1<<2 | 1 // TypeRef 1
	}
	for _, r := range rows {
		writeU32(tbl, 0x00100001)
		writeStr(tbl, r.name)
		writeStr(tbl, r.ns)
		writeU16(tbl, extends)
		writeU16(tbl, 1)
		writeU16(tbl, 1)
	}
	pad(tbl, 4)

	version := "v4.0.30319"
	versionLen := (len(version) + 1 + 3) &^ 3

	streamHeaders := []struct {
		name string
		data []byte
	}{
		{"#~", tbl.Bytes()},
		{"#Strings", heap.Bytes()},
	}

	headerLen := 16 + versionLen + 4
	for _, s := range streamHeaders {
		headerLen += 8 + (len(s.name)+1+3)&^3
	}

	out := new(bytes.Buffer)
	writeU32(out, 0x424A5342)
	writeU16(out, 1)
	writeU16(out, 1)
	writeU32(out, 0)
	writeU32(out, uint32(versionLen))
	out.WriteString(version)
	out.Write(make([]byte, versionLen-len(version)))
	writeU16(out, 0)
	writeU16(out, uint16(len(streamHeaders)))

	offset := headerLen
	for _, s := range streamHeaders {
		writeU32(out, uint32(offset))
		writeU32(out, uint32(len(s.data)))
		out.WriteString(s.name)
		out.WriteByte(0)
		pad(out, 4)
		offset += len(s.data)
	}
	for _, s := range streamHeaders {
		out.Write(s.data)
	}
	return out.Bytes()
}

// NotManaged returns a valid PE image that carries no CLI header.
func NotManaged() []byte {
	img := Assembly{}.Bytes()
	dirs := img[peHeaderOffset+4+20+96:]
	putU32(dirs[14*8:], 0)
	putU32(dirs[14*8+4:], 0)
	return img
}

// BadSignature returns an image whose metadata root signature is corrupt.
func BadSignature() []byte {
	img := Assembly{}.Bytes()
	copy(img[sectionOffset+cliHeaderSize:], strings.Repeat("X", 4))
	return img
}

// OversizedMetadata returns an image whose section and CLI header claim far
// more metadata than the file holds.
func OversizedMetadata() []byte {
	img := Assembly{}.Bytes()
	sh := img[peHeaderOffset+4+20+optHeaderSize:]
	putU32(sh[8:], 0x7FFF0000)
	putU32(sh[16:], 0x7FFF0000)
	putU32(img[sectionOffset+12:], 0x7FFE0000)
	return img
}

func pad(b *bytes.Buffer, align int) {
	for b.Len()%align != 0 {
		b.WriteByte(0)
	}
}

func putU16(b []byte, v uint16) { binary.LittleEndian.PutUint16(b, v) }
func putU32(b []byte, v uint32) { binary.LittleEndian.PutUint32(b, v) }

func writeU16(b *bytes.Buffer, v uint16) {
	var buf [2]byte
	putU16(buf[:], v)
	b.Write(buf[:])
}

func writeU16Index(b *bytes.Buffer, v uint32) {
	writeU16(b, uint16(v))
}

func writeU32(b *bytes.Buffer, v uint32) {
	var buf [4]byte
	putU32(buf[:], v)
	b.Write(buf[:])
}
