package clrmeta

import (
	"fmt"
	"io"
)

const (
	dosHeaderSize     = 64
	peHeaderSize      = 24 // signature + COFF file header
	sectionHeaderSize = 40
	cliDirectoryEntry = 14

	magicPE32     = 0x10b
	magicPE32Plus = 0x20b
)

// section is the part of a PE section header needed to map RVAs.
type section struct {
	virtualSize    uint32
	virtualAddress uint32
	rawSize        uint32
	rawOffset      uint32
}

// image is a PE file reduced to its CLI directory and section table.
// The COFF machine field is not checked: ReadyToRun assemblies store it
// XORed with an OS-specific value.
type image struct {
	r        io.ReaderAt
	size     int64
	machine  uint16
	cli      [2]uint32 // RVA, size
	sections []section
}

func parseImage(r io.ReaderAt, size int64) (*image, error) {
	img := &image{r: r, size: size}

	dos, err := img.readAt(0, dosHeaderSize)
	if err != nil || dos[0] != 'M' || dos[1] != 'Z' {
		return nil, fmt.Errorf("%w: missing MZ header", ErrNotPE)
	}

	peOff := int64(le.Uint32(dos[0x3c:]))
	fh, err := img.readAt(peOff, peHeaderSize)
	if err != nil || string(fh[:4]) != "PE\x00\x00" {
		return nil, fmt.Errorf("%w: missing PE signature", ErrNotPE)
	}
	img.machine = le.Uint16(fh[4:])
	numSections := int64(le.Uint16(fh[6:]))
	optSize := int64(le.Uint16(fh[20:]))

	opt, err := img.readAt(peOff+peHeaderSize, optSize)
	if err != nil || len(opt) < 2 {
		return nil, fmt.Errorf("%w: optional header", ErrTruncated)
	}

	var countOff, dirOff int
	switch magic := le.Uint16(opt); magic {
	case magicPE32:
		countOff, dirOff = 92, 96
	case magicPE32Plus:
		countOff, dirOff = 108, 112
	default:
		return nil, fmt.Errorf("%w: unknown optional header magic %#x", ErrNotPE, magic)
	}
	entry := dirOff + cliDirectoryEntry*8
	if countOff+4 <= len(opt) && le.Uint32(opt[countOff:]) > cliDirectoryEntry && entry+8 <= len(opt) {
		img.cli = [2]uint32{le.Uint32(opt[entry:]), le.Uint32(opt[entry+4:])}
	}

	table, err := img.readAt(peOff+peHeaderSize+optSize, numSections*sectionHeaderSize)
	if err != nil {
		return nil, fmt.Errorf("%w: section table", ErrTruncated)
	}
	for i := int64(0); i < numSections; i++ {
		h := table[i*sectionHeaderSize:]
		img.sections = append(img.sections, section{
			virtualSize:    le.Uint32(h[8:]),
			virtualAddress: le.Uint32(h[12:]),
			rawSize:        le.Uint32(h[16:]),
			rawOffset:      le.Uint32(h[20:]),
		})
	}
	return img, nil
}

// managed reports whether the image has a CLI header.
func (img *image) managed() bool {
	return img.cli[0] != 0 && img.cli[1] != 0
}

// readRVA maps a relative virtual address onto the raw data of the section
// containing it.
func (img *image) readRVA(rva, size uint32) ([]byte, error) {
	for _, s := range img.sections {
		span := max(s.virtualSize, s.rawSize)
		if rva < s.virtualAddress || uint64(rva) >= uint64(s.virtualAddress)+uint64(span) {
			continue
		}
		off := rva - s.virtualAddress
		if uint64(off)+uint64(size) > uint64(s.rawSize) {
			return nil, fmt.Errorf("%w: %d bytes at RVA %#x", ErrTruncated, size, rva)
		}
		buf, err := img.readAt(int64(s.rawOffset)+int64(off), int64(size))
		if err != nil {
			return nil, fmt.Errorf("%w: %d bytes at RVA %#x", ErrTruncated, size, rva)
		}
		return buf, nil
	}
	return nil, fmt.Errorf("RVA %#x not mapped by any section", rva)
}

// readAt reads n bytes at off, refusing ranges past the end of the file
// before allocating.
func (img *image) readAt(off, n int64) ([]byte, error) {
	if off < 0 || n < 0 || off+n > img.size {
		return nil, io.ErrUnexpectedEOF
	}
	buf := make([]byte, n)
	if _, err := img.r.ReadAt(buf, off); err != nil {
		return nil, err
	}
	return buf, nil
}
