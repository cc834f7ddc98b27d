package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/marcinbor85/gohex"
)

// ihexLineLength is the number of data bytes per Intel HEX record.
const ihexLineLength = 32

// readIHex returns the data of an Intel HEX file as contiguous segments
// ordered by address.
func readIHex(r io.Reader) ([]gohex.DataSegment, error) {
	mem := gohex.NewMemory()
	if err := mem.ParseIntelHex(r); err != nil {
		return nil, fmt.Errorf("ihex: %w", err)
	}
	return mem.GetDataSegments(), nil
}

// ihexImage collects chip contents for an Intel HEX dump.
type ihexImage struct {
	mem        *gohex.Memory
	skipErased bool
}

func newIHexImage(skipErased bool) *ihexImage {
	return &ihexImage{mem: gohex.NewMemory(), skipErased: skipErased}
}

// add stores a copy of p at addr. With skipErased, lines holding only 0xff
// are left out.
func (im *ihexImage) add(addr uint32, p []byte) error {
	if !im.skipErased {
		return im.mem.AddBinary(addr, append([]byte(nil), p...))
	}
	for i := 0; i < len(p); i += ihexLineLength {
		end := i + ihexLineLength
		if end > len(p) {
			end = len(p)
		}
		if isErased(p[i:end]) {
			continue
		}
		if err := im.mem.AddBinary(addr+uint32(i), append([]byte(nil), p[i:end]...)); err != nil {
			return err
		}
	}
	return nil
}

// dump writes the collected data followed by the end of file record.
func (im *ihexImage) dump(w io.Writer) error {
	return im.mem.DumpIntelHex(w, ihexLineLength)
}

func isErased(p []byte) bool {
	return len(bytes.Trim(p, "\xff")) == 0
}
