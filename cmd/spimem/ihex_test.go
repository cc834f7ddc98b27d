package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/marcinbor85/gohex"
)

func TestIHexRoundTrip(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i * 7)
	}

	im := newIHexImage(false)
	if err := im.add(0xff00, data); err != nil {
		t.Fatal(err)
	}
	if err := im.add(0x20000, []byte{0xaa}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := im.dump(&buf); err != nil {
		t.Fatal(err)
	}

	segs, err := readIHex(&buf)
	if err != nil {
		t.Fatal(err)
	}
	want := []gohex.DataSegment{
		{Address: 0xff00, Data: data},
		{Address: 0x20000, Data: []byte{0xaa}},
	}
	if diff := cmp.Diff(want, segs); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestIHexSkipErased(t *testing.T) {
	data := bytes.Repeat([]byte{0xff}, 3*ihexLineLength)
	data[0] = 0x01
	data[2*ihexLineLength] = 0x02

	im := newIHexImage(true)
	if err := im.add(0x1000, data); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := im.dump(&buf); err != nil {
		t.Fatal(err)
	}

	segs, err := readIHex(&buf)
	if err != nil {
		t.Fatal(err)
	}
	want := []gohex.DataSegment{
		{Address: 0x1000, Data: data[:ihexLineLength]},
		{Address: 0x1000 + 2*ihexLineLength, Data: data[2*ihexLineLength:]},
	}
	if diff := cmp.Diff(want, segs); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestReadIHexErrors(t *testing.T) {
	testCases := []struct {
		name string
		in   string
	}{
		{"no start code", "0100000042BD\n:00000001FF\n"},
		{"bad checksum", ":0100000042BE\n:00000001FF\n"},
		{"not hex", ":01000000ZZBD\n:00000001FF\n"},
		{"no eof", ":0100000042BD\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := readIHex(strings.NewReader(tc.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}
