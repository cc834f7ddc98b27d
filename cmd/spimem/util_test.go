package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/marcinbor85/gohex"
	"github.com/northvolt/go-spimem"
)

func TestPrettyHexIndent(t *testing.T) {
	testCases := []struct {
		name   string
		in     []byte
		prefix string
		space  string
		want   string
	}{
		{"empty", []byte{}, "  ", "", ""},
		{"one", []byte{0x00}, "  ", "", "  00"},
		{"two", []byte{0x00, 0x01}, "  ", "", "  00 01"},
		{"three", []byte{0x00, 0x01, 0x02}, "    ", "", "    00 01 02"},
		{
			"big", bytes.Repeat([]byte{0x00}, 32), "    ", "",
			"    00 00 00 00 00 00 00 00 00 00 00 00 00 00 00 00\n" +
				"    00 00 00 00 00 00 00 00 00 00 00 00 00 00 00 00",
		},
		{
			"space", bytes.Repeat([]byte{0x00}, 32), "    ", " ",
			"    00 00 00 00 00 00 00 00  00 00 00 00 00 00 00 00\n" +
				"    00 00 00 00 00 00 00 00  00 00 00 00 00 00 00 00",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := prettyHexIndent(tc.in, tc.prefix, tc.space)
			if got != tc.want {
				t.Errorf("want %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAddressedHex(t *testing.T) {
	got := addressedHex(0x100, bytes.Repeat([]byte{0xab}, 18))
	want := "00000100  AB AB AB AB AB AB AB AB  AB AB AB AB AB AB AB AB\n" +
		"00000110  AB AB"
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestParseAddress(t *testing.T) {
	testCases := []struct {
		in   string
		want uint32
		err  bool
	}{
		{"0", 0, false},
		{"1000", 0x1000, false},
		{"0x1000", 0x1000, false},
		{"0XFFFFFF", 0xffffff, false},
		{"100000000", 0, true},
		{"zz", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseAddress(tc.in)
			if (err != nil) != tc.err {
				t.Fatalf("got error %v", err)
			}
			if got != tc.want {
				t.Errorf("want 0x%x, got 0x%x", tc.want, got)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	testCases := []struct {
		in   string
		want int
		err  bool
	}{
		{"256", 256, false},
		{"0x100", 256, false},
		{"4k", 4096, false},
		{"64K", 65536, false},
		{"2M", 2 << 20, false},
		{"-1", 0, true},
		{"k", 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseSize(tc.in)
			if (err != nil) != tc.err {
				t.Fatalf("got error %v", err)
			}
			if got != tc.want {
				t.Errorf("want %d, got %d", tc.want, got)
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	geo, _ := spimem.GeometryByName("W25Q16")

	addr, n, err := parseRange(nil, geo)
	if err != nil || addr != 0 || n != 2<<20 {
		t.Errorf("whole chip: got 0x%x+%d, %v", addr, n, err)
	}
	addr, n, err = parseRange([]string{"1f0000"}, geo)
	if err != nil || addr != 0x1f0000 || n != 0x10000 {
		t.Errorf("to end: got 0x%x+%d, %v", addr, n, err)
	}
	if _, _, err = parseRange([]string{"1f0000", "128k"}, geo); err == nil {
		t.Error("expected out of bounds")
	}
	if _, _, err = parseRange([]string{"0", "1", "2"}, geo); err == nil {
		t.Error("expected too many arguments")
	}
}

func TestSectorSpan(t *testing.T) {
	geo, _ := spimem.GeometryByName("W25Q16")
	testCases := []struct {
		addr      uint32
		n         int
		wantStart uint32
		wantN     int
	}{
		{0x1000, 0, 0x1000, 0},
		{0x1000, 1, 0x1000, 0x1000},
		{0x1ff0, 0x20, 0x1000, 0x2000},
		{0x1ff000, 0x1000, 0x1ff000, 0x1000},
	}

	for _, tc := range testCases {
		start, n := sectorSpan(geo, tc.addr, tc.n)
		if start != tc.wantStart || n != tc.wantN {
			t.Errorf("0x%x+%d: got 0x%x+%d, want 0x%x+%d",
				tc.addr, tc.n, start, n, tc.wantStart, tc.wantN)
		}
	}
}

func TestParseHexData(t *testing.T) {
	got, err := parseHexData("de ad 0xbe EF")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]byte{0xde, 0xad, 0xbe, 0xef}, got); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
	if mismatch(got, []byte{0xde, 0xad, 0x00, 0xef}) != 2 {
		t.Error("wrong mismatch index")
	}
	if mismatch(got, got) != -1 {
		t.Error("equal data mismatch")
	}
}

func simConfig(t *testing.T, image []byte) *rootConfig {
	t.Helper()
	c := &rootConfig{iface: "sim", logLevel: "error", speed: defaultSpeed}
	if image != nil {
		c.simImage = filepath.Join(t.TempDir(), "image.bin")
		if err := os.WriteFile(c.simImage, image, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func TestInfoSim(t *testing.T) {
	var out, errOut bytes.Buffer
	c := &infoConfig{rootConfig: simConfig(t, nil), out: &out, err: &errOut, json: true}
	if err := c.Exec(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	var di deviceInfo
	if err := json.Unmarshal(out.Bytes(), &di); err != nil {
		t.Fatal(err)
	}
	want := deviceInfo{
		Name:         "Winbond W25Q16",
		JEDECID:      []byte{0xef, 0x40, 0x15},
		Manufacturer: "Winbond (bank 1) device 4015",
		Capacity:     2 << 20,
		PageSize:     256,
		SectorSize:   4 << 10,
		BlockSize:    64 << 10,
		AddressBytes: 3,
		Status:       "00000000",
	}
	if diff := cmp.Diff(want, di); diff != "" {
		t.Errorf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestDumpSim(t *testing.T) {
	image := []byte("hello, flash")
	var out, errOut bytes.Buffer
	c := &dumpConfig{
		rootConfig: simConfig(t, image),
		out:        &out,
		err:        &errOut,
		file:       "-",
		format:     "ihex",
		skipErased: true,
	}
	if err := c.Exec(context.Background(), []string{"0", "64k"}); err != nil {
		t.Fatal(err)
	}
	segs, err := readIHex(&out)
	if err != nil {
		t.Fatal(err)
	}
	want := append(append([]byte(nil), image...), bytes.Repeat([]byte{0xff}, 32-len(image))...)
	if diff := cmp.Diff([]gohex.DataSegment{{Address: 0, Data: want}}, segs); diff != "" {
		t.Errorf("dump mismatch (-want +got):\n%s", diff)
	}
}

func TestSumSim(t *testing.T) {
	var a, b, errOut bytes.Buffer
	for _, out := range []*bytes.Buffer{&a, &b} {
		c := &sumConfig{rootConfig: simConfig(t, []byte{1, 2, 3}), out: out, err: &errOut}
		if err := c.Exec(context.Background(), []string{"0", "4k"}); err != nil {
			t.Fatal(err)
		}
	}
	if a.Len() == 0 || a.String() != b.String() {
		t.Errorf("unstable digest %q, %q", a.String(), b.String())
	}
}
