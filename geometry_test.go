package spimem

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGeometryValidate(t *testing.T) {
	valid := Geometry{
		AddressBytes: 3,
		Capacity:     1 << 20,
		PageSize:     256,
		SectorSize:   4096,
		BlockSize:    65536,
	}
	if err := valid.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, g := range knownGeometries() {
		if err := g.Validate(); err != nil {
			t.Errorf("%s: %v", g.Name, err)
		}
	}
	if err := Microchip25AA1024.Validate(); err != nil {
		t.Error(err)
	}

	testCases := []struct {
		name   string
		modify func(g *Geometry)
	}{
		{"no address", func(g *Geometry) { g.AddressBytes = 0 }},
		{"wide address", func(g *Geometry) { g.AddressBytes = 5 }},
		{"no page", func(g *Geometry) { g.PageSize = 0 }},
		{"sector not page multiple", func(g *Geometry) { g.SectorSize = 1000 }},
		{"block not sector multiple", func(g *Geometry) { g.BlockSize = 6000 }},
		{"capacity not block multiple", func(g *Geometry) { g.Capacity = 100000 }},
		{"capacity too large", func(g *Geometry) { g.Capacity = 1 << 25 }},
		{"negative capacity", func(g *Geometry) { g.Capacity = -65536 }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g := valid
			tc.modify(&g)
			if err := g.Validate(); !errors.Is(err, ErrGeometry) {
				t.Errorf("got %v, want %v", err, ErrGeometry)
			}
		})
	}
}

func TestGeometryChecks(t *testing.T) {
	g := Geometry{
		AddressBytes: 3,
		Capacity:     64 << 10,
		PageSize:     256,
		SectorSize:   4 << 10,
		BlockSize:    16 << 10,
	}

	testCases := []struct {
		name string
		err  error
		got  error
	}{
		{"in range", nil, g.checkRange(0, 64<<10)},
		{"empty at last byte", nil, g.checkRange(64<<10-1, 0)},
		{"empty at end", ErrOutOfBounds, g.checkRange(64<<10, 0)},
		{"past end", ErrOutOfBounds, g.checkRange(64<<10-1, 2)},
		{"aligned", nil, g.checkAligned(0xf000, g.SectorSize)},
		{"misaligned", ErrAlignment, g.checkAligned(0xf001, g.SectorSize)},
		{"misaligned block", ErrAlignment, g.checkAligned(0xf000, g.BlockSize)},
		{"aligned past end", ErrOutOfBounds, g.checkAligned(0x10000, g.SectorSize)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if !errors.Is(tc.got, tc.err) || (tc.err == nil) != (tc.got == nil) {
				t.Errorf("got %v, want %v", tc.got, tc.err)
			}
		})
	}
}

func TestPageChunks(t *testing.T) {
	g := Geometry{PageSize: 256}

	testCases := []struct {
		name string
		addr uint32
		n    int
		want []chunk
	}{
		{"empty", 0x100, 0, nil},
		{"within page", 0x110, 16, []chunk{{0x110, 0, 16}}},
		{"full page", 0x200, 256, []chunk{{0x200, 0, 256}}},
		{
			"split", 0xf0, 300,
			[]chunk{{0xf0, 0, 16}, {0x100, 16, 256}, {0x200, 272, 28}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := g.pageChunks(tc.addr, tc.n)
			if diff := cmp.Diff(tc.want, got, cmp.AllowUnexported(chunk{})); diff != "" {
				t.Errorf("chunks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLookupGeometry(t *testing.T) {
	g, ok := LookupGeometry(JEDECID{0xef, 0x40, 0x18})
	if !ok {
		t.Fatal("W25Q128 not found")
	}
	if g.Capacity != 16<<20 || g.AddressBytes != 3 {
		t.Errorf("unexpected geometry %s", g)
	}
	g, ok = LookupGeometry(JEDECID{0xef, 0x40, 0x19})
	if !ok || g.AddressBytes != 4 {
		t.Errorf("W25Q256 should use 4 address bytes: %s", g)
	}
	if _, ok := LookupGeometry(JEDECID{0xff, 0xff, 0xff}); ok {
		t.Error("erased ID found")
	}
}

func TestGeometryByName(t *testing.T) {
	for _, name := range []string{"Winbond W25Q64", "w25q64", "W25Q64"} {
		g, ok := GeometryByName(name)
		if !ok || g.Capacity != 8<<20 {
			t.Errorf("%q: got %s, %v", name, g, ok)
		}
	}
	if g, ok := GeometryByName("25aa1024"); !ok || g.SectorErase != opPageErase25AA {
		t.Errorf("25AA1024: got %s, %v", g, ok)
	}
	if _, ok := GeometryByName("W25Q9999"); ok {
		t.Error("unknown name found")
	}
}

func TestManufacturerName(t *testing.T) {
	if got := ManufacturerName(0xef); got != "Winbond" {
		t.Errorf("got %q", got)
	}
	if got := ManufacturerName(0x00); got != "unknown" {
		t.Errorf("got %q", got)
	}
}
