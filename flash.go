package spimem

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/northvolt/go-spimem/sfdp"
)

// Dev is a 25-series SPI NOR flash or EEPROM chip.
//
// A Dev is not safe for concurrent use. It owns the HAL for its lifetime but
// never closes it.
type Dev struct {
	hal HAL
	cfg IfaceConfig
	geo Geometry
	enc commandEncoder
	log Logger
}

// New returns a new device using the supplied HAL for communication.
//
// The geometry is taken from cfg, or detected from the JEDEC ID and SFDP
// tables. New fails if the chip is busy or has its write enable latch set.
func New(ctx context.Context, hal HAL, cfg IfaceConfig) (*Dev, error) {
	d := &Dev{
		hal: hal,
		cfg: cfg,
		log: getLogger(cfg),
	}
	d.hal = &halDebug{id: "flash", l: getLogger(cfg), next: d.hal}
	if err := d.init(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if d.cfg.Geometry != nil {
		d.geo = *d.cfg.Geometry
	} else {
		geo, err := d.detect(ctx)
		if err != nil {
			return err
		}
		d.geo = geo
	}
	if err := d.geo.Validate(); err != nil {
		return err
	}
	d.enc = newCommandEncoder(&d.geo)
	d.log.Printf("spimem: %s", d.geo)

	st, err := d.readStatus()
	if err != nil {
		return err
	}
	if st.Busy() || st.WriteEnabled() {
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, st)
	}
	return nil
}

// detect looks up the JEDEC ID among the known chips and falls back to the
// SFDP basic parameter table.
func (d *Dev) detect(ctx context.Context) (Geometry, error) {
	id, err := d.ReadJEDECID(ctx)
	if err != nil {
		return Geometry{}, err
	}
	if geo, ok := LookupGeometry(id); ok {
		return geo, nil
	}

	s, err := d.SFDP(ctx)
	if err != nil {
		if errors.Is(err, ErrTransport) {
			return Geometry{}, err
		}
		return Geometry{}, fmt.Errorf("%w: JEDEC ID %s: %v", ErrUnknownDevice, id, err)
	}
	geo, err := GeometryFromSFDP(s)
	if err != nil {
		return Geometry{}, fmt.Errorf("%w: JEDEC ID %s: %v", ErrUnknownDevice, id, err)
	}
	geo.Name = fmt.Sprintf("%s %02X%02X", ManufacturerName(id.Manufacturer()), id[1], id[2])
	return geo, nil
}

// Geometry returns the geometry of the chip.
func (d *Dev) Geometry() Geometry {
	return d.geo
}

// Read reads len(p) bytes starting at addr in a single READ transaction.
//
// A zero length read still sends the READ command and address.
func (d *Dev) Read(ctx context.Context, addr uint32, p []byte) error {
	if err := d.geo.checkRange(addr, len(p)); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.execute(newReadCommand(&d.geo, addr), p)
}

// Write programs p starting at addr.
//
// The data is split at page boundaries and every page is programmed with its
// own write enable, PAGE PROGRAM and busy wait. Flash can only clear bits;
// erase the range first unless the chip is an EEPROM.
//
// A zero length write only validates addr.
func (d *Dev) Write(ctx context.Context, addr uint32, p []byte) error {
	if err := d.geo.checkRange(addr, len(p)); err != nil {
		return err
	}
	return d.program(ctx, addr, p)
}

// EraseSector erases the sector at addr, which must be sector aligned.
func (d *Dev) EraseSector(ctx context.Context, addr uint32) error {
	if err := d.geo.checkAligned(addr, d.geo.SectorSize); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.modify(ctx, newSectorEraseCommand(&d.geo, addr))
}

// EraseBlock erases the block at addr, which must be block aligned.
func (d *Dev) EraseBlock(ctx context.Context, addr uint32) error {
	if err := d.geo.checkAligned(addr, d.geo.BlockSize); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.modify(ctx, newBlockEraseCommand(&d.geo, addr))
}

// EraseAll erases the whole chip.
func (d *Dev) EraseAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.modify(ctx, newChipEraseCommand())
}

// Erase erases n bytes at addr. Both must be sector aligned.
//
// Whole aligned blocks are erased with EraseBlock, the rest sector by sector.
func (d *Dev) Erase(ctx context.Context, addr uint32, n int) error {
	if err := d.geo.checkAligned(addr, d.geo.SectorSize); err != nil {
		return err
	}
	if n < 0 || n%d.geo.SectorSize != 0 {
		return fmt.Errorf("%w: length %d is not a multiple of %d", ErrAlignment, n, d.geo.SectorSize)
	}
	if err := d.geo.checkRange(addr, n); err != nil {
		return err
	}

	end := int64(addr) + int64(n)
	for a := int64(addr); a < end; {
		if err := ctx.Err(); err != nil {
			return err
		}
		block := int64(d.geo.BlockSize)
		if a%block == 0 && a+block <= end {
			if err := d.modify(ctx, newBlockEraseCommand(&d.geo, uint32(a))); err != nil {
				return err
			}
			a += block
			continue
		}
		if err := d.modify(ctx, newSectorEraseCommand(&d.geo, uint32(a))); err != nil {
			return err
		}
		a += int64(d.geo.SectorSize)
	}
	return nil
}

// ReadStatus reads the status register.
func (d *Dev) ReadStatus(ctx context.Context) (Status, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return d.readStatus()
}

// WriteDisable clears the write enable latch.
func (d *Dev) WriteDisable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.execute(newWriteDisableCommand(), nil)
}

// ReadJEDECID returns the manufacturer, memory type and capacity bytes as
// sent by the chip.
func (d *Dev) ReadJEDECID(ctx context.Context) (JEDECID, error) {
	var id JEDECID
	if err := ctx.Err(); err != nil {
		return id, err
	}
	err := d.execute(newReadJEDECIDCommand(), id[:jedecIDSize])
	return id, err
}

// ReadIdentification reads an extended JEDEC identification, which also
// covers manufacturers outside of the first JEP106 bank.
func (d *Dev) ReadIdentification(ctx context.Context) (Identification, error) {
	if err := ctx.Err(); err != nil {
		return Identification{}, err
	}
	var buf [identificationSize]byte
	if err := d.execute(newReadJEDECIDCommand(), buf[:]); err != nil {
		return Identification{}, err
	}
	return ParseIdentification(buf[:])
}

// ReadSFDP reads len(p) bytes of the SFDP area starting at addr.
func (d *Dev) ReadSFDP(ctx context.Context, addr uint32, p []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.execute(newReadSFDPCommand(addr), p)
}

// SFDP reads and parses the SFDP header and parameter tables.
func (d *Dev) SFDP(ctx context.Context) (*sfdp.SFDP, error) {
	return sfdp.Parse(&sfdpReader{ctx, d})
}

type sfdpReader struct {
	ctx context.Context
	d   *Dev
}

func (r *sfdpReader) SFDPReadAt(offset uint32, out []byte) error {
	return r.d.ReadSFDP(r.ctx, offset, out)
}

// ReaderAt returns an io.ReaderAt reading the chip.
func (d *Dev) ReaderAt(ctx context.Context) io.ReaderAt {
	return &readerAt{ctx, d}
}

type readerAt struct {
	ctx context.Context
	d   *Dev
}

func (r *readerAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("%w: negative offset %d", ErrOutOfBounds, off)
	}
	capacity := r.d.geo.Capacity
	if off >= capacity {
		return 0, io.EOF
	}
	n := len(p)
	if off+int64(n) > capacity {
		n = int(capacity - off)
	}
	if err := r.d.Read(r.ctx, uint32(off), p[:n]); err != nil {
		return 0, err
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// WriterAt returns an io.WriterAt programming the chip.
//
// Writes extending beyond the chip fail without writing anything.
func (d *Dev) WriterAt(ctx context.Context) io.WriterAt {
	return &writerAt{ctx, d}
}

type writerAt struct {
	ctx context.Context
	d   *Dev
}

func (w *writerAt) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= w.d.geo.Capacity {
		return 0, fmt.Errorf("%w: offset %d", ErrOutOfBounds, off)
	}
	if err := w.d.Write(w.ctx, uint32(off), p); err != nil {
		return 0, err
	}
	return len(p), nil
}
