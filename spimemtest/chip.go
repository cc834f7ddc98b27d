// Package spimemtest provides an in-memory 25-series SPI flash chip.
//
// A Chip implements the spimem HAL interface: it decodes the bytes clocked
// into it, answers reads from its memory array and executes program and
// erase commands when chip select is released.
package spimemtest

import (
	"errors"
	"fmt"
)

// Status register bits.
const (
	StatusBusy = 1 << 0
	StatusWEL  = 1 << 1
)

const (
	opPageProgram   = 0x02
	opRead          = 0x03
	opWriteDisable  = 0x04
	opReadStatus    = 0x05
	opWriteEnable   = 0x06
	opPageProgram4  = 0x12
	opRead4         = 0x13
	opSectorErase   = 0x20
	opSectorErase4  = 0x21
	opPageErase25AA = 0x42
	opReadSFDP      = 0x5a
	opChipErase60   = 0x60
	opReadJEDECID   = 0x9f
	opChipErase     = 0xc7
	opBlockErase    = 0xd8
	opBlockErase4   = 0xdc
)

// Config describes the simulated chip.
type Config struct {
	// ID is returned by READ JEDEC ID. The remaining bytes read as 0xFF.
	ID []byte
	// Capacity is the size of the memory array in bytes.
	Capacity int
	// PageSize is the PAGE PROGRAM wrap-around unit.
	PageSize int
	// SectorSize is erased by SECTOR ERASE and the 25AA PAGE ERASE.
	SectorSize int
	// BlockSize is erased by BLOCK ERASE.
	BlockSize int
	// AddressBytes is the address width of the 3-byte opcodes, 3 when zero.
	AddressBytes int
	// SFDP is returned by READ SFDP. Missing bytes read as 0xFF.
	SFDP []byte
}

// W25Q16 returns the configuration of a Winbond W25Q16 2 MiB flash.
func W25Q16() Config {
	return Config{
		ID:         []byte{0xef, 0x40, 0x15},
		Capacity:   2 << 20,
		PageSize:   256,
		SectorSize: 4 << 10,
		BlockSize:  64 << 10,
	}
}

// Transaction is the data sent to the chip between select and deselect.
type Transaction struct {
	Data []byte
}

// Opcode returns the first byte of the transaction.
func (t Transaction) Opcode() byte {
	if len(t.Data) == 0 {
		return 0
	}
	return t.Data[0]
}

// ErrNotSelected is returned by transfers outside of a transaction.
var ErrNotSelected = errors.New("spimemtest: chip not selected")

// Chip is an in-memory 25-series chip.
type Chip struct {
	// BusyPolls is the number of status reads reporting BUSY after each
	// program or erase command.
	BusyPolls int
	// IgnoreWriteEnable makes the chip ignore WRITE ENABLE, so the write
	// enable latch never sets.
	IgnoreWriteEnable bool
	// Fail is called before every HAL operation with "select", "deselect",
	// "transfer" or "write". A non-nil error fails the operation.
	Fail func(op string) error

	cfg      Config
	mem      []byte
	status   byte
	busy     int
	selected bool
	cur      []byte
	txs      []Transaction
}

// New returns an erased chip.
func New(cfg Config) *Chip {
	if cfg.AddressBytes == 0 {
		cfg.AddressBytes = 3
	}
	c := &Chip{
		cfg: cfg,
		mem: make([]byte, cfg.Capacity),
	}
	for i := range c.mem {
		c.mem[i] = 0xff
	}
	return c
}

// Memory returns the memory array. Changes are visible to the chip.
func (c *Chip) Memory() []byte { return c.mem }

// Status returns the status register.
func (c *Chip) Status() byte { return c.status }

// SetStatus overwrites the status register.
func (c *Chip) SetStatus(s byte) { c.status = s }

// Transactions returns the transactions recorded since the last Reset.
func (c *Chip) Transactions() []Transaction { return c.txs }

// Opcodes returns the opcode of every recorded transaction.
func (c *Chip) Opcodes() []byte {
	ops := make([]byte, len(c.txs))
	for i, t := range c.txs {
		ops[i] = t.Opcode()
	}
	return ops
}

// Reset forgets the recorded transactions.
func (c *Chip) Reset() { c.txs = nil }

func (c *Chip) fail(op string) error {
	if c.Fail == nil {
		return nil
	}
	return c.Fail(op)
}

// Select implements spimem.HAL.
func (c *Chip) Select() error {
	if err := c.fail("select"); err != nil {
		return err
	}
	if c.selected {
		return errors.New("spimemtest: chip already selected")
	}
	c.selected = true
	c.cur = nil
	return nil
}

// Deselect implements spimem.HAL. Program and erase commands execute here.
func (c *Chip) Deselect() error {
	if err := c.fail("deselect"); err != nil {
		return err
	}
	if !c.selected {
		return ErrNotSelected
	}
	c.selected = false
	c.txs = append(c.txs, Transaction{Data: c.cur})
	c.execute(c.cur)
	c.cur = nil
	return nil
}

// Transfer implements spimem.HAL.
func (c *Chip) Transfer(p []byte) error {
	if err := c.fail("transfer"); err != nil {
		return err
	}
	if !c.selected {
		return ErrNotSelected
	}
	for i, b := range p {
		p[i] = c.clock(b)
	}
	return nil
}

// Write implements spimem.HAL.
func (c *Chip) Write(p []byte) error {
	if err := c.fail("write"); err != nil {
		return err
	}
	if !c.selected {
		return ErrNotSelected
	}
	for _, b := range p {
		c.clock(b)
	}
	return nil
}

func (c *Chip) addrBytes(op byte) int {
	switch op {
	case opRead4, opPageProgram4, opSectorErase4, opBlockErase4:
		return 4
	case opReadSFDP:
		return 3
	case opRead, opPageProgram, opSectorErase, opPageErase25AA, opBlockErase:
		return c.cfg.AddressBytes
	default:
		return 0
	}
}

func address(b []byte) int {
	var a int
	for _, x := range b {
		a = a<<8 | int(x)
	}
	return a
}

// clock shifts in b and returns the byte shifted out at the same time.
func (c *Chip) clock(b byte) byte {
	i := len(c.cur)
	c.cur = append(c.cur, b)
	if i == 0 {
		return 0xff
	}

	op := c.cur[0]
	if c.busy > 0 && op != opReadStatus {
		return 0xff
	}
	n := c.addrBytes(op)
	switch op {
	case opReadStatus:
		if c.busy > 0 {
			c.busy--
			return c.status | StatusBusy
		}
		return c.status &^ StatusBusy
	case opReadJEDECID:
		if i-1 < len(c.cfg.ID) {
			return c.cfg.ID[i-1]
		}
		return 0xff
	case opRead, opRead4:
		if i <= n || len(c.mem) == 0 {
			return 0xff
		}
		a := address(c.cur[1:1+n]) + i - 1 - n
		return c.mem[a%len(c.mem)]
	case opReadSFDP:
		const dummy = 1
		if i <= n+dummy {
			return 0xff
		}
		a := address(c.cur[1:1+n]) + i - 1 - n - dummy
		if a < len(c.cfg.SFDP) {
			return c.cfg.SFDP[a]
		}
		return 0xff
	}
	return 0xff
}

// execute runs the command in tx after chip select was released.
func (c *Chip) execute(tx []byte) {
	if len(tx) == 0 || c.busy > 0 {
		return
	}
	op := tx[0]
	switch op {
	case opWriteEnable:
		if len(tx) == 1 && !c.IgnoreWriteEnable {
			c.status |= StatusWEL
		}
		return
	case opWriteDisable:
		if len(tx) == 1 {
			c.status &^= StatusWEL
		}
		return
	}

	n := c.addrBytes(op)
	var size int
	switch op {
	case opPageProgram, opPageProgram4:
		if len(tx) <= 1+n {
			return
		}
	case opSectorErase, opSectorErase4, opPageErase25AA:
		size = c.cfg.SectorSize
	case opBlockErase, opBlockErase4:
		size = c.cfg.BlockSize
	case opChipErase, opChipErase60:
		size = len(c.mem)
	default:
		return
	}
	if c.status&StatusWEL == 0 || len(tx) < 1+n {
		return
	}

	a := address(tx[1 : 1+n])
	if size == 0 {
		c.program(a, tx[1+n:])
	} else {
		c.erase(a, size)
	}
	c.status &^= StatusWEL
	c.busy = c.BusyPolls
}

// program ANDs data into the page at a, wrapping around within the page.
func (c *Chip) program(a int, data []byte) {
	if len(c.mem) == 0 {
		return
	}
	a %= len(c.mem)
	base := a - a%c.cfg.PageSize
	offset := a - base
	for i, b := range data {
		c.mem[base+(offset+i)%c.cfg.PageSize] &= b
	}
}

func (c *Chip) erase(a, size int) {
	if size <= 0 || len(c.mem) == 0 {
		return
	}
	a %= len(c.mem)
	base := a - a%size
	for i := base; i < base+size && i < len(c.mem); i++ {
		c.mem[i] = 0xff
	}
}

func (c *Chip) String() string {
	return fmt.Sprintf("spimemtest chip % X, %d bytes", c.cfg.ID, len(c.mem))
}
