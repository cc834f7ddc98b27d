package spimem

import (
	"fmt"
	"strings"
)

// Status is a snapshot of the status register.
//
//	Bits| Meaning
//	----+------------------------------------------------------
//	7   | SRWD: status register write disable
//	6:5 | chip specific (top/bottom, sector protect), passed through
//	4:2 | BP2-0: block protect
//	1   | WEL: write enable latch
//	0   | BUSY: erase or program in progress
type Status uint8

const (
	statusBusy    Status = 1 << 0
	statusWEL     Status = 1 << 1
	statusProtect Status = 0b0001_1100
	statusSRWD    Status = 1 << 7
)

// Busy reports whether an erase or program operation is in progress.
func (s Status) Busy() bool { return s&statusBusy != 0 }

// WriteEnabled reports whether the write enable latch is set.
func (s Status) WriteEnabled() bool { return s&statusWEL != 0 }

// Protect returns the block protect bits BP2-0.
func (s Status) Protect() uint8 { return uint8(s&statusProtect) >> 2 }

// WriteDisabled reports whether the status register is write protected.
func (s Status) WriteDisabled() bool { return s&statusSRWD != 0 }

func (s Status) String() string {
	b := fmt.Sprintf("%08b", uint8(s))
	var flags []string
	if s.WriteDisabled() {
		flags = append(flags, "SRWD")
	}
	if p := s.Protect(); p != 0 {
		flags = append(flags, fmt.Sprintf("BP=%d", p))
	}
	if s.WriteEnabled() {
		flags = append(flags, "WEL")
	}
	if s.Busy() {
		flags = append(flags, "BUSY")
	}
	if len(flags) == 0 {
		return b
	}
	return b + " " + strings.Join(flags, ",")
}
