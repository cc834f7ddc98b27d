package spimem

import "testing"

func TestStatus(t *testing.T) {
	testCases := []struct {
		s         Status
		busy, wel bool
		protect   uint8
		srwd      bool
		str       string
	}{
		{0x00, false, false, 0, false, "00000000"},
		{0x01, true, false, 0, false, "00000001 BUSY"},
		{0x02, false, true, 0, false, "00000010 WEL"},
		{0x03, true, true, 0, false, "00000011 WEL,BUSY"},
		{0x1c, false, false, 7, false, "00011100 BP=7"},
		{0x60, false, false, 0, false, "01100000"},
		{0x86, false, true, 1, true, "10000110 SRWD,BP=1,WEL"},
	}

	for _, tc := range testCases {
		t.Run(tc.str, func(t *testing.T) {
			if got := tc.s.Busy(); got != tc.busy {
				t.Errorf("Busy() = %v, want %v", got, tc.busy)
			}
			if got := tc.s.WriteEnabled(); got != tc.wel {
				t.Errorf("WriteEnabled() = %v, want %v", got, tc.wel)
			}
			if got := tc.s.Protect(); got != tc.protect {
				t.Errorf("Protect() = %d, want %d", got, tc.protect)
			}
			if got := tc.s.WriteDisabled(); got != tc.srwd {
				t.Errorf("WriteDisabled() = %v, want %v", got, tc.srwd)
			}
			if got := tc.s.String(); got != tc.str {
				t.Errorf("String() = %q, want %q", got, tc.str)
			}
		})
	}
}
