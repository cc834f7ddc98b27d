package spimem

type halDebug struct {
	id   string
	l    Logger
	next HAL

	// recv holds the Transfer buffers of the open transaction. They are
	// dumped on Deselect, when their content is final.
	recv [][]byte
}

func (h *halDebug) Select() error {
	h.l.Printf("%5s >>  select", h.id)
	h.recv = h.recv[:0]
	err := h.next.Select()
	h.l.Printf("%5s <<  select %+v", h.id, err)
	return err
}

func (h *halDebug) Deselect() error {
	h.l.Printf("%5s >>  deselect", h.id)
	err := h.next.Deselect()
	h.l.Printf("%5s <<  deselect %+v", h.id, err)
	for _, p := range h.recv {
		h.l.Printf("%5s <<  recv(%d)", h.id, len(p))
		if len(p) > 0 {
			h.l.Printf("%s", hexDump(p))
		}
	}
	h.recv = h.recv[:0]
	return err
}

func (h *halDebug) Transfer(p []byte) error {
	h.l.Printf("%5s >>  xfer(%d)", h.id, len(p))
	err := h.next.Transfer(p)
	h.l.Printf("%5s <<  xfer %+v", h.id, err)
	h.recv = append(h.recv, p)
	return err
}

func (h *halDebug) Write(p []byte) error {
	h.l.Printf("%5s >>  send", h.id)
	if len(p) > 0 {
		h.l.Printf("%s", hexDump(p))
	}
	err := h.next.Write(p)
	h.l.Printf("%5s <<  send %+v", h.id, err)
	return err
}
