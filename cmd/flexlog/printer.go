package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/flexapi/explorer/internal/model"
)

const refilterBanner = "--- filter changed ---"

// printer writes the visible set incrementally. When the new set does not
// extend the printed one (a re-filter or clear) it prints a banner and the
// whole set again.
type printer struct {
	mu      sync.Mutex
	w       io.Writer
	printed []string
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w}
}

func (p *printer) Publish(visible []model.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := len(p.printed)
	if !p.extends(visible) {
		fmt.Fprintln(p.w, refilterBanner)
		p.printed = p.printed[:0]
		start = 0
	}
	for _, m := range visible[start:] {
		fmt.Fprintf(p.w, "%s %s %s\n", m.IntervalString(), m.Direction(), m.Text)
		p.printed = append(p.printed, m.ID)
	}
}

func (p *printer) extends(visible []model.Message) bool {
	if len(visible) < len(p.printed) {
		return false
	}
	for i, id := range p.printed {
		if visible[i].ID != id {
			return false
		}
	}
	return true
}
