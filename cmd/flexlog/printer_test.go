package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/flexapi/explorer/internal/model"
)

func TestPrinter_AppendsAndReprints(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	a := model.NewMessage("C1|info", false, start, start.Add(time.Second))
	b := model.NewMessage("R1|0|ok", true, start, start.Add(2*time.Second))
	c := model.NewMessage("S1|radio", true, start, start.Add(3*time.Second))

	var buf bytes.Buffer
	p := newPrinter(&buf)

	p.Publish([]model.Message{a})
	p.Publish([]model.Message{a, b})
	p.Publish([]model.Message{a, b})
	p.Publish([]model.Message{c})
	p.Publish(nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{
		"1.000000 -> C1|info",
		"2.000000 <- R1|0|ok",
		refilterBanner,
		"3.000000 <- S1|radio",
		refilterBanner,
	}, lines)
}
