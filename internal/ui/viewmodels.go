package ui

import (
	"fmt"
	"sort"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/data/binding"

	"github.com/flexapi/explorer/internal/model"
)

// MessagesViewModel mirrors the log's visible set
type MessagesViewModel struct {
	items binding.UntypedList
	count binding.String
}

// NewMessagesViewModel creates an empty view-model
func NewMessagesViewModel() *MessagesViewModel {
	vm := &MessagesViewModel{
		items: binding.NewUntypedList(),
		count: binding.NewString(),
	}
	vm.set(nil)
	return vm
}

// Publish is the msglog publisher. It may be called from any goroutine.
func (vm *MessagesViewModel) Publish(msgs []model.Message) {
	fyne.Do(func() { vm.set(msgs) })
}

func (vm *MessagesViewModel) set(msgs []model.Message) {
	items := make([]interface{}, len(msgs))
	for i, m := range msgs {
		items[i] = m
	}
	_ = vm.items.Set(items)
	_ = vm.count.Set(fmt.Sprintf(MessageCountFormat, len(msgs)))
}

// Items is the bound list of model.Message values
func (vm *MessagesViewModel) Items() binding.UntypedList {
	return vm.items
}

// Count is a bound "N messages" label
func (vm *MessagesViewModel) Count() binding.String {
	return vm.count
}

// Len returns the number of visible messages
func (vm *MessagesViewModel) Len() int {
	return vm.items.Length()
}

// Message returns the message at index i
func (vm *MessagesViewModel) Message(i int) (model.Message, bool) {
	v, err := vm.items.GetValue(i)
	if err != nil {
		return model.Message{}, false
	}
	m, ok := v.(model.Message)
	return m, ok
}

// FormatRow renders one message for the log list
func FormatRow(m model.Message) string {
	return m.IntervalString() + " " + m.Direction() + " " + m.Text
}

// RadiosViewModel merges local discovery and smartlink radios into one
// bound list. Local radios come first.
type RadiosViewModel struct {
	mu     sync.Mutex
	local  []model.Radio
	remote []model.Radio

	items  binding.UntypedList
	labels binding.StringList
}

// NewRadiosViewModel creates an empty view-model
func NewRadiosViewModel() *RadiosViewModel {
	return &RadiosViewModel{
		items:  binding.NewUntypedList(),
		labels: binding.NewStringList(),
	}
}

// SetLocal replaces the discovered radios. It may be called from any goroutine.
func (vm *RadiosViewModel) SetLocal(radios []model.Radio) {
	vm.mu.Lock()
	vm.local = radios
	merged := vm.merged()
	vm.mu.Unlock()
	fyne.Do(func() { vm.set(merged) })
}

// SetRemote replaces the smartlink radios. It may be called from any goroutine.
func (vm *RadiosViewModel) SetRemote(radios []model.Radio) {
	vm.mu.Lock()
	vm.remote = radios
	merged := vm.merged()
	vm.mu.Unlock()
	fyne.Do(func() { vm.set(merged) })
}

func (vm *RadiosViewModel) merged() []model.Radio {
	out := make([]model.Radio, 0, len(vm.local)+len(vm.remote))
	out = append(out, vm.local...)
	remote := append([]model.Radio(nil), vm.remote...)
	sort.SliceStable(remote, func(i, j int) bool { return remote[i].Nickname < remote[j].Nickname })
	return append(out, remote...)
}

func (vm *RadiosViewModel) set(radios []model.Radio) {
	items := make([]interface{}, len(radios))
	labels := make([]string, len(radios))
	for i, r := range radios {
		items[i] = r
		labels[i] = RadioLabel(r)
	}
	_ = vm.items.Set(items)
	_ = vm.labels.Set(labels)
}

// Labels is the bound list of picker labels
func (vm *RadiosViewModel) Labels() binding.StringList {
	return vm.labels
}

// Radio returns the radio at index i
func (vm *RadiosViewModel) Radio(i int) (model.Radio, bool) {
	v, err := vm.items.GetValue(i)
	if err != nil {
		return model.Radio{}, false
	}
	r, ok := v.(model.Radio)
	return r, ok
}

// Find returns the index of the radio with serial
func (vm *RadiosViewModel) Find(serial string) int {
	for i := 0; i < vm.items.Length(); i++ {
		if r, ok := vm.Radio(i); ok && r.Serial == serial {
			return i
		}
	}
	return -1
}

// RadioLabel renders a radio for the picker
func RadioLabel(r model.Radio) string {
	name := r.Nickname
	if name == "" {
		name = r.Serial
	}
	label := name + MiddleDotSeparator + r.Model + MiddleDotSeparator + r.IP
	if r.Source == model.SourceSmartlink {
		label = IconCloud + " " + label
	}
	if len(r.GuiClients) > 0 {
		label += MiddleDotSeparator + fmt.Sprintf("%d stations", len(r.GuiClients))
	}
	return label
}

// ConnectionViewModel mirrors the engine connection and capture state
type ConnectionViewModel struct {
	Connected binding.Bool
	Capturing binding.Bool
	Status    binding.String
}

// NewConnectionViewModel creates a disconnected view-model
func NewConnectionViewModel() *ConnectionViewModel {
	vm := &ConnectionViewModel{
		Connected: binding.NewBool(),
		Capturing: binding.NewBool(),
		Status:    binding.NewString(),
	}
	_ = vm.Status.Set("Disconnected")
	return vm
}

// SetConnected records a connection change. It may be called from any goroutine.
func (vm *ConnectionViewModel) SetConnected(connected bool, status string) {
	fyne.Do(func() {
		_ = vm.Connected.Set(connected)
		_ = vm.Status.Set(status)
	})
}

// SetCapturing records whether a capture session is running
func (vm *ConnectionViewModel) SetCapturing(capturing bool) {
	fyne.Do(func() { _ = vm.Capturing.Set(capturing) })
}

// IsConnected reads the bound connection state
func (vm *ConnectionViewModel) IsConnected() bool {
	v, _ := vm.Connected.Get()
	return v
}

// IsCapturing reads the bound capture state
func (vm *ConnectionViewModel) IsCapturing() bool {
	v, _ := vm.Capturing.Get()
	return v
}
