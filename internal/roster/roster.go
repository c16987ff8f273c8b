// Package roster holds the fixed set of field devices under test.
package roster

import (
	"fmt"

	"github.com/user/meshwatch/internal/model"
)

// Roster is an ordered, immutable list of devices. Batch runs walk it in
// declaration order.
type Roster struct {
	devices []model.Device
	byLabel map[string]int
}

// New builds a roster from an ordered device list. Duplicate labels are
// rejected because labels key retest requests.
func New(devices []model.Device) (*Roster, error) {
	r := &Roster{
		devices: make([]model.Device, len(devices)),
		byLabel: make(map[string]int, len(devices)),
	}
	copy(r.devices, devices)
	for i, d := range r.devices {
		if d.Label == "" || d.Address == "" {
			return nil, fmt.Errorf("roster entry %d: label and address are required", i)
		}
		if _, dup := r.byLabel[d.Label]; dup {
			return nil, fmt.Errorf("duplicate roster label %q", d.Label)
		}
		r.byLabel[d.Label] = i
	}
	return r, nil
}

// Devices returns the devices in roster order. The slice is a copy; callers
// may not mutate the roster mid-run.
func (r *Roster) Devices() []model.Device {
	out := make([]model.Device, len(r.devices))
	copy(out, r.devices)
	return out
}

// Len returns the number of devices.
func (r *Roster) Len() int { return len(r.devices) }

// Lookup finds a device by label.
func (r *Roster) Lookup(label string) (model.Device, bool) {
	i, ok := r.byLabel[label]
	if !ok {
		return model.Device{}, false
	}
	return r.devices[i], true
}
