package gatemgmt

import (
	"errors"
	"fmt"
	"sync"

	"github.com/muxable/nfchci/pkg/hci"
)

// ErrIdentityUnknown is returned when gate validity is asked before the
// controller identity was read.
var ErrIdentityUnknown = errors.New("controller identity unknown")

// MinCardEmulationROM is the first PN544 ROM version with host card
// emulation.
const MinCardEmulationROM = 0x33

// Identity holds what the identity management gate reported about the
// controller.
type Identity struct {
	mu sync.RWMutex

	known      bool
	gates      map[hci.GateID]bool
	romVersion uint8
}

func NewIdentity() *Identity {
	return &Identity{}
}

// Set records the gates the controller exposes and its ROM version.
func (id *Identity) Set(gates []hci.GateID, romVersion uint8) {
	id.mu.Lock()
	defer id.mu.Unlock()
	id.gates = make(map[hci.GateID]bool, len(gates))
	for _, g := range gates {
		id.gates[g] = true
	}
	id.romVersion = romVersion
	id.known = true
}

// SetGateList parses the gate list registry value: one gate id per byte.
func (id *Identity) SetGateList(list []byte, romVersion uint8) error {
	gates := make([]hci.GateID, 0, len(list))
	for _, b := range list {
		g := hci.GateID(b)
		if g == hci.GateUnknown {
			return fmt.Errorf("gate list: reserved gate id 0x%02x", b)
		}
		gates = append(gates, g)
	}
	id.Set(gates, romVersion)
	return nil
}

func (id *Identity) ValidGate(g hci.GateID) (bool, error) {
	id.mu.RLock()
	defer id.mu.RUnlock()
	if !id.known {
		return false, ErrIdentityUnknown
	}
	// Identity management must exist to have read the identity at all.
	if g == hci.GateIdentityMgmt {
		return true, nil
	}
	return id.gates[g], nil
}

func (id *Identity) SupportsCardEmulation() bool {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.known && id.romVersion >= MinCardEmulationROM
}
