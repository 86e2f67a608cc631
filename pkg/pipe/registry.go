package pipe

import (
	"fmt"

	"github.com/muxable/nfchci/pkg/hci"
)

// Registry maps pipe ids to the pipes of one session. The static link and
// admin pipes are always present; dynamic slots are filled as pipes are
// created.
type Registry struct {
	slots [int(hci.MaxPipe) + 1]*hci.PipeInfo
}

func NewRegistry() *Registry {
	r := &Registry{}
	r.slots[hci.LinkMgmtPipe] = &hci.PipeInfo{
		Source: hci.Endpoint{Host: hci.TerminalHost, Gate: hci.GateLinkMgmt},
		Dest:   hci.Endpoint{Host: hci.HostController, Gate: hci.GateLinkMgmt},
		ID:     hci.LinkMgmtPipe,
	}
	r.slots[hci.AdminPipe] = &hci.PipeInfo{
		Source: hci.Endpoint{Host: hci.TerminalHost, Gate: hci.GateAdmin},
		Dest:   hci.Endpoint{Host: hci.HostController, Gate: hci.GateAdmin},
		ID:     hci.AdminPipe,
	}
	return r
}

// Get returns the pipe installed at id, or nil.
func (r *Registry) Get(id hci.PipeID) *hci.PipeInfo {
	if id > hci.MaxPipe {
		return nil
	}
	return r.slots[id]
}

// Install records p under p.ID.
func (r *Registry) Install(p *hci.PipeInfo) error {
	if p == nil {
		return ErrInvalidParameter
	}
	if !p.ID.Dynamic() {
		return fmt.Errorf("%w: pipe id 0x%02x outside dynamic range", ErrInvalidParameter, uint8(p.ID))
	}
	if r.slots[p.ID] != nil {
		return fmt.Errorf("%w: 0x%02x", ErrPipeInUse, uint8(p.ID))
	}
	r.slots[p.ID] = p
	return nil
}

// Remove clears the dynamic slot id and returns what it held.
func (r *Registry) Remove(id hci.PipeID) *hci.PipeInfo {
	if !id.Dynamic() {
		return nil
	}
	p := r.slots[id]
	r.slots[id] = nil
	return p
}

// NextFree returns the lowest unoccupied dynamic pipe id.
func (r *Registry) NextFree() (hci.PipeID, bool) {
	for id := hci.DynamicPipeBase; id <= hci.MaxPipe; id++ {
		if r.slots[id] == nil {
			return id, true
		}
	}
	return hci.UnknownPipeID, false
}

// Lookup returns the dynamic pipe whose destination is gate g.
func (r *Registry) Lookup(g hci.GateID) *hci.PipeInfo {
	for id := hci.DynamicPipeBase; id <= hci.MaxPipe; id++ {
		if p := r.slots[id]; p != nil && p.Dest.Gate == g {
			return p
		}
	}
	return nil
}

// Pipes returns the dynamic pipes in id order.
func (r *Registry) Pipes() []*hci.PipeInfo {
	var pipes []*hci.PipeInfo
	for id := hci.DynamicPipeBase; id <= hci.MaxPipe; id++ {
		if p := r.slots[id]; p != nil {
			pipes = append(pipes, p)
		}
	}
	return pipes
}

func (r *Registry) Len() int {
	return len(r.Pipes())
}

// Clear empties every dynamic slot and returns how many were occupied.
func (r *Registry) Clear() int {
	n := 0
	for id := hci.DynamicPipeBase; id <= hci.MaxPipe; id++ {
		if r.slots[id] != nil {
			r.slots[id] = nil
			n++
		}
	}
	return n
}
