package pipe

import (
	"fmt"

	"github.com/muxable/nfchci/pkg/hci"
)

// State is the bring-up cursor. Values below 0x100 mean "create the pipe to
// that gate"; the two absorbing states sit above.
type State uint16

const (
	StateDeleteAll State = 0x100 + iota
	StateSequenceEnd
)

const (
	StateCreateIdentityMgmt    = State(hci.GateIdentityMgmt)
	StateCreateDeviceMgmt      = State(hci.GateDeviceMgmt)
	StateCreatePollingLoop     = State(hci.GatePollingLoop)
	StateCreateReaderA         = State(hci.GateReaderA)
	StateCreateReaderB         = State(hci.GateReaderB)
	StateCreateReaderF         = State(hci.GateReaderF)
	StateCreateJewelReader     = State(hci.GateJewelReader)
	StateCreateISO15693        = State(hci.GateISO15693)
	StateCreateHIDReader       = State(hci.GateHIDReader)
	StateCreateNFCIP1Initiator = State(hci.GateNFCIP1Initiator)
	StateCreateNFCIP1Target    = State(hci.GateNFCIP1Target)
	StateCreateCETypeA         = State(hci.GateCETypeA)
	StateCreateCETypeB         = State(hci.GateCETypeB)
	StateCreateWI              = State(hci.GateWIMgmt)
	StateCreateSWP             = State(hci.GateSWPMgmt)
)

// CreateState returns the state that creates the pipe to g.
func CreateState(g hci.GateID) State {
	return State(g)
}

// Gate returns the gate a creation state refers to.
func (s State) Gate() (hci.GateID, bool) {
	if s >= 0x100 {
		return hci.GateUnknown, false
	}
	return hci.GateID(s), true
}

// Terminal reports whether the sequencer stops advancing in s.
func (s State) Terminal() bool {
	return s == StateDeleteAll || s == StateSequenceEnd
}

func (s State) String() string {
	switch s {
	case StateDeleteAll:
		return "delete-all"
	case StateSequenceEnd:
		return "sequence-end"
	}
	if g, ok := s.Gate(); ok {
		return "create-" + g.String()
	}
	return fmt.Sprintf("state(0x%x)", uint16(s))
}
