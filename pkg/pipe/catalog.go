package pipe

import (
	"github.com/muxable/nfchci/pkg/hci"
	"go.uber.org/zap"
)

// GateDescriptor is one step of the bring-up sequence. Conditional gates are
// skipped by the in-order walk and only entered through an Override.
type GateDescriptor struct {
	Gate        hci.GateID
	Enabled     bool
	Conditional bool
}

// Catalog lists the gates a build supports, in creation order. The first
// entry is always identity management.
type Catalog []GateDescriptor

func (c Catalog) index(g hci.GateID) int {
	for i, d := range c {
		if d.Gate == g {
			return i
		}
	}
	return -1
}

// Lookup returns the descriptor for g.
func (c Catalog) Lookup(g hci.GateID) (GateDescriptor, bool) {
	i := c.index(g)
	if i < 0 {
		return GateDescriptor{}, false
	}
	return c[i], true
}

// Enabled reports whether g is present and enabled.
func (c Catalog) Enabled(g hci.GateID) bool {
	d, ok := c.Lookup(g)
	return ok && d.Enabled
}

// Gates returns the enabled gates in catalog order.
func (c Catalog) Gates() []hci.GateID {
	var gates []hci.GateID
	for _, d := range c {
		if d.Enabled {
			gates = append(gates, d.Gate)
		}
	}
	return gates
}

func (c Catalog) validate() error {
	if len(c) == 0 || c[0].Gate != hci.GateIdentityMgmt || !c[0].Enabled {
		return ErrInvalidHciSequence
	}
	seen := make(map[hci.GateID]bool, len(c))
	for _, d := range c {
		if !d.Gate.Known() || seen[d.Gate] {
			return ErrInvalidHciSequence
		}
		seen[d.Gate] = true
	}
	return nil
}

// Features are the build-time feature flags that select optional gates.
type Features struct {
	TypeB         bool
	Felica        bool
	Jewel         bool
	ISO15693      bool
	HIDReader     bool
	P2P           bool
	HostEmulation bool
	WI            bool
	SWP           bool
}

// DefaultCatalog builds the PN544 gate list for the given features.
func DefaultCatalog(f Features) Catalog {
	return Catalog{
		{Gate: hci.GateIdentityMgmt, Enabled: true},
		{Gate: hci.GateDeviceMgmt, Enabled: true},
		{Gate: hci.GatePollingLoop, Enabled: true},
		{Gate: hci.GateReaderA, Enabled: true},
		{Gate: hci.GateReaderB, Enabled: f.TypeB},
		{Gate: hci.GateReaderF, Enabled: f.Felica},
		{Gate: hci.GateJewelReader, Enabled: f.Jewel},
		{Gate: hci.GateISO15693, Enabled: f.ISO15693},
		{Gate: hci.GateHIDReader, Enabled: f.HIDReader, Conditional: true},
		{Gate: hci.GateNFCIP1Initiator, Enabled: f.P2P},
		{Gate: hci.GateNFCIP1Target, Enabled: f.P2P},
		{Gate: hci.GateCETypeA, Enabled: f.HostEmulation, Conditional: true},
		{Gate: hci.GateCETypeB, Enabled: f.HostEmulation, Conditional: true},
		{Gate: hci.GateWIMgmt, Enabled: f.WI},
		{Gate: hci.GateSWPMgmt, Enabled: f.SWP},
	}
}

// Condition decides at runtime whether an Override applies.
type Condition func(s *Session) (bool, error)

// Override forces Next to follow After when When holds, regardless of catalog
// order. A nil When always holds.
type Override struct {
	After hci.GateID
	Next  hci.GateID
	When  Condition
}

// GateSupported holds when the oracle reports g as supported by the
// controller, independent of the session's GateVerify flag. Without gate
// verification an oracle error counts as unsupported.
func GateSupported(g hci.GateID) Condition {
	return func(s *Session) (bool, error) {
		ok, err := s.oracle.ValidGate(g)
		if err != nil && !s.GateVerify {
			zap.L().Info("gate support unknown", zap.Stringer("gate", g), zap.Error(err))
			return false, nil
		}
		return ok, err
	}
}

// CardEmulationCapable holds when the controller firmware supports host card
// emulation.
func CardEmulationCapable(s *Session) (bool, error) {
	return s.oracle.SupportsCardEmulation(), nil
}

func DefaultOverrides() []Override {
	return []Override{
		{After: hci.GateISO15693, Next: hci.GateHIDReader, When: GateSupported(hci.GateHIDReader)},
		{After: hci.GateNFCIP1Target, Next: hci.GateCETypeA, When: CardEmulationCapable},
		{After: hci.GateCETypeA, Next: hci.GateCETypeB},
	}
}
