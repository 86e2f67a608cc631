package pipe

import "github.com/muxable/nfchci/pkg/hci"

// Transport sends HCP commands to the controller. A pending result means the
// command was accepted and its completion will be reported later.
type Transport interface {
	SendAdmin(ins hci.Instruction, p *hci.PipeInfo) hci.Result
	SendGeneric(id hci.PipeID, ins hci.Instruction) hci.Result
}

// Notifier delivers the genuine completion of every command a Transport
// accepted.
type Notifier interface {
	OnCompletion(cb func(hci.Completion)) (cancel func())
}

// GateResources owns the per-gate software state.
type GateResources interface {
	InitResources(g hci.GateID) error
	UpdatePipeInfo(g hci.GateID, id hci.PipeID, p *hci.PipeInfo) error
}

// Oracle answers from the controller's identity information.
type Oracle interface {
	ValidGate(g hci.GateID) (bool, error)
	SupportsCardEmulation() bool
}

// Dependents are the subsystems initialized after a completed bring-up.
type Dependents interface {
	InitLinkMgmt() error
	InitReaderMgmt() error
	InitEmulationMgmt() error
}

type allowAll struct{}

func (allowAll) ValidGate(hci.GateID) (bool, error) { return true, nil }

func (allowAll) SupportsCardEmulation() bool { return false }

type noDependents struct{}

func (noDependents) InitLinkMgmt() error { return nil }

func (noDependents) InitReaderMgmt() error { return nil }

func (noDependents) InitEmulationMgmt() error { return nil }
