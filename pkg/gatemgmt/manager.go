package gatemgmt

import (
	"errors"
	"fmt"
	"sync"

	"github.com/muxable/nfchci/pkg/hci"
	"go.uber.org/zap"
)

var (
	// ErrNotInitialized is returned when a pipe is recorded for a gate whose
	// resources were never initialized.
	ErrNotInitialized = errors.New("gate resources not initialized")

	// ErrMissingPipe is returned when a dependent subsystem needs a pipe that
	// was not created.
	ErrMissingPipe = errors.New("required pipe missing")
)

// GateState is the software state kept for one gate.
type GateState struct {
	Initialized bool
	PipeID      hci.PipeID
	Pipe        *hci.PipeInfo
}

// Manager keeps the per-gate state of the terminal host and initializes the
// subsystems that run over the created pipes.
type Manager struct {
	mu sync.Mutex

	gates map[hci.GateID]*GateState

	linkReady      bool
	readerReady    bool
	emulationReady bool
}

func NewManager() *Manager {
	return &Manager{gates: make(map[hci.GateID]*GateState)}
}

func (m *Manager) InitResources(g hci.GateID) error {
	if !g.Known() {
		return fmt.Errorf("init resources: unknown gate 0x%02x", uint8(g))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates[g] = &GateState{Initialized: true, PipeID: hci.UnknownPipeID}
	zap.L().Debug("gate resources initialized", zap.Stringer("gate", g))
	return nil
}

func (m *Manager) UpdatePipeInfo(g hci.GateID, id hci.PipeID, p *hci.PipeInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.gates[g]
	if !ok {
		// The connectivity pipe is created by the UICC host, not by us.
		if g != hci.GateConnectivity {
			return fmt.Errorf("%w: %s", ErrNotInitialized, g)
		}
		st = &GateState{Initialized: true}
		m.gates[g] = st
	}
	st.PipeID = id
	st.Pipe = p
	zap.L().Debug("gate pipe recorded", zap.Stringer("gate", g), zap.Uint8("pipe", uint8(id)))
	return nil
}

// Gate returns a copy of the state kept for g.
func (m *Manager) Gate(g hci.GateID) (GateState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.gates[g]
	if !ok {
		return GateState{}, false
	}
	return *st, true
}

func (m *Manager) hasPipe(g hci.GateID) bool {
	st, ok := m.gates[g]
	return ok && st.PipeID.Dynamic()
}

func (m *Manager) InitLinkMgmt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkReady = true
	zap.L().Info("link management initialized")
	return nil
}

// InitReaderMgmt requires the polling loop pipe, which every reader gate
// depends on.
func (m *Manager) InitReaderMgmt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.linkReady {
		return fmt.Errorf("reader management: %w", ErrNotInitialized)
	}
	if !m.hasPipe(hci.GatePollingLoop) {
		return fmt.Errorf("%w: %s", ErrMissingPipe, hci.GatePollingLoop)
	}
	var readers []string
	for _, g := range []hci.GateID{
		hci.GateReaderA, hci.GateReaderB, hci.GateReaderF, hci.GateJewelReader,
		hci.GateISO15693, hci.GateHIDReader, hci.GateNFCIP1Initiator,
	} {
		if m.hasPipe(g) {
			readers = append(readers, g.String())
		}
	}
	m.readerReady = true
	zap.L().Info("reader management initialized", zap.Strings("readers", readers))
	return nil
}

func (m *Manager) InitEmulationMgmt() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.readerReady {
		return fmt.Errorf("emulation management: %w", ErrNotInitialized)
	}
	var targets []string
	for _, g := range []hci.GateID{hci.GateCETypeA, hci.GateCETypeB, hci.GateNFCIP1Target, hci.GateSWPMgmt, hci.GateWIMgmt} {
		if m.hasPipe(g) {
			targets = append(targets, g.String())
		}
	}
	m.emulationReady = true
	zap.L().Info("emulation management initialized", zap.Strings("targets", targets))
	return nil
}

// Ready reports whether all dependent subsystems were initialized.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.linkReady && m.readerReady && m.emulationReady
}

// Reset forgets every gate, as after a clear-all.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gates = make(map[hci.GateID]*GateState)
	m.linkReady, m.readerReady, m.emulationReady = false, false, false
}
