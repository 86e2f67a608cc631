package pipe

import (
	"fmt"

	"github.com/muxable/nfchci/pkg/events"
	"github.com/muxable/nfchci/pkg/hci"
	"go.uber.org/zap"
)

// CreateAllPipes drives one state of the bring-up: it initializes the
// resources of the state's gate and requests its pipe. The returned record is
// nil for the terminal states and when the pipes of an established session
// are reused.
func (s *Session) CreateAllPipes(state State) (*hci.PipeInfo, error) {
	if s == nil || s.transport == nil {
		return nil, ErrInvalidParameter
	}
	switch state {
	case StateDeleteAll:
		return nil, s.DeleteAllPipes(state)
	case StateSequenceEnd:
		return nil, nil
	}
	g, ok := state.Gate()
	if !ok || !s.Catalog.Enabled(g) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidHciSequence, state)
	}
	if s.visited[g] {
		return nil, fmt.Errorf("%w: %s already created", ErrInvalidHciSequence, g)
	}
	if err := s.resources.InitResources(g); err != nil {
		return nil, err
	}
	if s.EstablishSession && s.Mode == ModeSession {
		zap.L().Debug("reusing session pipe", zap.Stringer("gate", g))
		return nil, nil
	}
	return s.CreatePipe(hci.Endpoint{Host: hci.HostController, Gate: g})
}

// UpdatePipeInfo records that the pipe to p.Dest.Gate now has id and moves
// *seq to the state that follows that gate.
func (s *Session) UpdatePipeInfo(seq *State, id hci.PipeID, p *hci.PipeInfo) error {
	if s == nil || seq == nil || p == nil {
		return ErrInvalidParameter
	}
	g := p.Dest.Gate
	switch g {
	case hci.GateUnknown, hci.GateAdmin, hci.GateLinkMgmt:
		return fmt.Errorf("%w: %s", ErrHciGateNotSupported, g)
	case hci.GateConnectivity:
		// Created by the UICC host, outside the bring-up order.
		return s.resources.UpdatePipeInfo(g, id, p)
	}
	if !s.Catalog.Enabled(g) {
		return fmt.Errorf("%w: %s", ErrHciGateNotSupported, g)
	}
	// Nothing is committed unless the successor is known, so a failed
	// transition can be retried from the same state.
	s.visited[g] = true
	next, err := s.next(g)
	if err == nil {
		err = s.resources.UpdatePipeInfo(g, id, p)
	}
	if err != nil {
		delete(s.visited, g)
		return err
	}
	zap.L().Debug("pipe sequence advanced", zap.Stringer("from", *seq), zap.Stringer("to", next))
	*seq = next
	return nil
}

func (s *Session) next(g hci.GateID) (State, error) {
	if g == hci.GateDeviceMgmt && s.InitMode == InitSelfTest {
		return StateDeleteAll, nil
	}

	for _, o := range s.Overrides {
		if o.After != g || s.visited[o.Next] || !s.Catalog.Enabled(o.Next) {
			continue
		}
		if o.When != nil {
			ok, err := o.When(s)
			if err != nil {
				return StateSequenceEnd, err
			}
			if !ok {
				continue
			}
		}
		ok, err := s.verify(o.Next)
		if err != nil {
			return StateSequenceEnd, err
		}
		if ok {
			return CreateState(o.Next), nil
		}
	}

	// Gates an override jumped over stay skipped.
	for _, d := range s.Catalog[s.Catalog.index(g)+1:] {
		if !d.Enabled || d.Conditional || s.visited[d.Gate] {
			continue
		}
		ok, err := s.verify(d.Gate)
		if err != nil {
			return StateSequenceEnd, err
		}
		if !ok {
			zap.L().Info("skipping unsupported gate", zap.Stringer("gate", d.Gate))
			continue
		}
		return CreateState(d.Gate), nil
	}
	return StateSequenceEnd, nil
}

func (s *Session) verify(g hci.GateID) (bool, error) {
	if !s.GateVerify {
		return true, nil
	}
	return s.oracle.ValidGate(g)
}

// UpdatePipe runs the bring-up from *seq to completion, assigning pipe ids
// locally from the registry. The caller owns retry policy.
func (s *Session) UpdatePipe(seq *State) error {
	if s == nil || seq == nil {
		return ErrInvalidParameter
	}
	for !seq.Terminal() {
		g, ok := seq.Gate()
		if !ok || !s.Catalog.Enabled(g) {
			return fmt.Errorf("%w: %s", ErrInvalidHciSequence, *seq)
		}
		skipped, err := s.skipUnsupported(seq, g)
		if err != nil {
			return err
		}
		if skipped {
			continue
		}

		id, ok := s.Registry.NextFree()
		if !ok {
			return ErrInsufficientResources
		}
		p, err := s.CreateAllPipes(*seq)
		if err != nil {
			return err
		}
		if p == nil {
			p = &hci.PipeInfo{
				Source: hci.Endpoint{Host: hci.TerminalHost, Gate: g},
				Dest:   hci.Endpoint{Host: hci.HostController, Gate: g},
				ID:     hci.UnknownPipeID,
			}
		}
		if err := s.UpdatePipeInfo(seq, id, p); err != nil {
			return err
		}
		p.ID = id
		if err := s.Registry.Install(p); err != nil {
			return err
		}
		s.publishCreated(p)
	}

	if *seq == StateDeleteAll {
		_, err := s.CreateAllPipes(StateDeleteAll)
		return err
	}
	return s.finish()
}

// finish initializes the subsystems that depend on a complete set of pipes.
func (s *Session) finish() error {
	if err := s.dependents.InitLinkMgmt(); err != nil {
		return fmt.Errorf("link management: %w", err)
	}
	if err := s.dependents.InitReaderMgmt(); err != nil {
		return fmt.Errorf("reader management: %w", err)
	}
	if err := s.dependents.InitEmulationMgmt(); err != nil {
		return fmt.Errorf("emulation management: %w", err)
	}
	s.publish(events.TopicSequenceEnd, events.SequenceEvent{
		SessionID: s.ID,
		Pipes:     s.Registry.Len(),
	})
	return nil
}

func (s *Session) publishCreated(p *hci.PipeInfo) {
	s.publish(events.TopicPipeCreated, events.PipeEvent{
		SessionID: s.ID,
		PipeID:    uint8(p.ID),
		Gate:      p.Dest.Gate.String(),
	})
}
