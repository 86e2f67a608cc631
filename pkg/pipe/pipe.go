package pipe

import (
	"fmt"

	"github.com/muxable/nfchci/pkg/events"
	"github.com/muxable/nfchci/pkg/hci"
	"go.uber.org/zap"
)

// CreatePipe requests a pipe from the terminal host's copy of dest.Gate to
// dest. The returned record is provisional: its ID stays unknown until the
// controller's response is consumed.
func (s *Session) CreatePipe(dest hci.Endpoint) (*hci.PipeInfo, error) {
	p := &hci.PipeInfo{
		Source: hci.Endpoint{Host: hci.TerminalHost, Gate: dest.Gate},
		Dest:   dest,
		ID:     hci.UnknownPipeID,
	}
	if err := s.transport.SendAdmin(hci.InstructionCreatePipe, p).Accepted(); err != nil {
		return nil, fmt.Errorf("create pipe to %s: %w", dest, err)
	}
	zap.L().Debug("create pipe requested", zap.Stringer("dest", dest))
	return p, nil
}

// DeletePipe requests deletion of p and releases its registry slot.
func (s *Session) DeletePipe(p *hci.PipeInfo) error {
	if p == nil {
		return ErrInvalidParameter
	}
	if err := s.transport.SendAdmin(hci.InstructionDeletePipe, p).Accepted(); err != nil {
		return fmt.Errorf("delete pipe 0x%02x: %w", uint8(p.ID), err)
	}
	if s.Registry.Get(p.ID) == p {
		s.Registry.Remove(p.ID)
	}
	s.publish(events.TopicPipeDeleted, events.PipeEvent{
		SessionID: s.ID,
		PipeID:    uint8(p.ID),
		Gate:      p.Dest.Gate.String(),
	})
	return nil
}

// DeleteAllPipes clears every pipe on the controller. Only StateDeleteAll is
// a valid scope.
func (s *Session) DeleteAllPipes(scope State) error {
	if scope != StateDeleteAll {
		return fmt.Errorf("%w: delete scope %s", ErrInvalidHciSequence, scope)
	}
	admin := s.Registry.Get(hci.AdminPipe)
	if err := s.transport.SendAdmin(hci.InstructionClearAllPipe, admin).Accepted(); err != nil {
		return fmt.Errorf("clear all pipes: %w", err)
	}
	n := s.Registry.Clear()
	s.visited = make(map[hci.GateID]bool)
	zap.L().Info("cleared all pipes", zap.Int("count", n))
	s.publish(events.TopicPipesCleared, events.ClearedEvent{SessionID: s.ID, Count: n})
	return nil
}

// OpenPipe opens p. Pipes outside the addressable range are left alone.
func (s *Session) OpenPipe(p *hci.PipeInfo) error {
	if p == nil {
		return ErrInvalidParameter
	}
	if p.ID > hci.MaxPipe {
		return nil
	}
	if err := s.transport.SendGeneric(p.ID, hci.InstructionOpenPipe).Accepted(); err != nil {
		return fmt.Errorf("open pipe 0x%02x: %w", uint8(p.ID), err)
	}
	return nil
}

// ClosePipe closes p unless its id was never assigned.
func (s *Session) ClosePipe(p *hci.PipeInfo) error {
	if p == nil {
		return ErrInvalidParameter
	}
	if p.ID >= hci.UnknownPipeID {
		return nil
	}
	if err := s.transport.SendGeneric(p.ID, hci.InstructionClosePipe).Accepted(); err != nil {
		return fmt.Errorf("close pipe 0x%02x: %w", uint8(p.ID), err)
	}
	return nil
}
