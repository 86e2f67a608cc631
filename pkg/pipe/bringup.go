package pipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/muxable/nfchci/pkg/hci"
	"go.uber.org/zap"
)

// BringUp drives s.State to completion against a transport that reports
// completions. Unlike UpdatePipe, each state only advances once the
// controller has answered the create command with the pipe id it assigned.
func (s *Session) BringUp(ctx context.Context) error {
	n, ok := s.transport.(Notifier)
	if !ok {
		return fmt.Errorf("%w: transport does not report completions", ErrInvalidParameter)
	}
	completions := make(chan hci.Completion, 16)
	done := make(chan struct{})
	defer close(done)
	cancel := n.OnCompletion(func(c hci.Completion) {
		select {
		case completions <- c:
		case <-ctx.Done():
		case <-done:
		}
	})
	defer cancel()

	for !s.State.Terminal() {
		g, ok := s.State.Gate()
		if !ok || !s.Catalog.Enabled(g) {
			return fmt.Errorf("%w: %s", ErrInvalidHciSequence, s.State)
		}
		skipped, err := s.skipUnsupported(&s.State, g)
		if err != nil {
			return err
		}
		if skipped {
			continue
		}

		p, err := s.CreateAllPipes(s.State)
		if err != nil {
			return err
		}
		var id hci.PipeID
		if p == nil {
			if p = s.Registry.Lookup(g); p != nil {
				id = p.ID
			} else if id, ok = s.Registry.NextFree(); !ok {
				return ErrInsufficientResources
			} else {
				p = &hci.PipeInfo{
					Source: hci.Endpoint{Host: hci.TerminalHost, Gate: g},
					Dest:   hci.Endpoint{Host: hci.HostController, Gate: g},
					ID:     hci.UnknownPipeID,
				}
			}
		} else {
			c, err := await(ctx, completions, hci.InstructionCreatePipe)
			if err != nil {
				return fmt.Errorf("create pipe to %s: %w", g, err)
			}
			if !c.PipeID.Dynamic() {
				return fmt.Errorf("%w: controller assigned pipe 0x%02x to %s", ErrInvalidHciSequence, uint8(c.PipeID), g)
			}
			id = c.PipeID
		}

		if err := s.UpdatePipeInfo(&s.State, id, p); err != nil {
			return err
		}
		if s.Registry.Get(id) != p {
			p.ID = id
			if err := s.Registry.Install(p); err != nil {
				return err
			}
			s.publishCreated(p)
		}
	}

	if s.State == StateDeleteAll {
		if err := s.DeleteAllPipes(StateDeleteAll); err != nil {
			return err
		}
		_, err := await(ctx, completions, hci.InstructionClearAllPipe)
		return err
	}
	return s.finish()
}

// skipUnsupported moves *seq past g when gate verification rejects it.
func (s *Session) skipUnsupported(seq *State, g hci.GateID) (bool, error) {
	if !s.GateVerify {
		return false, nil
	}
	ok, err := s.oracle.ValidGate(g)
	if err != nil || ok {
		return false, err
	}
	zap.L().Info("skipping unsupported gate", zap.Stringer("gate", g))
	s.visited[g] = true
	next, err := s.next(g)
	if err != nil {
		delete(s.visited, g)
		return false, err
	}
	*seq = next
	return true, nil
}

func await(ctx context.Context, completions <-chan hci.Completion, ins hci.Instruction) (hci.Completion, error) {
	for {
		select {
		case c := <-completions:
			if c.Instruction != ins {
				continue
			}
			var re *hci.ResponseError
			if errors.As(c.Err, &re) && re.Code == hci.ResponseNoPipesAvailable {
				return c, fmt.Errorf("%w: %v", ErrInsufficientResources, c.Err)
			}
			return c, c.Err
		case <-ctx.Done():
			return hci.Completion{}, ctx.Err()
		}
	}
}
