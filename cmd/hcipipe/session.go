package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/muxable/nfchci/pkg/config"
	"github.com/muxable/nfchci/pkg/events"
	"github.com/muxable/nfchci/pkg/gatemgmt"
	"github.com/muxable/nfchci/pkg/hci"
	"github.com/muxable/nfchci/pkg/pipe"
	"go.uber.org/zap"
)

// newSession assembles a pipe session over t from the loaded configuration.
func newSession(cfg *config.Config, t pipe.Transport) (*pipe.Session, *gatemgmt.Manager, error) {
	initMode, err := cfg.SequenceInitMode()
	if err != nil {
		return nil, nil, err
	}
	mode, err := cfg.SessionMode()
	if err != nil {
		return nil, nil, err
	}

	identity := gatemgmt.NewIdentity()
	gates, rom, ok, err := cfg.IdentityGates()
	if err != nil {
		return nil, nil, err
	}
	if ok {
		identity.Set(gates, rom)
	} else if cfg.GateVerify {
		return nil, nil, fmt.Errorf("gate_verify requires an [identity] section")
	}

	var pub events.Publisher = &events.NoopPublisher{}
	if cfg.NATSURL != "" {
		pub, err = events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return nil, nil, err
		}
	}

	mgr := gatemgmt.NewManager()
	s, err := pipe.NewSession(pipe.Config{
		Catalog:          pipe.DefaultCatalog(cfg.PipeFeatures()),
		GateVerify:       cfg.GateVerify,
		InitMode:         initMode,
		Mode:             mode,
		EstablishSession: cfg.EstablishSession,
		Transport:        t,
		Resources:        mgr,
		Oracle:           identity,
		Dependents:       mgr,
		Publisher:        pub,
	})
	if err != nil {
		pub.Close()
		return nil, nil, err
	}
	zap.L().Debug("session created", zap.String("id", s.ID), zap.Stringer("mode", mode), zap.Stringer("init", initMode))
	return s, mgr, nil
}

// openAdapter opens the controller device and starts the HCP read loop.
func openAdapter(cfg *config.Config) (*hci.Adapter, error) {
	sck, err := hci.NewSocket(cfg.Device)
	if err != nil {
		return nil, err
	}
	return hci.NewAdapter(sck), nil
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// await runs send and waits for the completion of n commands of type ins.
func await(ctx context.Context, a *hci.Adapter, ins hci.Instruction, n int, send func() error) error {
	ch := make(chan hci.Completion, n)
	cancel := a.OnCompletion(func(c hci.Completion) {
		if c.Instruction != ins {
			return
		}
		select {
		case ch <- c:
		default:
		}
	})
	defer cancel()

	if err := send(); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		select {
		case c := <-ch:
			if c.Err != nil {
				return fmt.Errorf("pipe 0x%02x: %w", uint8(c.PipeID), c.Err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func printPipes(pipes []*hci.PipeInfo) {
	fmt.Printf("%-6s %-18s %s\n", "PIPE", "GATE", "DEST HOST")
	for _, p := range pipes {
		fmt.Printf("0x%02x   %-18s %s\n", uint8(p.ID), p.Dest.Gate, p.Dest.Host)
	}
}
