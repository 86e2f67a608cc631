package main

import (
	"fmt"
	"strconv"

	"github.com/muxable/nfchci/pkg/hci"
	"github.com/muxable/nfchci/pkg/pipe"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var openCmd = &cobra.Command{
	Use:   "open <pipe-id>...",
	Short: "Open previously created pipes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGeneric(args, hci.InstructionOpenPipe, (*pipe.Session).OpenPipe)
	},
}

var closeCmd = &cobra.Command{
	Use:   "close <pipe-id>...",
	Short: "Close open pipes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGeneric(args, hci.InstructionClosePipe, (*pipe.Session).ClosePipe)
	},
}

func parsePipeIDs(args []string) ([]*hci.PipeInfo, error) {
	pipes := make([]*hci.PipeInfo, 0, len(args))
	for _, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return nil, fmt.Errorf("pipe id %q: %w", arg, err)
		}
		id := hci.PipeID(v)
		if !id.Dynamic() {
			return nil, fmt.Errorf("pipe id 0x%02x is not a dynamic pipe", v)
		}
		pipes = append(pipes, &hci.PipeInfo{ID: id})
	}
	return pipes, nil
}

func runGeneric(args []string, ins hci.Instruction, op func(*pipe.Session, *hci.PipeInfo) error) (err error) {
	pipes, err := parsePipeIDs(args)
	if err != nil {
		return err
	}
	a, err := openAdapter(cfg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, a.Close()) }()

	s, _, err := newSession(cfg, a)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, s.Close()) }()

	ctx, cancel := commandContext()
	defer cancel()

	return await(ctx, a, ins, len(pipes), func() error {
		for _, p := range pipes {
			if err := op(s, p); err != nil {
				return err
			}
		}
		return nil
	})
}
