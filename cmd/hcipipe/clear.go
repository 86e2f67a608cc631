package main

import (
	"github.com/muxable/nfchci/pkg/hci"
	"github.com/muxable/nfchci/pkg/pipe"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every pipe on the controller",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
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

		if err := await(ctx, a, hci.InstructionClearAllPipe, 1, func() error {
			return s.DeleteAllPipes(pipe.StateDeleteAll)
		}); err != nil {
			return err
		}
		zap.L().Info("all pipes cleared")
		return nil
	},
}
