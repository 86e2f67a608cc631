package main

import (
	"fmt"

	"github.com/muxable/nfchci/pkg/hci"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var bringupCmd = &cobra.Command{
	Use:   "bringup",
	Short: "Create the pipes of every configured gate",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		open, _ := cmd.Flags().GetBool("open")

		a, err := openAdapter(cfg)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, a.Close()) }()

		s, mgr, err := newSession(cfg, a)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, s.Close()) }()

		ctx, cancel := commandContext()
		defer cancel()

		if err := s.BringUp(ctx); err != nil {
			return fmt.Errorf("bring-up stopped in %s: %w", s.State, err)
		}
		zap.L().Info("bring-up finished", zap.Stringer("state", s.State), zap.Int("pipes", s.Registry.Len()), zap.Bool("ready", mgr.Ready()))

		pipes := s.Registry.Pipes()
		if open && len(pipes) > 0 {
			err := await(ctx, a, hci.InstructionOpenPipe, len(pipes), func() error {
				for _, p := range pipes {
					if err := s.OpenPipe(p); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		printPipes(pipes)
		return nil
	},
}

func init() {
	bringupCmd.Flags().Bool("open", false, "open every created pipe")
}
