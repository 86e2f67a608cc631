package main

import (
	"fmt"

	"github.com/muxable/nfchci/pkg/hci"
	"github.com/muxable/nfchci/pkg/pipe"
	"github.com/spf13/cobra"
)

// dryRun accepts every command without a controller.
type dryRun struct {
	sent []string
}

func (d *dryRun) SendAdmin(ins hci.Instruction, p *hci.PipeInfo) hci.Result {
	if p != nil && ins == hci.InstructionCreatePipe {
		d.sent = append(d.sent, fmt.Sprintf("%s %s", ins, p.Dest))
	} else {
		d.sent = append(d.sent, ins.String())
	}
	return hci.Completed()
}

func (d *dryRun) SendGeneric(id hci.PipeID, ins hci.Instruction) hci.Result {
	d.sent = append(d.sent, fmt.Sprintf("%s 0x%02x", ins, uint8(id)))
	return hci.Completed()
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the bring-up sequence for the configuration without a device",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &dryRun{}
		s, _, err := newSession(cfg, d)
		if err != nil {
			return err
		}
		defer s.Close()

		seq := pipe.StateCreateIdentityMgmt
		if err := s.UpdatePipe(&seq); err != nil {
			return fmt.Errorf("plan stopped in %s: %w", seq, err)
		}
		for i, line := range d.sent {
			fmt.Printf("%2d  %s\n", i+1, line)
		}
		fmt.Printf("final state: %s\n", seq)
		printPipes(s.Registry.Pipes())
		return nil
	},
}
