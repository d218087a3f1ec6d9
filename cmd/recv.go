package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/session"
)

var recvCmd = &cobra.Command{
	Use:     "recv <interface>",
	Aliases: []string{"Recv"},
	Short:   "Wait for an ARP request asking for the local address",
	Long: `Watch the interface until an ARP request whose target is the local IPv4
address arrives, then print the requester. No reply is transmitted.

Examples:
  linkprobe recv h3x1-eth0
  linkprobe recv eth0 --watch-timeout 30s`,
	Args: exactArgs(1, "<interface>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRecv(cmd.Context(), cfg, args[0], cmd.OutOrStdout())
	},
}

func runRecv(ctx context.Context, cfg *config.Config, iface string, w io.Writer) error {
	id, tr, err := openInterface(cfg, iface)
	if err != nil {
		return err
	}
	defer tr.Close()

	ctrl := session.NewController(tr, id, session.OptionsFromConfig(cfg))
	m, err := ctrl.RunResponder(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "who-has %s from %s (%s) after %d frame(s)\n", id.IP, m.RequesterIP, m.RequesterMAC, m.Frames)
	return nil
}
