package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/session"
)

var sendCmd = &cobra.Command{
	Use:     "send <interface> <dest-ip> <router-ip> <message>",
	Aliases: []string{"Send"},
	Short:   "Resolve the next hop with ARP and send one IPv4 datagram",
	Long: `Broadcast an ARP request for the next hop, wait for its reply and send the
message as the payload of one IPv4 datagram addressed to dest-ip.

With the default router policy the router address is always resolved; with
--next-hop auto a destination inside the local subnet is resolved directly.

Examples:
  linkprobe send h1x1-eth0 172.16.0.101 192.168.1.1 hello
  linkprobe send eth0 10.0.0.9 10.0.0.1 "hi there" --next-hop auto --timeout 2s`,
	Args: exactArgs(4, "<interface> <dest-ip> <router-ip> <message>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(cmd.Context(), cfg, args, cmd.OutOrStdout())
	},
}

func runSend(ctx context.Context, cfg *config.Config, args []string, w io.Writer) error {
	dest, err := parseAddrArg("dest-ip", args[1])
	if err != nil {
		return err
	}
	router, err := parseAddrArg("router-ip", args[2])
	if err != nil {
		return err
	}

	id, tr, err := openInterface(cfg, args[0])
	if err != nil {
		return err
	}
	defer tr.Close()

	ctrl := session.NewController(tr, id, session.OptionsFromConfig(cfg))
	report, err := ctrl.RunInitiator(ctx, session.Request{
		Destination: dest,
		Router:      router,
		Payload:     []byte(args[3]),
	})
	if err != nil {
		return err
	}

	res := report.Resolution
	fmt.Fprintf(w, "%s is-at %s (%d frame(s), %s)\n", res.Target, res.MAC, res.Frames, res.Elapsed)
	fmt.Fprintf(w, "%d bytes sent to %s via %s\n", report.BytesSent, dest, report.NextHop)
	return nil
}
