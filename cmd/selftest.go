package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/core/codec"
	"firestige.xyz/linkprobe/internal/session"
	"firestige.xyz/linkprobe/internal/transport"
)

const selftestMessage = "linkprobe selftest"

// Addresses follow the three-subnet lab topology: the local host and its
// neighbour sit on 192.168.1.0/24 and the destination lies behind the router.
var (
	selftestLocal = core.Identity{
		Interface: "selftest0",
		MAC:       core.MAC{0x02, 0, 0, 0, 0x01, 0x65},
		IP:        core.IPv4{192, 168, 1, 101},
		Netmask:   core.IPv4{255, 255, 255, 0},
	}
	selftestRouterMAC = core.MAC{0x02, 0, 0, 0, 0x01, 0x01}
	selftestRouterIP  = core.IPv4{192, 168, 1, 1}
	selftestNeighMAC  = core.MAC{0x02, 0, 0, 0, 0x01, 0x66}
	selftestNeighIP   = core.IPv4{192, 168, 1, 102}
	selftestDest      = core.IPv4{172, 16, 0, 101}
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run both workflows against a scripted peer in memory",
	Long: `Run send and recv over an in-memory link. A scripted router answers the ARP
request and checks the datagram; a scripted neighbour then asks for the local
address. No privileges or interfaces are needed.

Examples:
  linkprobe selftest
  linkprobe selftest --log-level debug --ttl 8`,
	Args: exactArgs(0, "no arguments"),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelftest(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

type peerResult struct {
	frames []string
	header core.IPv4Header
	body   []byte
	err    error
}

func runSelftest(ctx context.Context, cfg *config.Config, w io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	local, peer := transport.Pipe()
	defer local.Close()

	ctrl := session.NewController(local, selftestLocal, session.OptionsFromConfig(cfg))

	done := make(chan peerResult, 1)
	go func() { done <- playRouter(ctx, peer) }()

	report, err := ctrl.RunInitiator(ctx, session.Request{
		Destination: selftestDest,
		Router:      selftestRouterIP,
		Payload:     []byte(selftestMessage),
	})
	if err != nil {
		return fmt.Errorf("selftest send: %w", err)
	}

	var res peerResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return fmt.Errorf("selftest router: %w", ctx.Err())
	}
	if res.err != nil {
		return fmt.Errorf("selftest router: %w", res.err)
	}
	for _, f := range res.frames {
		fmt.Fprintf(w, "wire  %s\n", f)
	}
	if res.header.Destination != selftestDest || !bytes.Equal(res.body, []byte(selftestMessage)) {
		return fmt.Errorf("selftest router: unexpected datagram to %s with %q", res.header.Destination, res.body)
	}
	fmt.Fprintf(w, "send  %s is-at %s, %d bytes sent to %s\n",
		report.NextHop, report.Resolution.MAC, report.BytesSent, selftestDest)

	request := core.NewARPRequest(selftestNeighMAC, selftestNeighIP, selftestLocal.IP)
	if _, err := peer.Send(ctx, codec.ARPFrame(core.BroadcastMAC, selftestNeighMAC, request)); err != nil {
		return fmt.Errorf("selftest neighbour: %w", err)
	}
	m, err := ctrl.RunResponder(ctx)
	if err != nil {
		return fmt.Errorf("selftest recv: %w", err)
	}
	if m.RequesterIP != selftestNeighIP || m.RequesterMAC != selftestNeighMAC {
		return fmt.Errorf("selftest recv: unexpected requester %s (%s)", m.RequesterIP, m.RequesterMAC)
	}
	fmt.Fprintf(w, "recv  who-has %s from %s (%s)\n", selftestLocal.IP, m.RequesterIP, m.RequesterMAC)

	fmt.Fprintln(w, "selftest passed")
	return nil
}

// playRouter answers the ARP request for the router address and returns the
// datagram that follows it.
func playRouter(ctx context.Context, tr transport.Transport) peerResult {
	var res peerResult
	for {
		frame, err := tr.Receive(ctx)
		if err != nil {
			res.err = err
			return res
		}
		res.frames = append(res.frames, transport.Describe(frame))

		eth, payload, err := codec.Split(frame)
		if err != nil {
			continue
		}
		switch eth.EtherType {
		case core.EtherTypeARP:
			req, err := codec.DecodeARP(payload)
			if err != nil || req.Operation != core.ARPRequest || req.TargetIP != selftestRouterIP {
				continue
			}
			reply := core.NewARPRequest(selftestRouterMAC, selftestRouterIP, req.SenderIP)
			reply.Operation = core.ARPReply
			reply.TargetMAC = req.SenderMAC
			if _, err := tr.Send(ctx, codec.ARPFrame(req.SenderMAC, selftestRouterMAC, reply)); err != nil {
				res.err = err
				return res
			}
		case core.EtherTypeIPv4:
			if eth.Destination != selftestRouterMAC {
				continue
			}
			if err := codec.VerifyIPv4(payload); err != nil {
				res.err = err
				return res
			}
			h, err := codec.DecodeIPv4(payload)
			if err != nil {
				res.err = err
				return res
			}
			if int(h.TotalLength) > len(payload) {
				res.err = fmt.Errorf("%w: total length %d", core.ErrTruncatedInput, h.TotalLength)
				return res
			}
			res.header = h
			res.body = payload[core.IPv4HeaderLen:h.TotalLength]
			return res
		}
	}
}
