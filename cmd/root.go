// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/log"
	"firestige.xyz/linkprobe/internal/metrics"
	"firestige.xyz/linkprobe/internal/transport"
)

var (
	// Global flags
	configFile string

	// Set by setup before any subcommand runs.
	cfg           *config.Config
	metricsServer *metrics.Server

	// Replaced in tests.
	lookupIdentity = transport.LookupIdentity
	openTransport  = transport.Open
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "linkprobe",
	Short: "linkprobe - raw Ethernet ARP resolution and IPv4 delivery",
	Long: `linkprobe builds Ethernet, ARP and IPv4 headers by hand and exchanges them
over a raw link-layer socket.

In send mode it broadcasts an ARP request for the next hop, waits for the
reply and sends one IPv4 datagram carrying the message to the resolved
hardware address. In recv mode it watches the link until an ARP request
asks for the local address.

Raw sockets need CAP_NET_RAW; selftest runs the same workflows in memory.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("%w: a mode is required", core.ErrUsage)
	},
}

// Execute runs the command line until the selected mode finishes or
// SIGINT/SIGTERM cancels it. Usage errors print the usage text to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := rootCmd.ExecuteContextC(ctx)
	teardown()
	if errors.Is(err, core.ErrUsage) {
		fmt.Fprint(os.Stderr, c.UsageString())
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configFile, "config", "c", "", "config file path (YAML)")
	pf.String("log-level", "info", "log level: trace, debug, info, warn, error")
	pf.String("backend", config.BackendAFPacket, "raw socket backend: afpacket or packet")
	pf.Bool("arp-filter", false, "attach a kernel BPF filter accepting only ARP frames")
	pf.Duration("timeout", 5*time.Second, "bound on the wait for an ARP reply, 0 waits forever")
	pf.Duration("watch-timeout", 0, "bound on the wait for an ARP request in recv mode, 0 waits forever")
	pf.Bool("strict", true, "accept only IPv4-over-Ethernet replies sent by the requested address")
	pf.String("next-hop", config.NextHopRouter, "next-hop policy: router or auto")
	pf.Int("ttl", 64, "time to live of the sent datagram")
	pf.Bool("metrics", false, "serve Prometheus metrics while running")
	pf.String("metrics-listen", "127.0.0.1:9464", "metrics listen address")
	pf.String("metrics-textfile", "", "write metrics to this file on exit")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", core.ErrUsage, err)
	})

	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(recvCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(selftestCmd)
}

// setup loads the configuration, installs the logger and starts the metrics
// server when enabled.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := log.Init(c.Log); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	cfg = c

	if c.Metrics.Enabled {
		metricsServer = metrics.NewServer(c.Metrics.Listen, c.Metrics.Path)
		if err := metricsServer.Start(cmd.Context()); err != nil {
			return err
		}
	}
	return nil
}

// teardown runs after every command, including failed ones.
func teardown() {
	if metricsServer != nil {
		if err := metricsServer.Stop(context.Background()); err != nil {
			log.GetLogger().WithError(err).Warn("stop metrics server")
		}
		metricsServer = nil
	}
	if cfg != nil && cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			log.GetLogger().WithError(err).Warn("metrics textfile not written")
		}
	}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int, names string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s expects %s, got %d argument(s)", core.ErrUsage, cmd.Name(), names, len(args))
		}
		return nil
	}
}

func parseAddrArg(name, s string) (core.IPv4, error) {
	ip, err := core.ParseIPv4(s)
	if err != nil {
		return core.IPv4{}, fmt.Errorf("%w: %s: %v", core.ErrUsage, name, err)
	}
	return ip, nil
}

// openInterface queries the local identity of iface and opens a transport on it.
func openInterface(cfg *config.Config, iface string) (core.Identity, transport.Transport, error) {
	id, err := lookupIdentity(iface)
	if err != nil {
		return core.Identity{}, nil, err
	}
	tr, err := openTransport(cfg.Transport, id)
	if err != nil {
		return core.Identity{}, nil, err
	}
	return id, tr, nil
}
