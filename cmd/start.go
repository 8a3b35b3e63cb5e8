package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aetheric.io/dronegrid/internal/config"
	"aetheric.io/dronegrid/internal/log"
	"aetheric.io/dronegrid/internal/metrics"
	"aetheric.io/dronegrid/internal/sim"
	"aetheric.io/dronegrid/pkg/wire"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the overlay network",
	Long: `
Start the configured overlay: one reactor goroutine per drone, the
scripted scenario (if any), and the metrics endpoint.

Examples:
  dronegrid start                     # use ./dronegrid.yaml
  dronegrid start -c network.yaml     # use an explicit config file
`,
	Run: func(cmd *cobra.Command, args []string) {
		runStart()
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart() {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError("failed to load configuration", err)
	}
	if err := log.Init(cfg.Log); err != nil {
		exitWithError("failed to initialize logging", err)
	}
	logger := log.GetLogger()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		srv.Start()
		defer srv.Stop(context.Background())
	}

	net, err := sim.Build(cfg, logger)
	if err != nil {
		exitWithError("failed to build network", err)
	}
	net.Start()
	defer net.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go drainEvents(ctx, net.Events(), logger)

	if len(cfg.Scenario.Steps) > 0 {
		sc, err := sim.NewScenario(net, cfg.Scenario, logger)
		if err != nil {
			exitWithError("failed to parse scenario", err)
		}
		go func() {
			if err := sc.Run(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("scenario aborted")
			}
		}()
	}

	logger.Info("overlay running, press Ctrl-C to stop")
	<-ctx.Done()
	logger.Info("shutting down")
}

// drainEvents logs the aggregated controller event stream.
func drainEvents(ctx context.Context, events <-chan wire.Event, logger log.Logger) {
	for {
		select {
		case ev := <-events:
			switch e := ev.(type) {
			case wire.PacketDropped:
				logger.Warnf("packet dropped: %s session=%d", e.Packet.Payload, e.Packet.SessionID)
			default:
				logger.Debugf("controller event: %T", ev)
			}
		case <-ctx.Done():
			return
		}
	}
}
