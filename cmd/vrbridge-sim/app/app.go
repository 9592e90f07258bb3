// Package app assembles the simulator: it loads the sample driver behind
// the real entry factory, stands up a simulated host, and drives the
// session at frame rate while serving a status API.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vrbridge-io/vrbridge/cmd/vrbridge-sim/app/options"
	"github.com/vrbridge-io/vrbridge/internal/abi"
	"github.com/vrbridge-io/vrbridge/internal/simserver"
	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
	"github.com/vrbridge-io/vrbridge/pkg/posefeed"
	"github.com/vrbridge-io/vrbridge/pkg/samples/simplehmd"
)

const commandDesc = `vrbridge-sim loads the sample driver through the exported entry factory
and drives it from a simulated host: frame loop, device activation, pose
capture. Session state is observable over HTTP, including Prometheus
metrics. With an MQTT broker configured, external pose samples feed the
driver's trackers.`

func NewSimCommand() *cobra.Command {
	opts := options.NewSimOptions()

	cmd := &cobra.Command{
		Use:          "vrbridge-sim",
		Short:        "Drive the vrbridge sample driver under a simulated host",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.Validate(); err != nil {
				return err
			}
			return run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func run(opts *options.SimOptions) error {
	log.Init(opts.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	store, err := simplehmd.OpenStore(opts.SettingsFile)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	store.Watch()

	var source simplehmd.PoseSource
	if opts.PoseFeed.BrokerURL != "" {
		feed, err := posefeed.NewSource(opts.PoseFeed)
		if err != nil {
			return err
		}
		if err := feed.Start(ctx); err != nil {
			return fmt.Errorf("start pose feed: %w", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			feed.Close(closeCtx)
		}()
		source = feed
	}

	abi.RegisterProvider(func() openvr.ServerProvider {
		return simplehmd.NewProvider(store, source)
	})
	defer abi.Reset()

	sim, err := abi.NewHostSim(opts.DriverHandle, opts.AutoActivate)
	if err != nil {
		return err
	}
	defer sim.Close()

	provider, code := abi.Factory(openvr.InterfaceServerTrackedDeviceProvider005)
	if code != openvr.InitErrorNone {
		return fmt.Errorf("entry factory: %s", code)
	}
	if code := provider.Init(sim); code != openvr.InitErrorNone {
		return fmt.Errorf("provider init: %s", code)
	}
	defer provider.Cleanup()

	log.Info("session up", "devices", sim.DeviceCount(), "frameRate", opts.FrameRate)

	var frames atomic.Uint64
	status := func() simserver.Status {
		st := simserver.Status{
			DriverHandle: opts.DriverHandle,
			Frames:       frames.Load(),
			PoseUpdates:  sim.PoseUpdates(),
		}
		for i := 0; i < sim.DeviceCount(); i++ {
			st.Devices = append(st.Devices, simserver.DeviceInfo{
				Serial: sim.DeviceSerial(i),
				Class:  sim.DeviceClass(i).String(),
				Index:  sim.DeviceIndex(i),
			})
		}
		return st
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(time.Second / time.Duration(opts.FrameRate))
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				provider.RunFrame()
				frames.Add(1)
			}
		}
	})

	g.Go(func() error {
		return simserver.New(opts.ListenAddr, status).Run(gctx)
	})

	err = g.Wait()
	log.Info("session down", "frames", frames.Load(), "poseUpdates", sim.PoseUpdates())
	return err
}
