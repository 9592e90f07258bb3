package options

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/posefeed"
)

// SimOptions configures a simulator run.
type SimOptions struct {
	Log      *log.Options
	PoseFeed *posefeed.Options

	// SettingsFile is the driver settings file, hot-reloaded while running.
	SettingsFile string

	// ListenAddr is where the status API and metrics are served.
	ListenAddr string

	// FrameRate is how often RunFrame is driven, in Hz.
	FrameRate int

	// Duration bounds the run; zero runs until a signal arrives.
	Duration time.Duration

	// AutoActivate makes the simulated host activate devices synchronously
	// inside registration, the way a production host may.
	AutoActivate bool

	// DriverHandle is the handle the simulated host reports to the driver.
	DriverHandle uint64
}

func NewSimOptions() *SimOptions {
	return &SimOptions{
		Log:          log.NewOptions(),
		PoseFeed:     posefeed.NewOptions(),
		ListenAddr:   ":8090",
		FrameRate:    90,
		AutoActivate: true,
		DriverHandle: 1,
	}
}

func (o *SimOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.SettingsFile, "settings", o.SettingsFile, "Driver settings file, defaults when empty")
	fs.StringVar(&o.ListenAddr, "listen", o.ListenAddr, "Address for the status API and metrics")
	fs.IntVar(&o.FrameRate, "frame-rate", o.FrameRate, "RunFrame rate in Hz")
	fs.DurationVar(&o.Duration, "duration", o.Duration, "Stop after this long, 0 runs until interrupted")
	fs.BoolVar(&o.AutoActivate, "auto-activate", o.AutoActivate, "Activate devices synchronously inside registration")
	fs.Uint64Var(&o.DriverHandle, "driver-handle", o.DriverHandle, "Driver handle the simulated host reports")

	o.Log.AddFlags(fs)
	o.PoseFeed.AddFlags(fs)
}

func (o *SimOptions) Validate() error {
	if o.FrameRate <= 0 || o.FrameRate > 1000 {
		return errors.New("frame-rate must be in (0, 1000]")
	}
	if o.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	// The pose feed is optional; validate only when a broker is given.
	if o.PoseFeed.BrokerURL != "" {
		if err := o.PoseFeed.Validate(); err != nil {
			return err
		}
	}
	return nil
}
