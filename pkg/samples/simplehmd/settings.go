package simplehmd

import (
	"fmt"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/vrbridge-io/vrbridge/pkg/log"
)

// Settings is the driver's tunable surface: display geometry, the synthetic
// head animation, and the tracker serials to expose. Loaded from a config
// file when one is given, defaults otherwise, and hot-reloaded on file
// change without restarting the session.
type Settings struct {
	Serial      string `json:"serial" mapstructure:"serial"`
	ModelNumber string `json:"model-number" mapstructure:"model-number"`

	// Window placement and per-eye render size.
	WindowX      int32  `json:"window-x" mapstructure:"window-x"`
	WindowY      int32  `json:"window-y" mapstructure:"window-y"`
	WindowWidth  uint32 `json:"window-width" mapstructure:"window-width"`
	WindowHeight uint32 `json:"window-height" mapstructure:"window-height"`
	RenderWidth  uint32 `json:"render-width" mapstructure:"render-width"`
	RenderHeight uint32 `json:"render-height" mapstructure:"render-height"`

	DisplayOnDesktop bool `json:"display-on-desktop" mapstructure:"display-on-desktop"`
	RealDisplay      bool `json:"real-display" mapstructure:"real-display"`

	// HalfFov is the projection half-tangent used on all four frustum edges.
	HalfFov float32 `json:"half-fov" mapstructure:"half-fov"`

	// DisplayFrequency and IpdMeters are reported to the host as device
	// properties at activation.
	DisplayFrequency float64 `json:"display-frequency" mapstructure:"display-frequency"`
	IpdMeters        float64 `json:"ipd-meters" mapstructure:"ipd-meters"`

	// Synthetic head motion: a vertical bob so the view demonstrably tracks.
	HeadHeight   float64 `json:"head-height" mapstructure:"head-height"`
	BobAmplitude float64 `json:"bob-amplitude" mapstructure:"bob-amplitude"`
	BobFrequency float64 `json:"bob-frequency" mapstructure:"bob-frequency"`

	// Trackers lists serials to register as generic trackers, fed from the
	// pose feed when one is connected.
	Trackers []string `json:"trackers" mapstructure:"trackers"`
}

// DefaultSettings returns the configuration the driver runs with when no
// file is given.
func DefaultSettings() *Settings {
	return &Settings{
		Serial:           "VRB-HMD-001",
		ModelNumber:      "VRB Simple HMD",
		DisplayFrequency: 90,
		IpdMeters:        0.063,
		WindowWidth:      2880,
		WindowHeight:     1600,
		RenderWidth:      1440,
		RenderHeight:     1600,
		DisplayOnDesktop: false,
		RealDisplay:      false,
		HalfFov:          1.0,
		HeadHeight:       1.6,
		BobAmplitude:     0.02,
		BobFrequency:     0.5,
	}
}

func (s *Settings) Validate() error {
	if s.Serial == "" {
		return fmt.Errorf("serial is required")
	}
	if s.WindowWidth == 0 || s.WindowHeight == 0 {
		return fmt.Errorf("window size must be non-zero")
	}
	if s.RenderWidth == 0 || s.RenderHeight == 0 {
		return fmt.Errorf("render size must be non-zero")
	}
	if s.HalfFov <= 0 {
		return fmt.Errorf("half-fov must be positive")
	}
	return nil
}

// Store hands out the current settings and refreshes them when the backing
// file changes. Readers get a consistent snapshot; a reload swaps the whole
// pointer at once.
type Store struct {
	v   *viper.Viper
	cur atomic.Pointer[Settings]
}

// NewStore returns a store fixed at the given settings, with no file behind
// it. Used by tests and by the simulator's flag-only mode.
func NewStore(s *Settings) *Store {
	st := &Store{}
	st.cur.Store(s)
	return st
}

// OpenStore reads settings from a config file. An empty path yields a store
// with defaults and no watching.
func OpenStore(path string) (*Store, error) {
	st := &Store{}
	if path == "" {
		st.cur.Store(DefaultSettings())
		return st, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	applyDefaults(v)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read settings %q: %w", path, err)
	}
	s, err := unmarshalSettings(v)
	if err != nil {
		return nil, err
	}
	st.v = v
	st.cur.Store(s)
	return st, nil
}

// Current returns the active settings snapshot.
func (st *Store) Current() *Settings {
	return st.cur.Load()
}

// Watch starts reacting to file changes. A change that fails validation is
// logged and skipped; the previous snapshot stays active.
func (st *Store) Watch() {
	if st.v == nil {
		return
	}
	st.v.OnConfigChange(func(e fsnotify.Event) {
		s, err := unmarshalSettings(st.v)
		if err != nil {
			log.Error(err, "ignoring settings change", "file", e.Name)
			return
		}
		st.cur.Store(s)
		log.Info("settings reloaded", "file", e.Name)
	})
	st.v.WatchConfig()
}

func applyDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("serial", d.Serial)
	v.SetDefault("model-number", d.ModelNumber)
	v.SetDefault("display-frequency", d.DisplayFrequency)
	v.SetDefault("ipd-meters", d.IpdMeters)
	v.SetDefault("window-width", d.WindowWidth)
	v.SetDefault("window-height", d.WindowHeight)
	v.SetDefault("render-width", d.RenderWidth)
	v.SetDefault("render-height", d.RenderHeight)
	v.SetDefault("half-fov", d.HalfFov)
	v.SetDefault("head-height", d.HeadHeight)
	v.SetDefault("bob-amplitude", d.BobAmplitude)
	v.SetDefault("bob-frequency", d.BobFrequency)
}

func unmarshalSettings(v *viper.Viper) (*Settings, error) {
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}
