package posefeed

import (
	"errors"
	"net/url"
	"time"

	"github.com/spf13/pflag"
)

// Options configures the MQTT pose source.
type Options struct {
	// BrokerURL is the mqtt(s):// or tcp:// address of the broker.
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// Topic is the filter the source subscribes to. Wildcards are fine;
	// samples carry their own serial.
	Topic string
	QoS   int

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout for the initial connection. Default is 5s.
	ConnectTimeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification, for lab
	// brokers with self-signed certs.
	InsecureSkipVerify bool

	// StaleAfter marks a sample disconnected when no newer one arrived
	// within this window. Zero disables staleness checks.
	StaleAfter time.Duration
}

// NewOptions returns options with usable defaults.
func NewOptions() *Options {
	return &Options{
		ClientID:       "vrbridge-posefeed",
		Topic:          "vrbridge/pose/+",
		QoS:            0,
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		StaleAfter:     2 * time.Second,
	}
}

// AddFlags binds the options to a flag set.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.BrokerURL, "posefeed-broker", o.BrokerURL, "MQTT broker URL for the pose feed, empty disables it")
	fs.StringVar(&o.ClientID, "posefeed-client-id", o.ClientID, "MQTT client ID")
	fs.StringVar(&o.Username, "posefeed-username", o.Username, "MQTT username")
	fs.StringVar(&o.Password, "posefeed-password", o.Password, "MQTT password")
	fs.StringVar(&o.Topic, "posefeed-topic", o.Topic, "MQTT topic filter carrying pose samples")
	fs.IntVar(&o.QoS, "posefeed-qos", o.QoS, "MQTT QoS for the pose subscription")
	fs.DurationVar(&o.StaleAfter, "posefeed-stale-after", o.StaleAfter, "Age after which a pose sample counts as disconnected")
	fs.BoolVar(&o.InsecureSkipVerify, "posefeed-insecure-skip-verify", o.InsecureSkipVerify, "Skip TLS certificate verification")
}

func (o *Options) setDefaults() {
	if o.ConnectTimeout == 0 {
		o.ConnectTimeout = 5 * time.Second
	}
	if o.KeepAlive == 0 {
		o.KeepAlive = 60
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	if o.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	if _, err := url.Parse(o.BrokerURL); err != nil {
		return err
	}
	if o.Topic == "" {
		return errors.New("topic is required")
	}
	if o.QoS < 0 || o.QoS > 2 {
		return errors.New("qos must be 0, 1 or 2")
	}
	return nil
}
