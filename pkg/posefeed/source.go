// Package posefeed streams tracked-device poses from an MQTT broker into
// driver code. Samples are JSON messages keyed by device serial; the source
// keeps only the latest sample per serial, so a slow consumer never backs
// the broker up.
package posefeed

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// Source subscribes to a pose topic and answers point lookups with the
// latest known sample. Safe for concurrent use; PoseFor is cheap enough for
// a per-frame call.
type Source struct {
	opts *Options
	cm   *autopaho.ConnectionManager

	mu     sync.RWMutex
	latest map[string]Sample

	now func() time.Time
}

// NewSource validates the options and builds an unstarted source.
func NewSource(opts *Options) (*Source, error) {
	if opts == nil {
		return nil, fmt.Errorf("posefeed options are required")
	}
	opts.setDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid posefeed options: %w", err)
	}
	return &Source{
		opts:   opts,
		latest: make(map[string]Sample),
		now:    time.Now,
	}, nil
}

// Start connects to the broker and subscribes. The connection manager keeps
// reconnecting until ctx is cancelled.
func (s *Source) Start(ctx context.Context) error {
	brokerURL, _ := url.Parse(s.opts.BrokerURL) // validated in NewSource

	cfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       s.opts.KeepAlive,
		ConnectTimeout:  s.opts.ConnectTimeout,
		ConnectUsername: s.opts.Username,
		ConnectPassword: []byte(s.opts.Password),
		TlsCfg: &tls.Config{
			InsecureSkipVerify: s.opts.InsecureSkipVerify,
		},
		ClientConfig: paho.ClientConfig{
			ClientID: s.opts.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				s.onMessage,
			},
			OnClientError: func(err error) {
				log.Error(err, "posefeed client error")
			},
		},
		OnConnectionUp: s.onConnectionUp,
		OnConnectError: func(err error) {
			log.Error(err, "posefeed connect failed, retrying")
		},
	}

	log.Info("starting pose feed", "broker", s.opts.BrokerURL, "topic", s.opts.Topic)
	cm, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return err
	}
	s.cm = cm
	return nil
}

// AwaitConnection blocks until the first broker connection or ctx expiry.
func (s *Source) AwaitConnection(ctx context.Context) error {
	if s.cm == nil {
		return fmt.Errorf("posefeed not started")
	}
	return s.cm.AwaitConnection(ctx)
}

// Close disconnects from the broker.
func (s *Source) Close(ctx context.Context) {
	if s.cm != nil {
		_ = s.cm.Disconnect(ctx)
		log.Info("pose feed disconnected")
	}
}

func (s *Source) onConnectionUp(cm *autopaho.ConnectionManager, _ *paho.Connack) {
	// Subscriptions do not survive a clean reconnect; renew on every up.
	if _, err := cm.Subscribe(context.Background(), &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{
			{Topic: s.opts.Topic, QoS: byte(s.opts.QoS)},
		},
	}); err != nil {
		log.Error(err, "posefeed subscribe failed", "topic", s.opts.Topic)
		return
	}
	log.Info("pose feed subscribed", "topic", s.opts.Topic)
}

func (s *Source) onMessage(p paho.PublishReceived) (bool, error) {
	sample, err := decodeSample(p.Packet.Payload)
	if err != nil {
		log.Debug("dropping malformed pose sample", "topic", p.Packet.Topic, "err", err.Error())
		return true, nil
	}
	sample.ReceivedAt = s.now()
	s.store(sample)
	return true, nil
}

func (s *Source) store(sample Sample) {
	s.mu.Lock()
	s.latest[sample.Serial] = sample
	s.mu.Unlock()
}

// Latest returns the newest sample for a serial.
func (s *Source) Latest(serial string) (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sample, ok := s.latest[serial]
	return sample, ok
}

// PoseFor resolves a serial to a driver pose. Unknown serials and stale
// samples come back as disconnected poses.
func (s *Source) PoseFor(serial string) openvr.Pose {
	sample, ok := s.Latest(serial)
	if !ok {
		return openvr.DisconnectedPose()
	}
	return sample.Pose(s.opts.StaleAfter, s.now())
}

// Serials lists every serial seen so far, in no particular order.
func (s *Source) Serials() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.latest))
	for serial := range s.latest {
		out = append(out, serial)
	}
	return out
}
