package posefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vrbridge-io/vrbridge/pkg/openvr"
)

// Sample is one pose report on the wire, published as JSON. Rotation
// defaults to identity when omitted; a missing serial is rejected.
type Sample struct {
	Serial    string     `json:"serial"`
	Position  [3]float64 `json:"position"`
	Rotation  Rotation   `json:"rotation"`
	Velocity  [3]float64 `json:"velocity,omitempty"`
	Connected *bool      `json:"connected,omitempty"`

	// ReceivedAt is stamped by the source, not the publisher.
	ReceivedAt time.Time `json:"-"`
}

type Rotation struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func decodeSample(payload []byte) (Sample, error) {
	var s Sample
	if err := json.Unmarshal(payload, &s); err != nil {
		return Sample{}, fmt.Errorf("decode pose sample: %w", err)
	}
	if s.Serial == "" {
		return Sample{}, fmt.Errorf("decode pose sample: missing serial")
	}
	if (s.Rotation == Rotation{}) {
		s.Rotation = Rotation{W: 1}
	}
	return s, nil
}

// Pose converts the sample to a driver pose. Stale samples come back
// disconnected, not frozen in place.
func (s Sample) Pose(staleAfter time.Duration, now time.Time) openvr.Pose {
	if staleAfter > 0 && now.Sub(s.ReceivedAt) > staleAfter {
		return openvr.DisconnectedPose()
	}
	if s.Connected != nil && !*s.Connected {
		return openvr.DisconnectedPose()
	}
	p := openvr.DefaultPose()
	p.Position = openvr.Vector3(s.Position)
	p.Velocity = openvr.Vector3(s.Velocity)
	p.Rotation = openvr.Quaternion{W: s.Rotation.W, X: s.Rotation.X, Y: s.Rotation.Y, Z: s.Rotation.Z}
	return p
}
