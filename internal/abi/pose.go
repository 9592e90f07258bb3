package abi

/*
#include "bridge.h"
*/
import "C"

import "github.com/vrbridge-io/vrbridge/pkg/openvr"

// poseToC copies a pose field-for-field into the wire struct. Called on the
// GetPose hot path, so it writes into a caller-owned struct and allocates
// nothing.
func poseToC(p openvr.Pose, out *C.vrb_driver_pose_t) {
	out.pose_time_offset = C.double(p.PoseTimeOffset)
	quatToC(p.WorldFromDriverRotation, &out.world_from_driver_rotation)
	vecToC(p.WorldFromDriverTranslation, &out.world_from_driver_translation)
	quatToC(p.DriverFromHeadRotation, &out.driver_from_head_rotation)
	vecToC(p.DriverFromHeadTranslation, &out.driver_from_head_translation)
	vecToC(p.Position, &out.position)
	vecToC(p.Velocity, &out.velocity)
	vecToC(p.Acceleration, &out.acceleration)
	quatToC(p.Rotation, &out.rotation)
	vecToC(p.AngularVelocity, &out.angular_velocity)
	vecToC(p.AngularAcceleration, &out.angular_acceleration)
	out.result = C.int32_t(p.Result)
	out.pose_is_valid = C.bool(p.PoseIsValid)
	out.will_drift_in_yaw = C.bool(p.WillDriftInYaw)
	out.should_apply_head_model = C.bool(p.ShouldApplyHeadModel)
	out.device_is_connected = C.bool(p.DeviceIsConnected)
}

// poseFromC is the inverse, used by the simulator harness to read captured
// host-side poses back into Go.
func poseFromC(in *C.vrb_driver_pose_t) openvr.Pose {
	return openvr.Pose{
		PoseTimeOffset:             float64(in.pose_time_offset),
		WorldFromDriverRotation:    quatFromC(&in.world_from_driver_rotation),
		WorldFromDriverTranslation: vecFromC(&in.world_from_driver_translation),
		DriverFromHeadRotation:     quatFromC(&in.driver_from_head_rotation),
		DriverFromHeadTranslation:  vecFromC(&in.driver_from_head_translation),
		Position:                   vecFromC(&in.position),
		Velocity:                   vecFromC(&in.velocity),
		Acceleration:               vecFromC(&in.acceleration),
		Rotation:                   quatFromC(&in.rotation),
		AngularVelocity:            vecFromC(&in.angular_velocity),
		AngularAcceleration:        vecFromC(&in.angular_acceleration),
		Result:                     openvr.TrackingResult(in.result),
		PoseIsValid:                bool(in.pose_is_valid),
		WillDriftInYaw:             bool(in.will_drift_in_yaw),
		ShouldApplyHeadModel:       bool(in.should_apply_head_model),
		DeviceIsConnected:          bool(in.device_is_connected),
	}
}

func quatToC(q openvr.Quaternion, out *C.vrb_quaternion_t) {
	out.w = C.double(q.W)
	out.x = C.double(q.X)
	out.y = C.double(q.Y)
	out.z = C.double(q.Z)
}

func quatFromC(in *C.vrb_quaternion_t) openvr.Quaternion {
	return openvr.Quaternion{
		W: float64(in.w), X: float64(in.x), Y: float64(in.y), Z: float64(in.z),
	}
}

func vecToC(v openvr.Vector3, out *[3]C.double) {
	out[0] = C.double(v[0])
	out[1] = C.double(v[1])
	out[2] = C.double(v[2])
}

func vecFromC(in *[3]C.double) openvr.Vector3 {
	return openvr.Vector3{float64(in[0]), float64(in[1]), float64(in[2])}
}
