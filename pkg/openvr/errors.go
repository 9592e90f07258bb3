package openvr

import (
	"errors"
	"fmt"
)

// InitError is the host's EVRInitError code space. It is the only error
// channel the host protocol has: failures surface as one of these codes (or
// as a null interface pointer), never as anything richer.
type InitError int32

const (
	InitErrorNone    InitError = 0
	InitErrorUnknown InitError = 1

	InitErrorInitInstallationNotFound InitError = 100
	InitErrorInitInterfaceNotFound    InitError = 105
	InitErrorInitHmdNotFound          InitError = 108
	InitErrorInitNotInitialized       InitError = 109
	InitErrorInitInvalidInterface     InitError = 112
	InitErrorDriverFailed             InitError = 200
	InitErrorDriverHmdUnknown         InitError = 204
	InitErrorDriverNotLoaded          InitError = 205
)

func (e InitError) String() string {
	switch e {
	case InitErrorNone:
		return "None"
	case InitErrorUnknown:
		return "Unknown"
	case InitErrorInitInstallationNotFound:
		return "Init_InstallationNotFound"
	case InitErrorInitInterfaceNotFound:
		return "Init_InterfaceNotFound"
	case InitErrorInitHmdNotFound:
		return "Init_HmdNotFound"
	case InitErrorInitNotInitialized:
		return "Init_NotInitialized"
	case InitErrorInitInvalidInterface:
		return "Init_InvalidInterface"
	case InitErrorDriverFailed:
		return "Driver_Failed"
	case InitErrorDriverHmdUnknown:
		return "Driver_HmdUnknown"
	case InitErrorDriverNotLoaded:
		return "Driver_NotLoaded"
	default:
		return fmt.Sprintf("InitError(%d)", int32(e))
	}
}

// Error lets an InitError travel as a Go error inside the bridge. The code
// crosses the ABI as its numeric value; the text never leaves the process.
func (e InitError) Error() string {
	return "openvr: init error " + e.String()
}

// CodeOf maps a Go error to the host code the thunk layer must report.
// A nil error is success; an InitError (possibly wrapped) keeps its code;
// anything else collapses to Unknown.
func CodeOf(err error) InitError {
	if err == nil {
		return InitErrorNone
	}
	var code InitError
	if errors.As(err, &code) {
		return code
	}
	return InitErrorUnknown
}
