// vrbridge-driver builds with -buildmode=c-shared into the driver module a
// host runtime loads. The host never runs main; it resolves the exported
// HmdDriverFactory symbol and drives everything through dispatch tables
// from there.
//
// Settings come from the file named by VRBRIDGE_SETTINGS, defaults when the
// variable is unset.
package main

import (
	"os"

	"github.com/vrbridge-io/vrbridge/internal/abi"
	"github.com/vrbridge-io/vrbridge/pkg/log"
	"github.com/vrbridge-io/vrbridge/pkg/openvr"
	"github.com/vrbridge-io/vrbridge/pkg/samples/simplehmd"
)

func init() {
	log.Init(log.NewOptions())

	abi.RegisterProvider(func() openvr.ServerProvider {
		store, err := simplehmd.OpenStore(os.Getenv("VRBRIDGE_SETTINGS"))
		if err != nil {
			log.Error(err, "settings unusable, running with defaults")
			store = simplehmd.NewStore(simplehmd.DefaultSettings())
		}
		store.Watch()
		return simplehmd.NewProvider(store, nil)
	})
}

func main() {}
