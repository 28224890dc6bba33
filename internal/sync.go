package patchbay

import (
	"context"

	"github.com/OpenCHAMI/patchbay/pkg/components"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
)

type SyncParams struct {
	// DeviceType selects every device of that type when Devices is empty.
	// With neither, all devices are synchronized.
	DeviceType  string
	Devices     []string
	Interfaces  bool
	RearPorts   bool
	FrontPorts  bool
	Mode        string
	Commit      bool
	Concurrency int
}

// SyncComponents() resolves the device selection and runs the component
// synchronizer.
func SyncComponents(ctx context.Context, nb *netbox.Client, params SyncParams) (*components.Report, error) {
	p := components.Params{
		Interfaces:  params.Interfaces,
		RearPorts:   params.RearPorts,
		FrontPorts:  params.FrontPorts,
		Mode:        components.Mode(params.Mode),
		Commit:      params.Commit,
		Concurrency: params.Concurrency,
	}
	if params.DeviceType != "" {
		dt, err := nb.ResolveDeviceType(ctx, params.DeviceType)
		if err != nil {
			return nil, err
		}
		p.DeviceType = dt
	}
	if len(params.Devices) > 0 {
		devices, err := resolveDevices(ctx, nb, params.Devices)
		if err != nil {
			return nil, err
		}
		p.Devices = devices
	}
	return components.Sync(ctx, nb, p)
}
