package patchbay

import (
	"context"
	"fmt"

	"github.com/OpenCHAMI/patchbay/internal/util"
	"github.com/OpenCHAMI/patchbay/pkg/modules"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
)

type ModulesParams struct {
	DeviceType string
	Devices    []string
	// Config is the mapping variant's bay -> model JSON, or '@file'.
	Config string
	// Pairs are the pairs variant's "BAY=MODULE" arguments.
	Pairs       []string
	Replicate   bool
	Adopt       bool
	Description string
	Commit      bool
}

func (p ModulesParams) options() modules.Options {
	return modules.Options{
		Replicate:   p.Replicate,
		Adopt:       p.Adopt,
		Description: p.Description,
		Commit:      p.Commit,
	}
}

// InstallModules() runs the mapping variant of the module installer.
func InstallModules(ctx context.Context, nb *netbox.Client, params ModulesParams) (*modules.Report, error) {
	dt, devices, err := resolveTargets(ctx, nb, params.DeviceType, params.Devices)
	if err != nil {
		return nil, err
	}
	return modules.Install(ctx, nb, modules.MappingParams{
		DeviceType: *dt,
		Devices:    devices,
		Config:     params.Config,
		Options:    params.options(),
	})
}

// InstallModulePairs() runs the pairs variant. Malformed pairs are
// rejected before anything is resolved.
func InstallModulePairs(ctx context.Context, nb *netbox.Client, params ModulesParams) (*modules.Report, error) {
	pairs := modules.Config{}
	for _, arg := range params.Pairs {
		pair, err := modules.ParsePair(arg)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	dt, devices, err := resolveTargets(ctx, nb, params.DeviceType, params.Devices)
	if err != nil {
		return nil, err
	}
	return modules.InstallPairs(ctx, nb, modules.PairsParams{
		DeviceType: *dt,
		Devices:    devices,
		Pairs:      pairs,
		Options:    params.options(),
	})
}

func resolveTargets(ctx context.Context, nb *netbox.Client, deviceType string, refs []string) (*netbox.DeviceType, []netbox.Device, error) {
	if deviceType == "" {
		return nil, nil, fmt.Errorf("no device type given")
	}
	dt, err := nb.ResolveDeviceType(ctx, deviceType)
	if err != nil {
		return nil, nil, err
	}
	devices, err := resolveDevices(ctx, nb, refs)
	if err != nil {
		return nil, nil, err
	}
	return dt, devices, nil
}

// resolveDevices() looks up every reference, collecting all failures
// into one error.
func resolveDevices(ctx context.Context, nb *netbox.Client, refs []string) ([]netbox.Device, error) {
	var (
		devices = make([]netbox.Device, 0, len(refs))
		errs    []error
	)
	for _, ref := range refs {
		device, err := nb.ResolveDevice(ctx, ref)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		devices = append(devices, *device)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to resolve devices:\n%w", util.FormatErrorList(errs))
	}
	return devices, nil
}
