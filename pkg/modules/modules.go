// Package modules installs modules into the module bays of a set of
// devices. Two front ends share one engine: Install takes a bay -> model
// mapping, InstallPairs takes explicit bay/module pairs.
package modules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/OpenCHAMI/patchbay/pkg/client"
	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

type Store interface {
	ListModuleBayTemplates(ctx context.Context, deviceTypeID int) ([]netbox.ModuleBayTemplate, error)
	ListModuleBays(ctx context.Context, deviceID int) ([]netbox.ModuleBay, error)
	ResolveModuleType(ctx context.Context, ref string) (*netbox.ModuleType, error)
	ResolveModuleTypeByModel(ctx context.Context, model string) (*netbox.ModuleType, error)
	CreateModule(ctx context.Context, req netbox.ModuleRequest) (*netbox.Module, error)
}

// Options are shared by both variants.
type Options struct {
	Replicate   bool
	Adopt       bool
	Description string
	Commit      bool
}

type MappingParams struct {
	DeviceType netbox.DeviceType `validate:"required"`
	Devices    []netbox.Device   `validate:"required,min=1"`
	// Config is inline JSON or '@file'; see ParseConfig.
	Config string
	Options
}

type PairsParams struct {
	DeviceType netbox.DeviceType `validate:"required"`
	Devices    []netbox.Device   `validate:"required,min=1"`
	Pairs      Config
	Options
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomePlanned
	outcomeConflict
	outcomeFailed
)

// installer creates one module per call and journals what happened.
type installer struct {
	store Store
	opts  Options
	j     *journal.Journal
}

func (in *installer) install(ctx context.Context, device netbox.Device, bay netbox.ModuleBay, mt *netbox.ModuleType, prefix string) (outcome, string) {
	if !in.opts.Commit {
		return outcomePlanned, ""
	}

	replicate, adopt := in.opts.Replicate, in.opts.Adopt
	req := netbox.ModuleRequest{
		Device:              device.ID,
		ModuleBay:           bay.ID,
		ModuleType:          mt.ID,
		Status:              netbox.ModuleStatusActive,
		Description:         in.opts.Description,
		ReplicateComponents: &replicate,
		AdoptComponents:     &adopt,
	}
	_, err := in.store.CreateModule(ctx, req)
	if err != nil && (client.Mentions(err, "replicate_components") || client.Mentions(err, "adopt_components")) {
		in.j.Warning(device.String(), prefix+"Component replication not supported in this NetBox version")
		req.ReplicateComponents, req.AdoptComponents = nil, nil
		_, err = in.store.CreateModule(ctx, req)
	}
	switch {
	case err == nil:
		return outcomeCreated, ""
	case client.IsConflict(err):
		return outcomeConflict, ClassifyConflict(err)
	}
	log.Error().Err(err).Str("device", device.String()).Str("bay", bay.Name).Msg("failed to create module")
	return outcomeFailed, err.Error()
}

// ClassifyConflict() names the kind of component that collided.
func ClassifyConflict(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "powerport") || strings.Contains(msg, "power port"):
		return "Power port name conflict"
	case strings.Contains(msg, "interface"):
		return "Interface name conflict"
	case strings.Contains(msg, "consoleport") || strings.Contains(msg, "console port"):
		return "Console port name conflict"
	}
	return "Duplicate component conflict"
}

func sortBays(bays []netbox.ModuleBay) {
	slices.SortStableFunc(bays, func(a, b netbox.ModuleBay) int {
		return strings.Compare(a.Position, b.Position)
	})
}

func positionOf(position string) string {
	if position == "" {
		return "N/A"
	}
	return position
}

func installedModel(bay netbox.ModuleBay) string {
	if bay.InstalledModule == nil || bay.InstalledModule.ModuleType == nil {
		return "unknown"
	}
	return bay.InstalledModule.ModuleType.Model
}

func checkDeviceType(j *journal.Journal, dt netbox.DeviceType, device netbox.Device) {
	if id := device.DeviceTypeID(); id != 0 && id != dt.ID {
		j.Warning(device.String(), fmt.Sprintf("  %s is not a %s (device type %s); processing anyway",
			device, dt.Model, device.DeviceType.Model))
	}
}

// Install() runs the mapping variant.
func Install(ctx context.Context, store Store, params MappingParams) (*Report, error) {
	if err := netbox.Validate(&params); err != nil {
		return nil, fmt.Errorf("invalid module parameters: %w", err)
	}
	params.Description = strings.TrimSpace(params.Description)

	var (
		dt     = params.DeviceType
		j      = journal.New()
		in     = &installer{store: store, opts: params.Options, j: j}
		report = newReport(VariantMapping, dt, params.Devices, params.Options, j)
		rule   = strings.Repeat("=", 70)
	)
	defer report.seal()

	config, err := ParseConfig(params.Config)
	if errors.Is(err, ErrInvalidConfig) {
		j.Failure("", "Invalid JSON format in module configuration", journal.Details{"error": err.Error()})
		return report.fail("Error: Invalid JSON format"), nil
	}
	if err != nil {
		return nil, err
	}
	report.Config = config

	templates, err := store.ListModuleBayTemplates(ctx, dt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module bay templates of %s: %w", dt.Model, err)
	}
	if len(templates) == 0 {
		j.Warning("", "No module bays found for device type: "+dt.Model)
		report.Result = "No module bays in template"
		return report, nil
	}
	slices.SortStableFunc(templates, func(a, b netbox.ModuleBayTemplate) int {
		return strings.Compare(a.Position, b.Position)
	})

	j.Info("", rule)
	j.Info("", "DEVICE TYPE: "+dt.FullName())
	j.Info("", rule)
	j.Infof("", "Available Module Bays: %d", len(templates))
	for i, bay := range templates {
		pos := "No Position"
		if bay.Position != "" {
			pos = "Position " + bay.Position
		}
		j.Infof("", "  #%d. %s (%s)", i+1, bay.Name, pos)
	}

	j.Info("", "CONFIGURATION")
	j.Infof("", "Replicate Components: %t", params.Replicate)
	j.Infof("", "Adopt Components: %t", params.Adopt)
	if params.Description != "" {
		j.Info("", "Description: "+params.Description)
	}
	j.Info("", "MODULE MAPPING:")

	moduleTypes := map[string]*netbox.ModuleType{}
	for _, binding := range config {
		if binding.Module == "" {
			continue
		}
		mt, err := store.ResolveModuleTypeByModel(ctx, binding.Module)
		if err != nil {
			if msg, ok := lookupFailure(j, binding.Module, err); ok {
				return report.fail(msg), nil
			}
			return nil, fmt.Errorf("failed to look up module type '%s': %w", binding.Module, err)
		}
		moduleTypes[binding.Bay] = mt
		j.Infof("", "  %s → %s", binding.Bay, mt.FullName())
	}
	if len(moduleTypes) == 0 {
		j.Warning("", "No modules configured")
		return report.fail("Error: No modules configured"), nil
	}

	j.Info("", "PROCESSING DEVICES")
	for _, device := range params.Devices {
		name := device.String()
		j.Info(name, "▼ "+name)
		checkDeviceType(j, dt, device)

		bays, err := store.ListModuleBays(ctx, device.ID)
		if err != nil {
			j.Error(name, "  Failed to list module bays", journal.Details{"error": err.Error()})
			report.Errors++
			continue
		}
		if len(bays) == 0 {
			j.Warning(name, "  No module bays found")
			report.Errors++
			continue
		}
		sortBays(bays)

		for i, bay := range bays {
			prefix := fmt.Sprintf("  #%d %s: ", i+1, bay.Name)
			result := Result{Device: name, Bay: bay.Name, Position: positionOf(bay.Position)}

			mt, configured := moduleTypes[bay.Name]
			if !configured {
				j.Info(name, prefix+"Skipped (not configured)")
				result.Status, result.Module = StatusSkipped, "Not configured"
				report.add(result)
				continue
			}
			if bay.InstalledModule != nil {
				model := installedModel(bay)
				j.Warning(name, fmt.Sprintf("%sAlready occupied (%s)", prefix, model))
				result.Status, result.Module = StatusOccupied, model
				report.add(result)
				continue
			}

			switch outcome, msg := in.install(ctx, device, bay, mt, prefix); outcome {
			case outcomeCreated:
				j.Success(name, prefix+"✓ Installed "+mt.Model)
				result.Status, result.Module = StatusCreated, mt.FullName()
			case outcomePlanned:
				j.Info(name, prefix+"Will install "+mt.Model)
				result.Status, result.Module = StatusPlanned, mt.FullName()
			case outcomeConflict:
				j.Warning(name, fmt.Sprintf("%s⚠ Skipped - %s", prefix, msg), journal.Details{
					"action": "Component already exists on device. Please rename or remove existing component.",
				})
				result.Status, result.Module, result.Warning = StatusWarning, mt.Model, msg
			case outcomeFailed:
				j.Failure(name, prefix+"✗ Failed - "+msg)
				result.Status, result.Module, result.Warning = StatusError, mt.Model, msg
			}
			report.add(result)
		}
	}

	report.finish()
	return report, nil
}

// InstallPairs() runs the pairs variant: only bays named in Pairs are
// touched, and modules may be given by model or ID.
func InstallPairs(ctx context.Context, store Store, params PairsParams) (*Report, error) {
	if err := netbox.Validate(&params); err != nil {
		return nil, fmt.Errorf("invalid module parameters: %w", err)
	}
	params.Description = strings.TrimSpace(params.Description)

	var (
		dt     = params.DeviceType
		j      = journal.New()
		in     = &installer{store: store, opts: params.Options, j: j}
		report = newReport(VariantPairs, dt, params.Devices, params.Options, j)
	)
	defer report.seal()

	pairs := Config{}
	for _, pair := range params.Pairs {
		if bay := strings.TrimSpace(pair.Bay); bay != "" && pair.Module != "" {
			pairs.set(bay, strings.TrimSpace(pair.Module))
		}
	}
	report.Config = pairs
	if len(pairs) == 0 {
		j.Failure("", "No bay/module pairs configured")
		return report.fail("Error: No bay/module pairs configured"), nil
	}

	templates, err := store.ListModuleBayTemplates(ctx, dt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list module bay templates of %s: %w", dt.Model, err)
	}
	j.Infof("", "Available bays in %s:", dt.Model)
	for _, bay := range templates {
		j.Info("", "  - "+bay.Name)
	}

	j.Info("", "Module Configuration:")
	moduleTypes := map[string]*netbox.ModuleType{}
	for _, pair := range pairs {
		mt, err := store.ResolveModuleType(ctx, pair.Module)
		if err != nil {
			if msg, ok := lookupFailure(j, pair.Module, err); ok {
				return report.fail(msg), nil
			}
			return nil, fmt.Errorf("failed to look up module type '%s': %w", pair.Module, err)
		}
		moduleTypes[pair.Bay] = mt
		j.Infof("", "  %s → %s", pair.Bay, mt.Model)
	}
	j.Infof("", "Replicate Components: %t", params.Replicate)
	j.Infof("", "Adopt Components: %t", params.Adopt)

	for _, device := range params.Devices {
		name := device.String()
		j.Info(name, name+":")
		checkDeviceType(j, dt, device)

		bays, err := store.ListModuleBays(ctx, device.ID)
		if err != nil {
			j.Error(name, "  Failed to list module bays", journal.Details{"error": err.Error()})
			report.Errors++
			continue
		}

		for _, bay := range bays {
			mt, ok := moduleTypes[bay.Name]
			if !ok {
				continue
			}
			result := Result{Device: name, Bay: bay.Name, Position: positionOf(bay.Position)}
			if bay.InstalledModule != nil {
				j.Warning(name, fmt.Sprintf("  %s: Already occupied", bay.Name))
				result.Status, result.Module = StatusOccupied, installedModel(bay)
				report.add(result)
				continue
			}

			switch outcome, msg := in.install(ctx, device, bay, mt, "  "+bay.Name+": "); outcome {
			case outcomeCreated:
				j.Success(name, fmt.Sprintf("  ✓ %s: %s", bay.Name, mt.Model))
				result.Status, result.Module = StatusCreated, mt.Model
			case outcomePlanned:
				j.Info(name, fmt.Sprintf("  Will install %s: %s", bay.Name, mt.Model))
				result.Status, result.Module = StatusPlanned, mt.Model
			case outcomeConflict:
				j.Warning(name, fmt.Sprintf("  ⚠ %s: Component conflict - skipped", bay.Name))
				result.Status, result.Module, result.Warning = StatusWarning, mt.Model, msg
			case outcomeFailed:
				j.Failure(name, fmt.Sprintf("  ✗ %s: %s", bay.Name, msg))
				result.Status, result.Module, result.Warning = StatusError, mt.Model, msg
			}
			report.add(result)
		}
	}

	report.finish()
	return report, nil
}

// lookupFailure() journals a module type that is missing or ambiguous
// and returns the result line for it. Other errors are not handled.
func lookupFailure(j *journal.Journal, ref string, err error) (string, bool) {
	switch {
	case errors.Is(err, netbox.ErrNotFound):
		j.Failure("", fmt.Sprintf("Module type '%s' not found in NetBox", ref))
		return fmt.Sprintf("Error: Module type '%s' does not exist", ref), true
	case errors.Is(err, netbox.ErrAmbiguous):
		j.Failure("", fmt.Sprintf("Module type '%s' matches more than one module type in NetBox", ref))
		return fmt.Sprintf("Error: Module type '%s' is ambiguous", ref), true
	}
	return "", false
}
