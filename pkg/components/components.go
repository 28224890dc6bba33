// Package components brings the interfaces, rear ports and front ports of
// devices in line with their device type's templates.
//
// In replicate mode only missing components are created. In adopt mode
// mismatched components are updated, missing ones created and orphans
// deleted, in that order. Front ports are synchronised after rear ports
// since they reference them.
package components

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/cznic/mathutil"
	"github.com/rs/zerolog/log"
)

// MaxConcurrency bounds the number of devices processed at once.
const MaxConcurrency = 64

type Mode string

const (
	ModeReplicate Mode = "replicate"
	ModeAdopt     Mode = "adopt"
)

type Store interface {
	ListDevices(ctx context.Context, filter netbox.DeviceFilter) ([]netbox.Device, error)

	ListInterfaces(ctx context.Context, deviceID int) ([]netbox.Interface, error)
	ListInterfaceTemplates(ctx context.Context, deviceTypeID int) ([]netbox.InterfaceTemplate, error)
	CreateInterface(ctx context.Context, req netbox.InterfaceRequest) (*netbox.Interface, error)
	UpdateInterface(ctx context.Context, id int, req netbox.InterfaceRequest) (*netbox.Interface, error)
	DeleteInterface(ctx context.Context, id int) error

	ListRearPorts(ctx context.Context, deviceID int) ([]netbox.RearPort, error)
	ListRearPortTemplates(ctx context.Context, deviceTypeID int) ([]netbox.RearPortTemplate, error)
	CreateRearPort(ctx context.Context, req netbox.RearPortRequest) (*netbox.RearPort, error)
	UpdateRearPort(ctx context.Context, id int, req netbox.RearPortRequest) (*netbox.RearPort, error)
	DeleteRearPort(ctx context.Context, id int) error

	ListFrontPorts(ctx context.Context, deviceID int) ([]netbox.FrontPort, error)
	ListFrontPortTemplates(ctx context.Context, deviceTypeID int) ([]netbox.FrontPortTemplate, error)
	CreateFrontPort(ctx context.Context, req netbox.FrontPortRequest) (*netbox.FrontPort, error)
	UpdateFrontPort(ctx context.Context, id int, req netbox.FrontPortRequest) (*netbox.FrontPort, error)
	DeleteFrontPort(ctx context.Context, id int) error
}

type Params struct {
	// DeviceType selects all devices of that type when Devices is empty.
	DeviceType *netbox.DeviceType
	Devices    []netbox.Device

	Interfaces bool
	RearPorts  bool
	FrontPorts bool

	Mode        Mode `validate:"oneof=replicate adopt"`
	Commit      bool
	Concurrency int `validate:"gte=0"`
}

func (p *Params) classes() []string {
	classes := []string{}
	if p.Interfaces {
		classes = append(classes, "Interfaces")
	}
	if p.RearPorts {
		classes = append(classes, "Rear Ports")
	}
	if p.FrontPorts {
		classes = append(classes, "Front Ports")
	}
	return classes
}

type Syncer struct {
	Store Store
	// Now dates the description of created components.
	Now func() time.Time
}

func NewSyncer(store Store) *Syncer {
	return &Syncer{Store: store, Now: time.Now}
}

// Sync() is a shorthand for NewSyncer(store).Sync(ctx, params).
func Sync(ctx context.Context, store Store, params Params) (*Report, error) {
	return NewSyncer(store).Sync(ctx, params)
}

// Sync() processes every selected device. Per-component failures are
// journaled and counted; only failing to select devices is returned as
// an error.
func (s *Syncer) Sync(ctx context.Context, params Params) (*Report, error) {
	if params.Mode == "" {
		params.Mode = ModeAdopt
	}
	if err := netbox.Validate(&params); err != nil {
		return nil, fmt.Errorf("invalid sync parameters: %w", err)
	}

	j := journal.New()
	report := &Report{Mode: params.Mode, Commit: params.Commit, OK: true, journal: j}
	defer report.seal()

	classes := params.classes()
	if len(classes) == 0 {
		report.OK = false
		report.Result = "Error: Please select at least one component type to synchronize."
		return report, nil
	}

	j.Info("", "=== Synchronization Started ===")
	j.Info("", "Components to sync: "+strings.Join(classes, ", "))
	j.Infof("", "Mode: %s, Commit: %t", params.Mode, params.Commit)

	devices, err := s.selectDevices(ctx, j, params)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		j.Warning("", "No devices found to process")
		report.Result = "No devices found matching the criteria."
		return report, nil
	}

	runs := s.processAll(ctx, params, devices)
	for _, run := range runs {
		j.Append(run.journal.Entries()...)
		report.Stats.add(run.stats)
	}

	j.Info("", "=== Synchronization Completed ===")
	report.finish()
	return report, nil
}

func (s *Syncer) selectDevices(ctx context.Context, j *journal.Journal, params Params) ([]netbox.Device, error) {
	switch {
	case len(params.Devices) > 0:
		j.Infof("", "Processing %d selected device(s)", len(params.Devices))
		return params.Devices, nil
	case params.DeviceType != nil:
		devices, err := s.Store.ListDevices(ctx, netbox.DeviceFilter{DeviceTypeID: params.DeviceType.ID})
		if err != nil {
			return nil, fmt.Errorf("failed to list devices of type %s: %w", params.DeviceType.Model, err)
		}
		j.Infof("", "Processing %d devices of type: %s", len(devices), params.DeviceType.FullName())
		return devices, nil
	}
	devices, err := s.Store.ListDevices(ctx, netbox.DeviceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	j.Infof("", "Processing all %d devices", len(devices))
	return devices, nil
}

// processAll() runs devices on a bounded worker pool. Each device gets
// its own journal and counters; results are returned in device order.
func (s *Syncer) processAll(ctx context.Context, params Params, devices []netbox.Device) []*deviceRun {
	runs := make([]*deviceRun, len(devices))
	for i, device := range devices {
		runs[i] = &deviceRun{
			Syncer:  s,
			device:  device,
			name:    device.String(),
			params:  params,
			journal: journal.New(),
			today:   s.now().Format("2006-01-02"),
		}
	}

	workers := mathutil.Clamp(params.Concurrency, 1, mathutil.Min(len(devices), MaxConcurrency))
	log.Debug().Int("devices", len(devices)).Int("workers", workers).Msg("synchronizing devices")

	queue := make(chan *deviceRun, len(runs))
	for _, run := range runs {
		queue <- run
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for run := range queue {
				run.process(ctx)
			}
		}()
	}
	wg.Wait()
	return runs
}

func (s *Syncer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// deviceRun is the state of one device's synchronization.
type deviceRun struct {
	*Syncer
	device  netbox.Device
	name    string
	params  Params
	journal *journal.Journal
	stats   Stats
	today   string
}

func (r *deviceRun) description() string {
	return "Created from template on " + r.today
}

func (r *deviceRun) process(ctx context.Context) {
	r.stats.DevicesProcessed++
	r.journal.Info(r.name, "Processing device...")

	if err := ctx.Err(); err != nil {
		r.failDevice(err)
		return
	}
	if r.device.DeviceTypeID() == 0 {
		r.failDevice(fmt.Errorf("device type of %s is unknown", r.name))
		return
	}

	steps := []struct {
		enabled bool
		run     func(context.Context) error
	}{
		{r.params.Interfaces, r.syncInterfaces},
		{r.params.RearPorts, r.syncRearPorts},
		{r.params.FrontPorts, r.syncFrontPorts},
	}
	for _, step := range steps {
		if !step.enabled {
			continue
		}
		if err := step.run(ctx); err != nil {
			r.failDevice(err)
			return
		}
	}
}

func (r *deviceRun) failDevice(err error) {
	log.Error().Err(err).Str("device", r.name).Msg("failed to process device")
	r.journal.Error(r.name, "Failed to process device: "+err.Error())
	r.stats.Errors++
}
