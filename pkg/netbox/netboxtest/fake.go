// Package netboxtest provides an in-memory stand-in for the NetBox API.
// Fake satisfies the store interfaces of pkg/link, pkg/modules and
// pkg/components and records every mutation it receives.
package netboxtest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"golang.org/x/exp/slices"
)

type Fake struct {
	mu     sync.Mutex
	nextID int

	Devices            []netbox.Device
	ModuleTypes        []netbox.ModuleType
	Interfaces         map[int][]netbox.Interface
	InterfaceTemplates map[int][]netbox.InterfaceTemplate
	RearPorts          map[int][]netbox.RearPort
	RearPortTemplates  map[int][]netbox.RearPortTemplate
	FrontPorts         map[int][]netbox.FrontPort
	FrontPortTemplates map[int][]netbox.FrontPortTemplate
	ModuleBays         map[int][]netbox.ModuleBay
	ModuleBayTemplates map[int][]netbox.ModuleBayTemplate
	Modules            []netbox.Module
	Cables             []netbox.CableRequest

	// Errors makes an operation fail. Keys are "<Op> <name>" to fail a
	// single object, or "<Op>" to fail every call.
	Errors map[string]error

	// Mutations lists every write in the order received, e.g.
	// "CreateCable pp1:1 <-> pp2:1".
	Mutations []string

	// Updates keeps the request body of each update, keyed like Mutations.
	Updates map[string]any
}

func New() *Fake {
	return &Fake{
		nextID:             100,
		Interfaces:         map[int][]netbox.Interface{},
		InterfaceTemplates: map[int][]netbox.InterfaceTemplate{},
		RearPorts:          map[int][]netbox.RearPort{},
		RearPortTemplates:  map[int][]netbox.RearPortTemplate{},
		FrontPorts:         map[int][]netbox.FrontPort{},
		FrontPortTemplates: map[int][]netbox.FrontPortTemplate{},
		ModuleBays:         map[int][]netbox.ModuleBay{},
		ModuleBayTemplates: map[int][]netbox.ModuleBayTemplate{},
		Errors:             map[string]error{},
		Updates:            map[string]any{},
	}
}

func choice(v string) *netbox.ChoiceValue {
	if v == "" {
		return nil
	}
	return &netbox.ChoiceValue{Value: v, Label: v}
}

func (f *Fake) id() int {
	f.nextID++
	return f.nextID
}

func (f *Fake) fail(op string, name string) error {
	if err, ok := f.Errors[op+" "+name]; ok {
		return err
	}
	if err, ok := f.Errors[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) mutate(op string, name string) error {
	if err := f.fail(op, name); err != nil {
		return err
	}
	f.Mutations = append(f.Mutations, op+" "+name)
	return nil
}

// Fixture builders.

func (f *Fake) AddDeviceType(manufacturer string, model string) *netbox.DeviceType {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &netbox.DeviceType{
		ID:           f.id(),
		Model:        model,
		Slug:         model,
		Manufacturer: &netbox.NestedManufacturer{ID: f.id(), Name: manufacturer},
	}
}

func (f *Fake) AddDevice(name string, dt *netbox.DeviceType) netbox.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := netbox.Device{ID: f.id(), Name: name, Display: name}
	if dt != nil {
		d.DeviceType = &netbox.NestedDeviceType{ID: dt.ID, Model: dt.Model, Slug: dt.Slug, Manufacturer: dt.Manufacturer}
	}
	f.Devices = append(f.Devices, d)
	return d
}

func (f *Fake) AddRearPort(device netbox.Device, name string, typ string, positions int) netbox.RearPort {
	f.mu.Lock()
	defer f.mu.Unlock()
	rp := netbox.RearPort{ID: f.id(), Name: name, Display: name, Type: choice(typ), Positions: positions}
	f.RearPorts[device.ID] = append(f.RearPorts[device.ID], rp)
	return rp
}

// ConnectRearPort() marks a rear port as cabled.
func (f *Fake) ConnectRearPort(device netbox.Device, name string, cableID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rp := range f.RearPorts[device.ID] {
		if rp.Name == name {
			f.RearPorts[device.ID][i].Cable = &netbox.NestedCable{ID: cableID}
		}
	}
}

func (f *Fake) AddRearPortTemplate(dt *netbox.DeviceType, name string, typ string, positions int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RearPortTemplates[dt.ID] = append(f.RearPortTemplates[dt.ID],
		netbox.RearPortTemplate{ID: f.id(), Name: name, Type: choice(typ), Positions: positions})
}

func (f *Fake) AddFrontPort(device netbox.Device, name string, typ string, rear *netbox.RearPort, position int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp := netbox.FrontPort{ID: f.id(), Name: name, Display: name, Type: choice(typ), RearPortPosition: position}
	if rear != nil {
		fp.RearPort = &netbox.NestedRearPort{ID: rear.ID, Name: rear.Name}
	}
	f.FrontPorts[device.ID] = append(f.FrontPorts[device.ID], fp)
}

func (f *Fake) AddFrontPortTemplate(dt *netbox.DeviceType, name string, typ string, rearName string, position int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fpt := netbox.FrontPortTemplate{ID: f.id(), Name: name, Type: choice(typ), RearPortPosition: position}
	if rearName != "" {
		fpt.RearPort = &netbox.NestedRearPort{ID: f.id(), Name: rearName}
	}
	f.FrontPortTemplates[dt.ID] = append(f.FrontPortTemplates[dt.ID], fpt)
}

func (f *Fake) AddInterface(device netbox.Device, name string, typ string, mgmtOnly bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Interfaces[device.ID] = append(f.Interfaces[device.ID],
		netbox.Interface{ID: f.id(), Name: name, Display: name, Type: choice(typ), MgmtOnly: mgmtOnly})
}

func (f *Fake) AddInterfaceTemplate(dt *netbox.DeviceType, name string, typ string, mgmtOnly bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InterfaceTemplates[dt.ID] = append(f.InterfaceTemplates[dt.ID],
		netbox.InterfaceTemplate{ID: f.id(), Name: name, Type: choice(typ), MgmtOnly: mgmtOnly})
}

func (f *Fake) AddModuleType(manufacturer string, model string) netbox.ModuleType {
	f.mu.Lock()
	defer f.mu.Unlock()
	mt := netbox.ModuleType{
		ID:           f.id(),
		Model:        model,
		Display:      model,
		Manufacturer: &netbox.NestedManufacturer{ID: f.id(), Name: manufacturer},
	}
	f.ModuleTypes = append(f.ModuleTypes, mt)
	return mt
}

func (f *Fake) AddModuleBayTemplate(dt *netbox.DeviceType, name string, position string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ModuleBayTemplates[dt.ID] = append(f.ModuleBayTemplates[dt.ID],
		netbox.ModuleBayTemplate{ID: f.id(), Name: name, Position: position})
}

func (f *Fake) AddModuleBay(device netbox.Device, name string, position string) netbox.ModuleBay {
	f.mu.Lock()
	defer f.mu.Unlock()
	bay := netbox.ModuleBay{ID: f.id(), Name: name, Position: position}
	f.ModuleBays[device.ID] = append(f.ModuleBays[device.ID], bay)
	return bay
}

// Occupy() installs a module into a bay without recording a mutation.
func (f *Fake) Occupy(device netbox.Device, bayName string, mt netbox.ModuleType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, bay := range f.ModuleBays[device.ID] {
		if bay.Name == bayName {
			f.ModuleBays[device.ID][i].InstalledModule = &netbox.NestedModule{
				ID:         f.id(),
				ModuleType: &netbox.NestedModuleType{ID: mt.ID, Model: mt.Model, Manufacturer: mt.Manufacturer},
			}
		}
	}
}

// Store implementations.

func (f *Fake) ListDevices(ctx context.Context, filter netbox.DeviceFilter) ([]netbox.Device, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListDevices", ""); err != nil {
		return nil, err
	}
	devices := []netbox.Device{}
	for _, d := range f.Devices {
		if filter.DeviceTypeID > 0 && d.DeviceTypeID() != filter.DeviceTypeID {
			continue
		}
		if filter.Name != "" && d.Name != filter.Name {
			continue
		}
		devices = append(devices, d)
	}
	slices.SortStableFunc(devices, func(a, b netbox.Device) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return devices, nil
}

func (f *Fake) ListInterfaces(ctx context.Context, deviceID int) ([]netbox.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListInterfaces", strconv.Itoa(deviceID)); err != nil {
		return nil, err
	}
	return slices.Clone(f.Interfaces[deviceID]), nil
}

func (f *Fake) ListInterfaceTemplates(ctx context.Context, deviceTypeID int) ([]netbox.InterfaceTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.InterfaceTemplates[deviceTypeID]), nil
}

func (f *Fake) CreateInterface(ctx context.Context, req netbox.InterfaceRequest) (*netbox.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutate("CreateInterface", req.Name); err != nil {
		return nil, err
	}
	iface := netbox.Interface{ID: f.id(), Name: req.Name, Type: choice(req.Type), MgmtOnly: req.MgmtOnly, Description: req.Description}
	f.Interfaces[req.Device] = append(f.Interfaces[req.Device], iface)
	return &iface, nil
}

func (f *Fake) UpdateInterface(ctx context.Context, id int, req netbox.InterfaceRequest) (*netbox.Interface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for device, ifaces := range f.Interfaces {
		for i, iface := range ifaces {
			if iface.ID != id {
				continue
			}
			if err := f.mutate("UpdateInterface", iface.Name); err != nil {
				return nil, err
			}
			f.Updates["UpdateInterface "+iface.Name] = req
			if req.Type != "" {
				iface.Type = choice(req.Type)
			}
			iface.MgmtOnly = req.MgmtOnly
			f.Interfaces[device][i] = iface
			return &iface, nil
		}
	}
	return nil, fmt.Errorf("interface %d: %w", id, netbox.ErrNotFound)
}

func (f *Fake) DeleteInterface(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for device, ifaces := range f.Interfaces {
		for i, iface := range ifaces {
			if iface.ID != id {
				continue
			}
			if err := f.mutate("DeleteInterface", iface.Name); err != nil {
				return err
			}
			f.Interfaces[device] = slices.Delete(ifaces, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("interface %d: %w", id, netbox.ErrNotFound)
}

func (f *Fake) ListRearPorts(ctx context.Context, deviceID int) ([]netbox.RearPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListRearPorts", strconv.Itoa(deviceID)); err != nil {
		return nil, err
	}
	return slices.Clone(f.RearPorts[deviceID]), nil
}

func (f *Fake) ListRearPortTemplates(ctx context.Context, deviceTypeID int) ([]netbox.RearPortTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.RearPortTemplates[deviceTypeID]), nil
}

func (f *Fake) CreateRearPort(ctx context.Context, req netbox.RearPortRequest) (*netbox.RearPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutate("CreateRearPort", req.Name); err != nil {
		return nil, err
	}
	rp := netbox.RearPort{ID: f.id(), Name: req.Name, Type: choice(req.Type), Positions: req.Positions, Description: req.Description}
	f.RearPorts[req.Device] = append(f.RearPorts[req.Device], rp)
	return &rp, nil
}

func (f *Fake) UpdateRearPort(ctx context.Context, id int, req netbox.RearPortRequest) (*netbox.RearPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for device, ports := range f.RearPorts {
		for i, rp := range ports {
			if rp.ID != id {
				continue
			}
			if err := f.mutate("UpdateRearPort", rp.Name); err != nil {
				return nil, err
			}
			f.Updates["UpdateRearPort "+rp.Name] = req
			if req.Type != "" {
				rp.Type = choice(req.Type)
			}
			if req.Positions > 0 {
				rp.Positions = req.Positions
			}
			f.RearPorts[device][i] = rp
			return &rp, nil
		}
	}
	return nil, fmt.Errorf("rear port %d: %w", id, netbox.ErrNotFound)
}

func (f *Fake) DeleteRearPort(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for device, ports := range f.RearPorts {
		for i, rp := range ports {
			if rp.ID != id {
				continue
			}
			if err := f.mutate("DeleteRearPort", rp.Name); err != nil {
				return err
			}
			f.RearPorts[device] = slices.Delete(ports, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("rear port %d: %w", id, netbox.ErrNotFound)
}

func (f *Fake) ListFrontPorts(ctx context.Context, deviceID int) ([]netbox.FrontPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.FrontPorts[deviceID]), nil
}

func (f *Fake) ListFrontPortTemplates(ctx context.Context, deviceTypeID int) ([]netbox.FrontPortTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.FrontPortTemplates[deviceTypeID]), nil
}

func (f *Fake) rearPortByID(id int) *netbox.NestedRearPort {
	for _, ports := range f.RearPorts {
		for _, rp := range ports {
			if rp.ID == id {
				return &netbox.NestedRearPort{ID: rp.ID, Name: rp.Name}
			}
		}
	}
	return nil
}

func (f *Fake) CreateFrontPort(ctx context.Context, req netbox.FrontPortRequest) (*netbox.FrontPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutate("CreateFrontPort", req.Name); err != nil {
		return nil, err
	}
	fp := netbox.FrontPort{
		ID:               f.id(),
		Name:             req.Name,
		Type:             choice(req.Type),
		RearPort:         f.rearPortByID(req.RearPort),
		RearPortPosition: req.RearPortPosition,
		Description:      req.Description,
	}
	f.FrontPorts[req.Device] = append(f.FrontPorts[req.Device], fp)
	return &fp, nil
}

func (f *Fake) UpdateFrontPort(ctx context.Context, id int, req netbox.FrontPortRequest) (*netbox.FrontPort, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for device, ports := range f.FrontPorts {
		for i, fp := range ports {
			if fp.ID != id {
				continue
			}
			if err := f.mutate("UpdateFrontPort", fp.Name); err != nil {
				return nil, err
			}
			f.Updates["UpdateFrontPort "+fp.Name] = req
			if req.Type != "" {
				fp.Type = choice(req.Type)
			}
			if req.RearPort > 0 {
				fp.RearPort = f.rearPortByID(req.RearPort)
			}
			if req.RearPortPosition > 0 {
				fp.RearPortPosition = req.RearPortPosition
			}
			f.FrontPorts[device][i] = fp
			return &fp, nil
		}
	}
	return nil, fmt.Errorf("front port %d: %w", id, netbox.ErrNotFound)
}

func (f *Fake) DeleteFrontPort(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for device, ports := range f.FrontPorts {
		for i, fp := range ports {
			if fp.ID != id {
				continue
			}
			if err := f.mutate("DeleteFrontPort", fp.Name); err != nil {
				return err
			}
			f.FrontPorts[device] = slices.Delete(ports, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("front port %d: %w", id, netbox.ErrNotFound)
}

func (f *Fake) ListModuleBays(ctx context.Context, deviceID int) ([]netbox.ModuleBay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("ListModuleBays", strconv.Itoa(deviceID)); err != nil {
		return nil, err
	}
	return slices.Clone(f.ModuleBays[deviceID]), nil
}

func (f *Fake) ListModuleBayTemplates(ctx context.Context, deviceTypeID int) ([]netbox.ModuleBayTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.ModuleBayTemplates[deviceTypeID]), nil
}

// ResolveModuleType() prefers a numeric ID over a model, like the client.
func (f *Fake) ResolveModuleType(ctx context.Context, ref string) (*netbox.ModuleType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id, err := strconv.Atoi(ref); err == nil && id > 0 {
		for _, mt := range f.ModuleTypes {
			if mt.ID == id {
				mt := mt
				return &mt, nil
			}
		}
		return nil, fmt.Errorf("module type %d: %w", id, netbox.ErrNotFound)
	}
	return f.moduleTypeByModel(ref)
}

func (f *Fake) ResolveModuleTypeByModel(ctx context.Context, model string) (*netbox.ModuleType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moduleTypeByModel(model)
}

func (f *Fake) moduleTypeByModel(model string) (*netbox.ModuleType, error) {
	matches := []netbox.ModuleType{}
	for _, mt := range f.ModuleTypes {
		if mt.Model == model {
			matches = append(matches, mt)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("module type '%s': %w", model, netbox.ErrNotFound)
	case 1:
		return &matches[0], nil
	}
	return nil, fmt.Errorf("module type '%s' %w (%d)", model, netbox.ErrAmbiguous, len(matches))
}

func (f *Fake) CreateModule(ctx context.Context, req netbox.ModuleRequest) (*netbox.Module, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var bay *netbox.ModuleBay
	for i := range f.ModuleBays[req.Device] {
		if f.ModuleBays[req.Device][i].ID == req.ModuleBay {
			bay = &f.ModuleBays[req.Device][i]
		}
	}
	if bay == nil {
		return nil, fmt.Errorf("module bay %d: %w", req.ModuleBay, netbox.ErrNotFound)
	}
	if err := f.mutate("CreateModule", bay.Name); err != nil {
		return nil, err
	}
	var mt *netbox.NestedModuleType
	for _, t := range f.ModuleTypes {
		if t.ID == req.ModuleType {
			mt = &netbox.NestedModuleType{ID: t.ID, Model: t.Model, Manufacturer: t.Manufacturer}
		}
	}
	module := netbox.Module{
		ID:         f.id(),
		Device:     &netbox.NestedDevice{ID: req.Device},
		ModuleBay:  &netbox.NestedModuleBay{ID: bay.ID, Name: bay.Name},
		ModuleType: mt,
		Status:     choice(req.Status),
	}
	bay.InstalledModule = &netbox.NestedModule{ID: module.ID, ModuleType: mt}
	f.Modules = append(f.Modules, module)
	return &module, nil
}

func (f *Fake) CreateCable(ctx context.Context, req netbox.CableRequest) (*netbox.Cable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.mutate("CreateCable", req.Label); err != nil {
		return nil, err
	}
	cable := netbox.Cable{ID: f.id(), Label: req.Label, Type: req.Type}
	for _, t := range append(slices.Clone(req.ATerminations), req.BTerminations...) {
		for device, ports := range f.RearPorts {
			for i, rp := range ports {
				if rp.ID == t.ObjectID {
					f.RearPorts[device][i].Cable = &netbox.NestedCable{ID: cable.ID, Label: cable.Label}
				}
			}
		}
	}
	f.Cables = append(f.Cables, req)
	return &cable, nil
}
