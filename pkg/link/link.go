// Package link pairs the rear ports of two devices, typically patch
// panels, in name order and creates one cable per pair.
package link

import (
	"context"
	"fmt"
	"strings"

	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// maxListedConnected caps how many already-cabled ports are named when
// refusing to link.
const maxListedConnected = 5

type Store interface {
	ListRearPorts(ctx context.Context, deviceID int) ([]netbox.RearPort, error)
	CreateCable(ctx context.Context, req netbox.CableRequest) (*netbox.Cable, error)
}

type Params struct {
	DeviceA     netbox.Device       `validate:"required"`
	DeviceB     netbox.Device       `validate:"required"`
	CableType   string              `validate:"cabletype"`
	Length      float64             `validate:"gte=0"`
	LengthUnit  string              `validate:"required_with=Length,lengthunit"`
	TenantGroup *netbox.TenantGroup
	Tenant      *netbox.Tenant
	Tags        []netbox.Tag
	Commit      bool
}

// Validate() checks the parameters before any request is made.
func (p *Params) Validate() error {
	if err := netbox.Validate(p); err != nil {
		return fmt.Errorf("invalid link parameters: %w", err)
	}
	if p.DeviceA.ID == p.DeviceB.ID {
		return fmt.Errorf("invalid link parameters: device A and device B are the same device (%s)", p.DeviceA)
	}
	if p.Tenant != nil && p.TenantGroup != nil {
		if p.Tenant.Group == nil || p.Tenant.Group.ID != p.TenantGroup.ID {
			return fmt.Errorf("invalid link parameters: tenant '%s' is not in tenant group '%s'", p.Tenant.Name, p.TenantGroup.Name)
		}
	}
	return nil
}

func (p *Params) tagIDs() []int {
	ids := make([]int, 0, len(p.Tags))
	for _, tag := range p.Tags {
		ids = append(ids, tag.ID)
	}
	return ids
}

func (p *Params) tagNames() string {
	names := make([]string, 0, len(p.Tags))
	for _, tag := range p.Tags {
		names = append(names, tag.Name)
	}
	return strings.Join(names, ", ")
}

// Label() is the label given to the cable between two rear ports.
func Label(a netbox.Device, portA netbox.RearPort, b netbox.Device, portB netbox.RearPort) string {
	return fmt.Sprintf("%s:%s <-> %s:%s", a, portA.Name, b, portB.Name)
}

// SortPorts() orders rear ports by name, byte-wise.
func SortPorts(ports []netbox.RearPort) {
	slices.SortStableFunc(ports, func(a, b netbox.RearPort) int {
		return strings.Compare(a.Name, b.Name)
	})
}

// Link() creates the cables between the rear ports of DeviceA and DeviceB.
// Failed preconditions are reported in the journal and leave Report.OK
// false; only errors talking to NetBox are returned.
func Link(ctx context.Context, store Store, params Params) (*Report, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	var (
		a      = params.DeviceA
		b      = params.DeviceB
		j      = journal.New()
		report = &Report{
			DeviceA: a.String(),
			DeviceB: b.String(),
			Commit:  params.Commit,
			journal: j,
		}
	)
	defer report.seal()

	j.Debugf("", "Device A: %s (ID: %d)", a, a.ID)
	j.Debugf("", "Device B: %s (ID: %d)", b, b.ID)
	j.Debugf("", "Cable type: %s", journal.Value(params.CableType))
	j.Debugf("", "Cable length: %s", journal.Value(params.Length))
	j.Infof("", "Linking Device A: %s with Device B: %s", a, b)

	portsA, err := store.ListRearPorts(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rear ports of %s: %w", a, err)
	}
	portsB, err := store.ListRearPorts(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rear ports of %s: %w", b, err)
	}
	SortPorts(portsA)
	SortPorts(portsB)

	j.Infof("", "%s has %d rear ports", a, len(portsA))
	j.Infof("", "%s has %d rear ports", b, len(portsB))

	switch {
	case len(portsA) == 0:
		return report.abort(fmt.Sprintf("%s has no rear ports", a)), nil
	case len(portsB) == 0:
		return report.abort(fmt.Sprintf("%s has no rear ports", b)), nil
	case len(portsA) != len(portsB):
		j.Failure("", "Port count mismatch!")
		j.Failure("", fmt.Sprintf("  %s has %d rear ports", a, len(portsA)))
		j.Failure("", fmt.Sprintf("  %s has %d rear ports", b, len(portsB)))
		return report.abort("Both devices must have the same number of rear ports"), nil
	}
	report.Ports = len(portsA)
	j.Success("", fmt.Sprintf("✓ Both devices have %d rear ports", report.Ports))

	for _, side := range []struct {
		device netbox.Device
		ports  []netbox.RearPort
	}{{a, portsA}, {b, portsB}} {
		if connected := connectedPorts(side.ports); len(connected) > 0 {
			j.Failure("", fmt.Sprintf("%s has %d rear port(s) already connected:", side.device, len(connected)))
			for _, port := range connected[:min(len(connected), maxListedConnected)] {
				j.Failure("", fmt.Sprintf("  - %s (Cable ID: %d)", port.Name, port.Cable.ID))
			}
			if len(connected) > maxListedConnected {
				j.Failure("", fmt.Sprintf("  ... and %d more", len(connected)-maxListedConnected))
			}
			report.OK = false
			report.Result = fmt.Sprintf("%s has rear ports already connected", side.device)
			return report, nil
		}
	}
	j.Success("", "✓ All rear ports on both devices are available")

	if params.CableType != "" {
		j.Infof("", "Cable type: %s", params.CableType)
	}
	if params.Length > 0 {
		j.Infof("", "Cable length: %g %s", params.Length, params.LengthUnit)
	}
	if params.Tenant != nil {
		j.Infof("", "Tenant: %s", params.Tenant.Name)
	}
	if len(params.Tags) > 0 {
		j.Infof("", "Tags: %s", params.tagNames())
	}
	j.Infof("", "Starting cable creation for %d ports...", report.Ports)

	for i := range portsA {
		portA, portB := portsA[i], portsB[i]
		label := Label(a, portA, b, portB)
		j.Debugf("", "Processing port pair %d/%d: %s (ID: %d) <-> %s (ID: %d)",
			i+1, report.Ports, portA.Name, portA.ID, portB.Name, portB.ID)

		req := newCableRequest(params, portA, portB, label)
		result := Cable{Label: label, PortA: portA.Name, PortB: portB.Name}

		if !params.Commit {
			j.Info("", fmt.Sprintf("Will create cable: %s (%s) <-> %s (%s)", portA.Name, a, portB.Name, b))
			report.Planned++
			report.Cables = append(report.Cables, result)
			continue
		}

		cable, err := store.CreateCable(ctx, req)
		if err != nil {
			log.Error().Err(err).Str("label", label).Msg("failed to create cable")
			j.Failure("", fmt.Sprintf("ERROR: Failed to create cable for ports %s <-> %s", portA.Name, portB.Name),
				journal.Details{"error": err.Error()})
			result.Error = err.Error()
			report.Failed++
			report.Cables = append(report.Cables, result)
			continue
		}
		j.Success("", fmt.Sprintf("Created cable: %s (%s) <-> %s (%s)", portA.Name, a, portB.Name, b))
		result.ID = cable.ID
		report.Created++
		report.Cables = append(report.Cables, result)
	}

	report.OK = report.Failed == 0
	if params.Commit {
		report.Result = fmt.Sprintf("Successfully linked all %d rear ports between %s and %s", report.Created, a, b)
		if report.Failed > 0 {
			report.Result = fmt.Sprintf("Linked %d of %d rear ports between %s and %s (%d failed)",
				report.Created, report.Ports, a, b, report.Failed)
		}
	} else {
		report.Result = fmt.Sprintf("Dry run: %d cables would be created between %s and %s", report.Planned, a, b)
	}
	if report.OK {
		j.Success("", report.Result)
	} else {
		j.Failure("", report.Result)
	}
	return report, nil
}

func newCableRequest(params Params, portA netbox.RearPort, portB netbox.RearPort, label string) netbox.CableRequest {
	req := netbox.CableRequest{
		ATerminations: []netbox.Termination{{ObjectType: netbox.ObjectTypeRearPort, ObjectID: portA.ID}},
		BTerminations: []netbox.Termination{{ObjectType: netbox.ObjectTypeRearPort, ObjectID: portB.ID}},
		Label:         label,
		Type:          params.CableType,
	}
	if params.Length > 0 {
		req.Length = params.Length
		req.LengthUnit = params.LengthUnit
	}
	if params.Tenant != nil {
		req.Tenant = params.Tenant.ID
	}
	if len(params.Tags) > 0 {
		req.Tags = params.tagIDs()
	}
	return req
}

func connectedPorts(ports []netbox.RearPort) []netbox.RearPort {
	connected := []netbox.RearPort{}
	for _, port := range ports {
		if port.Cable != nil {
			connected = append(connected, port)
		}
	}
	return connected
}
