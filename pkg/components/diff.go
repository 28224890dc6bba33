package components

import (
	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
)

// update pairs a live component with the template it should match and
// the fields that differ.
type update[L any, T any] struct {
	live     L
	template T
	fields   journal.Details
}

// plan is the set difference between a device's components and its
// device type's templates, matched by name.
type plan[L any, T any] struct {
	create []T
	update []update[L, T]
	delete []L
}

func (p plan[L, T]) empty() bool {
	return len(p.create)+len(p.update)+len(p.delete) == 0
}

// diff() compares live components with templates. Templates missing on
// the device are created, components missing from the template are
// deleted and shared names whose compared fields differ are updated.
func diff[L any, T any](live []L, templates []T, liveName func(L) string, templateName func(T) string, compare func(L, T) journal.Details) plan[L, T] {
	p := plan[L, T]{}

	existing := make(map[string]L, len(live))
	for _, l := range live {
		existing[liveName(l)] = l
	}
	wanted := make(map[string]T, len(templates))
	for _, t := range templates {
		wanted[templateName(t)] = t
	}

	for _, t := range templates {
		if _, ok := existing[templateName(t)]; !ok {
			p.create = append(p.create, t)
		}
	}
	for _, l := range live {
		t, ok := wanted[liveName(l)]
		if !ok {
			p.delete = append(p.delete, l)
			continue
		}
		if fields := compare(l, t); len(fields) > 0 {
			p.update = append(p.update, update[L, T]{live: l, template: t, fields: fields})
		}
	}
	return p
}

func compareInterface(iface netbox.Interface, tmpl netbox.InterfaceTemplate) journal.Details {
	fields := journal.Details{}
	if iface.Type.String() != tmpl.Type.String() {
		fields["type"] = journal.Change{Old: iface.Type.String(), New: tmpl.Type.String()}
	}
	if iface.MgmtOnly != tmpl.MgmtOnly {
		fields["mgmt_only"] = journal.Change{Old: iface.MgmtOnly, New: tmpl.MgmtOnly}
	}
	return fields
}

func compareRearPort(port netbox.RearPort, tmpl netbox.RearPortTemplate) journal.Details {
	fields := journal.Details{}
	if port.Type.String() != tmpl.Type.String() {
		fields["type"] = journal.Change{Old: port.Type.String(), New: tmpl.Type.String()}
	}
	if port.Positions != tmpl.Positions {
		fields["positions"] = journal.Change{Old: port.Positions, New: tmpl.Positions}
	}
	return fields
}

// compareFrontPort() only checks the rear port when the template names
// one; the rear port is compared by name.
func compareFrontPort(port netbox.FrontPort, tmpl netbox.FrontPortTemplate) journal.Details {
	fields := journal.Details{}
	if port.Type.String() != tmpl.Type.String() {
		fields["type"] = journal.Change{Old: port.Type.String(), New: tmpl.Type.String()}
	}
	if tmpl.RearPort != nil {
		if port.RearPort == nil || port.RearPort.Name != tmpl.RearPort.Name {
			var old any
			if port.RearPort != nil {
				old = port.RearPort.Name
			}
			fields["rear_port"] = journal.Change{Old: old, New: tmpl.RearPort.Name}
		}
	}
	if port.RearPortPosition != tmpl.RearPortPosition {
		fields["rear_port_position"] = journal.Change{Old: port.RearPortPosition, New: tmpl.RearPortPosition}
	}
	return fields
}
