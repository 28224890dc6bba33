package components

import (
	"context"
	"errors"
	"fmt"

	"github.com/OpenCHAMI/patchbay/pkg/journal"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
)

var errRearPortNotFound = errors.New("rear port not found")

// class describes how one kind of component is listed, compared and
// written. create, update and remove are only called with commit set,
// except create which also runs in a dry run so it can warn about
// missing references; it must not write unless commit is set.
type class[L any, T any] struct {
	singular string // "rear port"
	title    string // "Rear port"
	plural   string // "rear ports"
	stats    *ClassStats

	liveName        func(L) string
	templateName    func(T) string
	compare         func(L, T) journal.Details
	templateDetails func(T) journal.Details

	create func(ctx context.Context, t T) error
	update func(ctx context.Context, u update[L, T]) error
	remove func(ctx context.Context, l L) error
}

// syncClass() diffs and applies one component class for the device.
// Errors returned abort the device; per-component failures do not.
func syncClass[L any, T any](ctx context.Context, r *deviceRun, c class[L, T], live []L, templates []T) {
	j := r.journal
	if len(templates) == 0 {
		j.Warning(r.name, fmt.Sprintf("No %s templates found", c.singular))
		return
	}

	p := diff(live, templates, c.liveName, c.templateName, c.compare)
	j.Debugf(r.name, "Comparing %d existing %s with %d template %s", len(live), c.plural, len(templates), c.plural)
	for _, t := range p.create {
		j.Debugf(r.name, "%s to create: %s", c.title, c.templateName(t))
	}
	for _, l := range p.delete {
		j.Debugf(r.name, "%s to delete: %s", c.title, c.liveName(l))
	}
	for _, u := range p.update {
		j.Debug(r.name, fmt.Sprintf("%s to update: %s", c.title, c.liveName(u.live)), u.fields)
	}

	if p.empty() {
		j.Infof(r.name, "%ss already match template", c.title)
		return
	}
	j.Infof(r.name, "%s changes: %d to create, %d to update, %d to delete",
		c.title, len(p.create), len(p.update), len(p.delete))

	if r.params.Mode == ModeReplicate {
		applyCreate(ctx, r, c, p)
		return
	}
	applyUpdate(ctx, r, c, p)
	applyCreate(ctx, r, c, p)
	applyDelete(ctx, r, c, p)
}

func (r *deviceRun) verb(done string, planned string) string {
	if r.params.Commit {
		return done
	}
	return planned
}

func applyCreate[L any, T any](ctx context.Context, r *deviceRun, c class[L, T], p plan[L, T]) {
	for _, t := range p.create {
		name := c.templateName(t)
		err := c.create(ctx, t)
		switch {
		case errors.Is(err, errRearPortNotFound):
			r.journal.Error(r.name, fmt.Sprintf("Cannot create %s '%s' - rear port not found", c.singular, name))
			r.stats.Errors++
			continue
		case err != nil:
			r.journal.Error(r.name, fmt.Sprintf("Failed to create %s: %s", c.singular, name), journal.Details{"error": err.Error()})
			r.stats.Errors++
			continue
		}
		r.journal.Info(r.name, fmt.Sprintf("%s %s: %s", r.verb("Created", "Will create"), c.singular, name), c.templateDetails(t))
		c.stats.Created++
	}
}

func applyUpdate[L any, T any](ctx context.Context, r *deviceRun, c class[L, T], p plan[L, T]) {
	for _, u := range p.update {
		name := c.liveName(u.live)
		if r.params.Commit {
			if err := c.update(ctx, u); err != nil {
				r.journal.Error(r.name, fmt.Sprintf("Failed to update %s: %s", c.singular, name), journal.Details{"error": err.Error()})
				r.stats.Errors++
				continue
			}
		}
		r.journal.Info(r.name, fmt.Sprintf("%s %s: %s", r.verb("Updated", "Will update"), c.singular, name), u.fields)
		c.stats.Updated++
	}
}

func applyDelete[L any, T any](ctx context.Context, r *deviceRun, c class[L, T], p plan[L, T]) {
	for _, l := range p.delete {
		name := c.liveName(l)
		if r.params.Commit {
			if err := c.remove(ctx, l); err != nil {
				r.journal.Error(r.name, fmt.Sprintf("Failed to delete %s: %s", c.singular, name), journal.Details{"error": err.Error()})
				r.stats.Errors++
				continue
			}
		}
		r.journal.Warning(r.name, fmt.Sprintf("%s orphaned %s: %s", r.verb("Deleted", "Will delete"), c.singular, name))
		c.stats.Deleted++
	}
}

func (r *deviceRun) syncInterfaces(ctx context.Context) error {
	r.journal.Info(r.name, "Syncing interfaces...")
	templates, err := r.Store.ListInterfaceTemplates(ctx, r.device.DeviceTypeID())
	if err != nil {
		return fmt.Errorf("failed to list interface templates: %w", err)
	}
	live, err := r.Store.ListInterfaces(ctx, r.device.ID)
	if err != nil {
		return fmt.Errorf("failed to list interfaces: %w", err)
	}

	syncClass(ctx, r, class[netbox.Interface, netbox.InterfaceTemplate]{
		singular:     "interface",
		title:        "Interface",
		plural:       "interfaces",
		stats:        &r.stats.Interfaces,
		liveName:     func(i netbox.Interface) string { return i.Name },
		templateName: func(t netbox.InterfaceTemplate) string { return t.Name },
		compare:      compareInterface,
		templateDetails: func(t netbox.InterfaceTemplate) journal.Details {
			return journal.Details{"type": t.Type.String(), "mgmt_only": t.MgmtOnly}
		},
		create: func(ctx context.Context, t netbox.InterfaceTemplate) error {
			if !r.params.Commit {
				return nil
			}
			_, err := r.Store.CreateInterface(ctx, netbox.InterfaceRequest{
				Device:      r.device.ID,
				Name:        t.Name,
				Type:        t.Type.String(),
				MgmtOnly:    t.MgmtOnly,
				Description: r.description(),
			})
			return err
		},
		update: func(ctx context.Context, u update[netbox.Interface, netbox.InterfaceTemplate]) error {
			_, err := r.Store.UpdateInterface(ctx, u.live.ID, netbox.InterfaceRequest{
				Type:     u.template.Type.String(),
				MgmtOnly: u.template.MgmtOnly,
			})
			return err
		},
		remove: func(ctx context.Context, i netbox.Interface) error {
			return r.Store.DeleteInterface(ctx, i.ID)
		},
	}, live, templates)
	return nil
}

func (r *deviceRun) syncRearPorts(ctx context.Context) error {
	r.journal.Info(r.name, "Syncing rear ports...")
	templates, err := r.Store.ListRearPortTemplates(ctx, r.device.DeviceTypeID())
	if err != nil {
		return fmt.Errorf("failed to list rear port templates: %w", err)
	}
	live, err := r.Store.ListRearPorts(ctx, r.device.ID)
	if err != nil {
		return fmt.Errorf("failed to list rear ports: %w", err)
	}

	syncClass(ctx, r, class[netbox.RearPort, netbox.RearPortTemplate]{
		singular:     "rear port",
		title:        "Rear port",
		plural:       "rear ports",
		stats:        &r.stats.RearPorts,
		liveName:     func(p netbox.RearPort) string { return p.Name },
		templateName: func(t netbox.RearPortTemplate) string { return t.Name },
		compare:      compareRearPort,
		templateDetails: func(t netbox.RearPortTemplate) journal.Details {
			return journal.Details{"type": t.Type.String(), "positions": t.Positions}
		},
		create: func(ctx context.Context, t netbox.RearPortTemplate) error {
			if !r.params.Commit {
				return nil
			}
			_, err := r.Store.CreateRearPort(ctx, netbox.RearPortRequest{
				Device:      r.device.ID,
				Name:        t.Name,
				Type:        t.Type.String(),
				Positions:   t.Positions,
				Description: r.description(),
			})
			return err
		},
		update: func(ctx context.Context, u update[netbox.RearPort, netbox.RearPortTemplate]) error {
			_, err := r.Store.UpdateRearPort(ctx, u.live.ID, netbox.RearPortRequest{
				Type:      u.template.Type.String(),
				Positions: u.template.Positions,
			})
			return err
		},
		remove: func(ctx context.Context, p netbox.RearPort) error {
			return r.Store.DeleteRearPort(ctx, p.ID)
		},
	}, live, templates)
	return nil
}

func (r *deviceRun) syncFrontPorts(ctx context.Context) error {
	r.journal.Info(r.name, "Syncing front ports...")
	templates, err := r.Store.ListFrontPortTemplates(ctx, r.device.DeviceTypeID())
	if err != nil {
		return fmt.Errorf("failed to list front port templates: %w", err)
	}
	live, err := r.Store.ListFrontPorts(ctx, r.device.ID)
	if err != nil {
		return fmt.Errorf("failed to list front ports: %w", err)
	}

	// rear ports as they are now, after any rear port sync
	var rearPorts map[string]netbox.RearPort
	rearPort := func(ctx context.Context, name string) (netbox.RearPort, bool, error) {
		if rearPorts == nil {
			ports, err := r.Store.ListRearPorts(ctx, r.device.ID)
			if err != nil {
				return netbox.RearPort{}, false, fmt.Errorf("failed to list rear ports: %w", err)
			}
			rearPorts = make(map[string]netbox.RearPort, len(ports))
			for _, p := range ports {
				rearPorts[p.Name] = p
			}
		}
		p, ok := rearPorts[name]
		return p, ok, nil
	}

	syncClass(ctx, r, class[netbox.FrontPort, netbox.FrontPortTemplate]{
		singular:     "front port",
		title:        "Front port",
		plural:       "front ports",
		stats:        &r.stats.FrontPorts,
		liveName:     func(p netbox.FrontPort) string { return p.Name },
		templateName: func(t netbox.FrontPortTemplate) string { return t.Name },
		compare:      compareFrontPort,
		templateDetails: func(t netbox.FrontPortTemplate) journal.Details {
			var rear any
			if t.RearPort != nil {
				rear = t.RearPort.Name
			}
			return journal.Details{"type": t.Type.String(), "rear_port": rear, "rear_port_position": t.RearPortPosition}
		},
		create: func(ctx context.Context, t netbox.FrontPortTemplate) error {
			var rear netbox.RearPort
			found := false
			if t.RearPort != nil {
				p, ok, err := rearPort(ctx, t.RearPort.Name)
				if err != nil {
					return err
				}
				if !ok {
					r.journal.Warning(r.name, fmt.Sprintf("Rear port '%s' not found for front port '%s'", t.RearPort.Name, t.Name))
				}
				rear, found = p, ok
			}
			if !r.params.Commit {
				return nil
			}
			if !found {
				return errRearPortNotFound
			}
			_, err := r.Store.CreateFrontPort(ctx, netbox.FrontPortRequest{
				Device:           r.device.ID,
				Name:             t.Name,
				Type:             t.Type.String(),
				RearPort:         rear.ID,
				RearPortPosition: t.RearPortPosition,
				Description:      r.description(),
			})
			return err
		},
		update: func(ctx context.Context, u update[netbox.FrontPort, netbox.FrontPortTemplate]) error {
			req := netbox.FrontPortRequest{
				Type:             u.template.Type.String(),
				RearPortPosition: u.template.RearPortPosition,
			}
			if u.template.RearPort != nil {
				p, ok, err := rearPort(ctx, u.template.RearPort.Name)
				if err != nil {
					return err
				}
				if ok {
					req.RearPort = p.ID
				} else {
					r.journal.Warning(r.name, fmt.Sprintf("Rear port '%s' not found", u.template.RearPort.Name))
				}
			}
			_, err := r.Store.UpdateFrontPort(ctx, u.live.ID, req)
			return err
		},
		remove: func(ctx context.Context, p netbox.FrontPort) error {
			return r.Store.DeleteFrontPort(ctx, p.ID)
		},
	}, live, templates)
	return nil
}
