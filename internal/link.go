package patchbay

import (
	"context"
	"fmt"

	"github.com/OpenCHAMI/patchbay/pkg/link"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
)

// LinkParams hold the references typed on the command line. Objects are
// given by ID or name (slug for tenants and tags).
type LinkParams struct {
	DeviceA     string
	DeviceB     string
	CableType   string
	Length      float64
	LengthUnit  string
	TenantGroup string
	Tenant      string
	Tags        []string
	Commit      bool
	// Open shows device A's rear ports in the browser after cables were
	// created.
	Open bool
}

// Link() resolves the references in params and runs the rear-to-rear
// linker.
func Link(ctx context.Context, nb *netbox.Client, params LinkParams) (*link.Report, error) {
	a, err := nb.ResolveDevice(ctx, params.DeviceA)
	if err != nil {
		return nil, fmt.Errorf("device A: %w", err)
	}
	b, err := nb.ResolveDevice(ctx, params.DeviceB)
	if err != nil {
		return nil, fmt.Errorf("device B: %w", err)
	}

	p := link.Params{
		DeviceA:    *a,
		DeviceB:    *b,
		CableType:  params.CableType,
		Length:     params.Length,
		LengthUnit: params.LengthUnit,
		Commit:     params.Commit,
	}

	groupID := 0
	if params.TenantGroup != "" {
		if p.TenantGroup, err = nb.ResolveTenantGroup(ctx, params.TenantGroup); err != nil {
			return nil, err
		}
		groupID = p.TenantGroup.ID
	}
	if params.Tenant != "" {
		if p.Tenant, err = nb.ResolveTenant(ctx, params.Tenant, groupID); err != nil {
			return nil, err
		}
	}
	for _, ref := range params.Tags {
		tag, err := nb.ResolveTag(ctx, ref)
		if err != nil {
			return nil, err
		}
		p.Tags = append(p.Tags, *tag)
	}

	report, err := link.Link(ctx, nb, p)
	if err != nil {
		return nil, err
	}

	if params.Open && report.Commit && report.Created > 0 {
		url := nb.DeviceRearPortsURL(a.ID)
		if err := browser.OpenURL(url); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
		}
	}
	return report, nil
}
