package netbox

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	devicesEndpoint            = "/dcim/devices/"
	deviceTypesEndpoint        = "/dcim/device-types/"
	interfacesEndpoint         = "/dcim/interfaces/"
	interfaceTemplatesEndpoint = "/dcim/interface-templates/"
	rearPortsEndpoint          = "/dcim/rear-ports/"
	rearPortTemplatesEndpoint  = "/dcim/rear-port-templates/"
	frontPortsEndpoint         = "/dcim/front-ports/"
	frontPortTemplatesEndpoint = "/dcim/front-port-templates/"
	moduleBaysEndpoint         = "/dcim/module-bays/"
	moduleBayTemplatesEndpoint = "/dcim/module-bay-templates/"
	moduleTypesEndpoint        = "/dcim/module-types/"
	modulesEndpoint            = "/dcim/modules/"
	cablesEndpoint             = "/dcim/cables/"
	tenantsEndpoint            = "/tenancy/tenants/"
	tenantGroupsEndpoint       = "/tenancy/tenant-groups/"
	tagsEndpoint               = "/extras/tags/"
)

func (c *Client) GetDevice(ctx context.Context, id int) (*Device, error) {
	return get[Device](ctx, c, "device", devicesEndpoint, id)
}

func (c *Client) ListDevices(ctx context.Context, filter DeviceFilter) ([]Device, error) {
	query := url.Values{"ordering": []string{"name"}}
	if filter.DeviceTypeID > 0 {
		query.Set("device_type_id", strconv.Itoa(filter.DeviceTypeID))
	}
	if filter.Name != "" {
		query.Set("name", filter.Name)
	}
	devices, err := list[Device](ctx, c, devicesEndpoint, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// ResolveDevice() finds a device by ID or exact name.
func (c *Client) ResolveDevice(ctx context.Context, ref string) (*Device, error) {
	return resolve[Device](ctx, c, "device", devicesEndpoint, ref, nil, "name")
}

// ResolveDeviceType() finds a device type by ID, model or slug.
func (c *Client) ResolveDeviceType(ctx context.Context, ref string) (*DeviceType, error) {
	return resolve[DeviceType](ctx, c, "device type", deviceTypesEndpoint, ref, nil, "model", "slug")
}

// ResolveModuleType() finds a module type by ID or model.
func (c *Client) ResolveModuleType(ctx context.Context, ref string) (*ModuleType, error) {
	return resolve[ModuleType](ctx, c, "module type", moduleTypesEndpoint, ref, nil, "model")
}

// ResolveModuleTypeByModel() finds a module type by model only, so a
// numeric model is never taken for an ID.
func (c *Client) ResolveModuleTypeByModel(ctx context.Context, model string) (*ModuleType, error) {
	return lookup[ModuleType](ctx, c, "module type", moduleTypesEndpoint, model, nil, "model")
}

// ResolveTenantGroup() finds a tenant group by ID, slug or name.
func (c *Client) ResolveTenantGroup(ctx context.Context, ref string) (*TenantGroup, error) {
	return resolve[TenantGroup](ctx, c, "tenant group", tenantGroupsEndpoint, ref, nil, "slug", "name")
}

// ResolveTenant() finds a tenant by ID, slug or name. A non-zero groupID
// restricts name/slug lookups to that group.
func (c *Client) ResolveTenant(ctx context.Context, ref string, groupID int) (*Tenant, error) {
	var base url.Values
	if groupID > 0 {
		base = idQuery("group_id", groupID)
	}
	return resolve[Tenant](ctx, c, "tenant", tenantsEndpoint, ref, base, "slug", "name")
}

// ResolveTag() finds a tag by ID, slug or name.
func (c *Client) ResolveTag(ctx context.Context, ref string) (*Tag, error) {
	return resolve[Tag](ctx, c, "tag", tagsEndpoint, ref, nil, "slug", "name")
}

func (c *Client) ListInterfaces(ctx context.Context, deviceID int) ([]Interface, error) {
	return list[Interface](ctx, c, interfacesEndpoint, idQuery("device_id", deviceID))
}

func (c *Client) ListInterfaceTemplates(ctx context.Context, deviceTypeID int) ([]InterfaceTemplate, error) {
	return list[InterfaceTemplate](ctx, c, interfaceTemplatesEndpoint, idQuery("device_type_id", deviceTypeID))
}

func (c *Client) CreateInterface(ctx context.Context, req InterfaceRequest) (*Interface, error) {
	return created[Interface](ctx, c, interfacesEndpoint, req)
}

func (c *Client) UpdateInterface(ctx context.Context, id int, req InterfaceRequest) (*Interface, error) {
	return patched[Interface](ctx, c, interfacesEndpoint, id, req)
}

func (c *Client) DeleteInterface(ctx context.Context, id int) error {
	return c.remove(ctx, interfacesEndpoint, id)
}

func (c *Client) ListRearPorts(ctx context.Context, deviceID int) ([]RearPort, error) {
	return list[RearPort](ctx, c, rearPortsEndpoint, idQuery("device_id", deviceID))
}

func (c *Client) ListRearPortTemplates(ctx context.Context, deviceTypeID int) ([]RearPortTemplate, error) {
	return list[RearPortTemplate](ctx, c, rearPortTemplatesEndpoint, idQuery("device_type_id", deviceTypeID))
}

func (c *Client) CreateRearPort(ctx context.Context, req RearPortRequest) (*RearPort, error) {
	return created[RearPort](ctx, c, rearPortsEndpoint, req)
}

func (c *Client) UpdateRearPort(ctx context.Context, id int, req RearPortRequest) (*RearPort, error) {
	return patched[RearPort](ctx, c, rearPortsEndpoint, id, req)
}

func (c *Client) DeleteRearPort(ctx context.Context, id int) error {
	return c.remove(ctx, rearPortsEndpoint, id)
}

func (c *Client) ListFrontPorts(ctx context.Context, deviceID int) ([]FrontPort, error) {
	return list[FrontPort](ctx, c, frontPortsEndpoint, idQuery("device_id", deviceID))
}

func (c *Client) ListFrontPortTemplates(ctx context.Context, deviceTypeID int) ([]FrontPortTemplate, error) {
	return list[FrontPortTemplate](ctx, c, frontPortTemplatesEndpoint, idQuery("device_type_id", deviceTypeID))
}

func (c *Client) CreateFrontPort(ctx context.Context, req FrontPortRequest) (*FrontPort, error) {
	return created[FrontPort](ctx, c, frontPortsEndpoint, req)
}

func (c *Client) UpdateFrontPort(ctx context.Context, id int, req FrontPortRequest) (*FrontPort, error) {
	return patched[FrontPort](ctx, c, frontPortsEndpoint, id, req)
}

func (c *Client) DeleteFrontPort(ctx context.Context, id int) error {
	return c.remove(ctx, frontPortsEndpoint, id)
}

func (c *Client) ListModuleBays(ctx context.Context, deviceID int) ([]ModuleBay, error) {
	return list[ModuleBay](ctx, c, moduleBaysEndpoint, idQuery("device_id", deviceID))
}

func (c *Client) ListModuleBayTemplates(ctx context.Context, deviceTypeID int) ([]ModuleBayTemplate, error) {
	return list[ModuleBayTemplate](ctx, c, moduleBayTemplatesEndpoint, idQuery("device_type_id", deviceTypeID))
}

func (c *Client) CreateModule(ctx context.Context, req ModuleRequest) (*Module, error) {
	return created[Module](ctx, c, modulesEndpoint, req)
}

func (c *Client) CreateCable(ctx context.Context, req CableRequest) (*Cable, error) {
	return created[Cable](ctx, c, cablesEndpoint, req)
}

// DeviceRearPortsURL() is the web UI page listing a device's rear ports.
func (c *Client) DeviceRearPortsURL(deviceID int) string {
	return c.api.WebEndpoint(fmt.Sprintf("/dcim/devices/%d/rear-ports/", deviceID))
}

// TokensURL() is the web UI page where users manage their API tokens.
func (c *Client) TokensURL() string {
	return c.api.WebEndpoint("/user/api-tokens/")
}
