// Package netbox holds the REST representation of the NetBox records
// patchbay reads and writes, plus a typed client on top of pkg/client.
package netbox

import "fmt"

// ChoiceValue is how NetBox renders choice fields such as 'type' or
// 'status' on read. Writes use the bare value.
type ChoiceValue struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

func (c *ChoiceValue) String() string {
	if c == nil {
		return ""
	}
	return c.Value
}

type NestedManufacturer struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type NestedDeviceType struct {
	ID           int                 `json:"id"`
	Model        string              `json:"model"`
	Slug         string              `json:"slug"`
	Display      string              `json:"display"`
	Manufacturer *NestedManufacturer `json:"manufacturer"`
}

type NestedDevice struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Display string `json:"display"`
}

type NestedCable struct {
	ID      int    `json:"id"`
	Label   string `json:"label"`
	Display string `json:"display"`
}

type NestedRearPort struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Display string `json:"display"`
}

type NestedModuleBay struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Display string `json:"display"`
}

type NestedModuleType struct {
	ID           int                 `json:"id"`
	Model        string              `json:"model"`
	Display      string              `json:"display"`
	Manufacturer *NestedManufacturer `json:"manufacturer"`
}

type NestedModule struct {
	ID         int               `json:"id"`
	Display    string            `json:"display"`
	ModuleType *NestedModuleType `json:"module_type"`
}

type NestedTenantGroup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Device struct {
	ID         int               `json:"id"`
	Name       string            `json:"name"`
	Display    string            `json:"display"`
	DeviceType *NestedDeviceType `json:"device_type"`
}

// String() mirrors how NetBox labels a device: its name when set,
// otherwise the server-side display string.
func (d Device) String() string {
	switch {
	case d.Name != "":
		return d.Name
	case d.Display != "":
		return d.Display
	}
	return fmt.Sprintf("Device %d", d.ID)
}

// DeviceTypeID() returns 0 when the device type was not expanded.
func (d Device) DeviceTypeID() int {
	if d.DeviceType == nil {
		return 0
	}
	return d.DeviceType.ID
}

type DeviceType struct {
	ID           int                 `json:"id"`
	Model        string              `json:"model"`
	Slug         string              `json:"slug"`
	Display      string              `json:"display"`
	Manufacturer *NestedManufacturer `json:"manufacturer"`
}

// FullName() is "<manufacturer> <model>".
func (dt DeviceType) FullName() string {
	if dt.Manufacturer == nil || dt.Manufacturer.Name == "" {
		return dt.Model
	}
	return dt.Manufacturer.Name + " " + dt.Model
}

type Interface struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Display     string       `json:"display"`
	Type        *ChoiceValue `json:"type"`
	MgmtOnly    bool         `json:"mgmt_only"`
	Description string       `json:"description"`
}

type InterfaceTemplate struct {
	ID       int          `json:"id"`
	Name     string       `json:"name"`
	Type     *ChoiceValue `json:"type"`
	MgmtOnly bool         `json:"mgmt_only"`
}

type RearPort struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Display     string       `json:"display"`
	Type        *ChoiceValue `json:"type"`
	Positions   int          `json:"positions"`
	Cable       *NestedCable `json:"cable"`
	Description string       `json:"description"`
}

type RearPortTemplate struct {
	ID        int          `json:"id"`
	Name      string       `json:"name"`
	Type      *ChoiceValue `json:"type"`
	Positions int          `json:"positions"`
}

type FrontPort struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Display          string          `json:"display"`
	Type             *ChoiceValue    `json:"type"`
	RearPort         *NestedRearPort `json:"rear_port"`
	RearPortPosition int             `json:"rear_port_position"`
	Description      string          `json:"description"`
}

type FrontPortTemplate struct {
	ID               int             `json:"id"`
	Name             string          `json:"name"`
	Type             *ChoiceValue    `json:"type"`
	RearPort         *NestedRearPort `json:"rear_port"`
	RearPortPosition int             `json:"rear_port_position"`
}

type ModuleBay struct {
	ID              int           `json:"id"`
	Name            string        `json:"name"`
	Position        string        `json:"position"`
	InstalledModule *NestedModule `json:"installed_module"`
}

type ModuleBayTemplate struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
}

type ModuleType struct {
	ID           int                 `json:"id"`
	Model        string              `json:"model"`
	Display      string              `json:"display"`
	Manufacturer *NestedManufacturer `json:"manufacturer"`
}

// FullName() is "<manufacturer> <model>".
func (mt ModuleType) FullName() string {
	if mt.Manufacturer == nil || mt.Manufacturer.Name == "" {
		return mt.Model
	}
	return mt.Manufacturer.Name + " " + mt.Model
}

type Module struct {
	ID         int               `json:"id"`
	Device     *NestedDevice     `json:"device"`
	ModuleBay  *NestedModuleBay  `json:"module_bay"`
	ModuleType *NestedModuleType `json:"module_type"`
	Status     *ChoiceValue      `json:"status"`
}

type Cable struct {
	ID     int          `json:"id"`
	Label  string       `json:"label"`
	Type   string       `json:"type"`
	Status *ChoiceValue `json:"status"`
}

type Tenant struct {
	ID    int                `json:"id"`
	Name  string             `json:"name"`
	Slug  string             `json:"slug"`
	Group *NestedTenantGroup `json:"group"`
}

type TenantGroup struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Termination is one end of a cable in the write representation.
type Termination struct {
	ObjectType string `json:"object_type"`
	ObjectID   int    `json:"object_id"`
}

const ObjectTypeRearPort = "dcim.rearport"

type CableRequest struct {
	ATerminations []Termination `json:"a_terminations"`
	BTerminations []Termination `json:"b_terminations"`
	Label         string        `json:"label,omitempty"`
	Type          string        `json:"type,omitempty"`
	Length        float64       `json:"length,omitempty"`
	LengthUnit    string        `json:"length_unit,omitempty"`
	Tenant        int           `json:"tenant,omitempty"`
	Tags          []int         `json:"tags,omitempty"`
}

type ModuleRequest struct {
	Device              int    `json:"device"`
	ModuleBay           int    `json:"module_bay"`
	ModuleType          int    `json:"module_type"`
	Status              string `json:"status,omitempty"`
	Description         string `json:"description,omitempty"`
	ReplicateComponents *bool  `json:"replicate_components,omitempty"`
	AdoptComponents     *bool  `json:"adopt_components,omitempty"`
}

// InterfaceRequest is used for both POST and PATCH; zero device and name
// are omitted so a PATCH only carries the synchronised fields.
type InterfaceRequest struct {
	Device      int    `json:"device,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	MgmtOnly    bool   `json:"mgmt_only"`
	Description string `json:"description,omitempty"`
}

type RearPortRequest struct {
	Device      int    `json:"device,omitempty"`
	Name        string `json:"name,omitempty"`
	Type        string `json:"type,omitempty"`
	Positions   int    `json:"positions,omitempty"`
	Description string `json:"description,omitempty"`
}

type FrontPortRequest struct {
	Device           int    `json:"device,omitempty"`
	Name             string `json:"name,omitempty"`
	Type             string `json:"type,omitempty"`
	RearPort         int    `json:"rear_port,omitempty"`
	RearPortPosition int    `json:"rear_port_position,omitempty"`
	Description      string `json:"description,omitempty"`
}

// DeviceFilter narrows ListDevices. Zero values are ignored.
type DeviceFilter struct {
	DeviceTypeID int
	Name         string
}
