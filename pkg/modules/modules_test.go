package modules

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/OpenCHAMI/patchbay/pkg/client"
	"github.com/OpenCHAMI/patchbay/pkg/netbox"
	"github.com/OpenCHAMI/patchbay/pkg/netbox/netboxtest"
	"github.com/sirupsen/logrus"
)

type fixture struct {
	fake    *netboxtest.Fake
	dt      *netbox.DeviceType
	psu     netbox.ModuleType
	devices []netbox.Device
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := netboxtest.New()
	dt := fake.AddDeviceType("Arista", "DCS-7050")
	fake.AddModuleBayTemplate(dt, "PWR2", "2")
	fake.AddModuleBayTemplate(dt, "PWR1", "1")
	psu := fake.AddModuleType("Arista", "PWR-500AC")

	devices := []netbox.Device{}
	for _, name := range []string{"leaf1", "leaf2"} {
		d := fake.AddDevice(name, dt)
		fake.AddModuleBay(d, "PWR2", "2")
		fake.AddModuleBay(d, "PWR1", "1")
		devices = append(devices, d)
	}
	return &fixture{fake: fake, dt: dt, psu: psu, devices: devices}
}

func TestInstallCreatesModules(t *testing.T) {
	fx := newFixture(t)
	fx.fake.Occupy(fx.devices[1], "PWR1", fx.psu)

	report, err := Install(context.Background(), fx.fake, MappingParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices,
		Config:     `{"PWR1": "PWR-500AC"}`,
		Options:    Options{Replicate: true, Description: "  psu  ", Commit: true},
	})
	if err != nil {
		t.Fatalf("failed to install modules: %v", err)
	}
	if report.Created != 1 || report.Skipped != 3 || report.Errors != 0 {
		t.Fatalf("expected 1 created and 3 skipped, got %+v", report)
	}
	if !report.OK || report.Result != "FINAL: 1 created | 3 skipped" {
		t.Errorf("unexpected result: %s", report.Result)
	}

	// bays are processed in position order
	first := report.Results[0]
	if first.Device != "leaf1" || first.Bay != "PWR1" || first.Status != StatusCreated || first.Module != "Arista PWR-500AC" {
		t.Errorf("unexpected first result: %+v", first)
	}
	if report.Results[1].Status != StatusSkipped || report.Results[1].Module != "Not configured" {
		t.Errorf("expected PWR2 to be skipped, got %+v", report.Results[1])
	}
	if report.Results[2].Status != StatusOccupied || report.Results[2].Module != "PWR-500AC" {
		t.Errorf("expected occupied bay on leaf2, got %+v", report.Results[2])
	}

	if len(fx.fake.Modules) != 1 {
		t.Fatalf("expected 1 module, got %d", len(fx.fake.Modules))
	}
	if fx.fake.Modules[0].Status.Value != netbox.ModuleStatusActive {
		t.Errorf("expected active status, got %v", fx.fake.Modules[0].Status)
	}
}

func TestInstallDryRun(t *testing.T) {
	fx := newFixture(t)
	report, err := Install(context.Background(), fx.fake, MappingParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices,
		Config:     `{"PWR1": "PWR-500AC", "PWR2": "PWR-500AC"}`,
	})
	if err != nil {
		t.Fatalf("failed to install modules: %v", err)
	}
	if len(fx.fake.Mutations) != 0 {
		t.Errorf("expected no mutations, got %v", fx.fake.Mutations)
	}
	if report.Planned != 4 || report.Created != 0 {
		t.Errorf("expected 4 planned modules, got planned=%d created=%d", report.Planned, report.Created)
	}
}

func TestInstallConflictIsWarning(t *testing.T) {
	fx := newFixture(t)
	fx.fake.Errors["CreateModule PWR1"] = &client.APIError{
		StatusCode: 500,
		Body:       `duplicate key value violates unique constraint "dcim_powerport_unique_device_name"`,
	}
	fx.fake.Errors["CreateModule PWR2"] = &client.APIError{StatusCode: 500, Body: "server exploded"}

	report, err := Install(context.Background(), fx.fake, MappingParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices[:1],
		Config:     `{"PWR1": "PWR-500AC", "PWR2": "PWR-500AC"}`,
		Options:    Options{Commit: true},
	})
	if err != nil {
		t.Fatalf("failed to install modules: %v", err)
	}
	if report.Warnings != 1 || report.Skipped != 1 || report.Errors != 1 {
		t.Fatalf("expected 1 warning, 1 skipped and 1 error, got %+v", report)
	}
	if report.Results[0].Warning != "Power port name conflict" {
		t.Errorf("unexpected warning: %s", report.Results[0].Warning)
	}
	if report.OK {
		t.Errorf("expected the report to be marked as failed")
	}

	var buf bytes.Buffer
	if err := report.WriteText(&buf, logrus.InfoLevel); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"INSTALLATION SUMMARY",
		"⚠ WARNING (1):",
		"WARNINGS - ACTION REQUIRED",
		"  • leaf1 - PWR1: Power port name conflict",
		"TABULAR REPORT",
		"FINAL: 0 created | 1 skipped | 1 warnings | 1 errors",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestInstallRetriesWithoutComponentFlags(t *testing.T) {
	fx := newFixture(t)
	store := &rejectFlags{Fake: fx.fake}

	report, err := Install(context.Background(), store, MappingParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices[:1],
		Config:     `{"PWR1": "PWR-500AC"}`,
		Options:    Options{Replicate: true, Commit: true},
	})
	if err != nil {
		t.Fatalf("failed to install modules: %v", err)
	}
	if report.Created != 1 || store.rejected != 1 {
		t.Errorf("expected a retried create, got created=%d rejected=%d", report.Created, store.rejected)
	}
	found := false
	for _, e := range report.Log {
		if strings.Contains(e.Message, "Component replication not supported") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a warning about component replication")
	}
}

type rejectFlags struct {
	*netboxtest.Fake
	rejected int
}

func (r *rejectFlags) CreateModule(ctx context.Context, req netbox.ModuleRequest) (*netbox.Module, error) {
	if req.ReplicateComponents != nil {
		r.rejected++
		return nil, &client.APIError{StatusCode: 400, Body: `{"replicate_components": ["unknown field"]}`}
	}
	return r.Fake.CreateModule(ctx, req)
}

func TestInstallEarlyExits(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	report, err := Install(ctx, fx.fake, MappingParams{DeviceType: *fx.dt, Devices: fx.devices, Config: `{"PWR1":`})
	if err != nil || report.OK || report.Result != "Error: Invalid JSON format" {
		t.Errorf("expected invalid JSON failure, got %v / %+v", err, report)
	}

	report, err = Install(ctx, fx.fake, MappingParams{DeviceType: *fx.dt, Devices: fx.devices})
	if err != nil || report.Result != "Error: No modules configured" {
		t.Errorf("expected no modules configured, got %v / %+v", err, report)
	}

	report, err = Install(ctx, fx.fake, MappingParams{DeviceType: *fx.dt, Devices: fx.devices, Config: `{"PWR1": "PWR-9000"}`})
	if err != nil || report.Result != "Error: Module type 'PWR-9000' does not exist" {
		t.Errorf("expected unknown module failure, got %v / %+v", err, report)
	}

	bare := fx.fake.AddDeviceType("Generic", "1U")
	report, err = Install(ctx, fx.fake, MappingParams{DeviceType: *bare, Devices: fx.devices, Config: `{"PWR1": "PWR-500AC"}`})
	if err != nil || report.Result != "No module bays in template" || !report.OK {
		t.Errorf("expected no module bays result, got %v / %+v", err, report)
	}

	if len(fx.fake.Mutations) != 0 {
		t.Errorf("expected no mutations, got %v", fx.fake.Mutations)
	}
}

func TestInstallDeviceWithoutBaysCountsError(t *testing.T) {
	fx := newFixture(t)
	empty := fx.fake.AddDevice("spine1", fx.dt)
	report, err := Install(context.Background(), fx.fake, MappingParams{
		DeviceType: *fx.dt,
		Devices:    []netbox.Device{empty},
		Config:     `{"PWR1": "PWR-500AC"}`,
		Options:    Options{Commit: true},
	})
	if err != nil {
		t.Fatalf("failed to install modules: %v", err)
	}
	if report.Errors != 1 || report.OK {
		t.Errorf("expected 1 error, got %d", report.Errors)
	}
}

func TestInstallRejectsMissingDevices(t *testing.T) {
	fx := newFixture(t)
	_, err := Install(context.Background(), fx.fake, MappingParams{DeviceType: *fx.dt})
	if err == nil {
		t.Errorf("expected a validation error")
	}
}

func TestInstallPairs(t *testing.T) {
	fx := newFixture(t)
	fx.fake.Occupy(fx.devices[0], "PWR2", fx.psu)

	report, err := InstallPairs(context.Background(), fx.fake, PairsParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices,
		Pairs:      Config{{" PWR2 ", "PWR-500AC"}, {"PWR1", ""}, {"", "PWR-500AC"}},
		Options:    Options{Commit: true},
	})
	if err != nil {
		t.Fatalf("failed to install pairs: %v", err)
	}
	if report.Created != 1 || report.Skipped != 1 {
		t.Fatalf("expected 1 created and 1 skipped, got %+v", report)
	}
	if len(fx.fake.Mutations) != 1 || fx.fake.Mutations[0] != "CreateModule PWR2" {
		t.Errorf("expected only PWR2 on leaf2 to be installed, got %v", fx.fake.Mutations)
	}

	var buf bytes.Buffer
	if err := report.WriteText(&buf, logrus.InfoLevel); err != nil {
		t.Fatalf("failed to write report: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"INSTALLATION COMPLETE", "Created: 1", "Skipped: 1", "leaf2 | PWR2 | PWR-500AC"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected report to contain %q, got:\n%s", want, out)
		}
	}
}

func TestInstallMatchesNumericModels(t *testing.T) {
	fx := newFixture(t)
	// a model that reads like the psu's ID
	numeric := fx.fake.AddModuleType("Arista", strconv.Itoa(fx.psu.ID))
	config := `{"PWR1": "` + numeric.Model + `"}`

	report, err := Install(context.Background(), fx.fake, MappingParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices[:1],
		Config:     config,
		Options:    Options{Commit: true},
	})
	if err != nil {
		t.Fatalf("failed to install modules: %v", err)
	}
	if report.Created != 1 || len(fx.fake.Modules) != 1 {
		t.Fatalf("expected 1 module, got %+v", report)
	}
	if got := fx.fake.Modules[0].ModuleType; got == nil || got.ID != numeric.ID {
		t.Errorf("expected module type %d (model %s), got %+v", numeric.ID, numeric.Model, got)
	}

	// pairs take a numeric reference as an ID
	report, err = InstallPairs(context.Background(), fx.fake, PairsParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices[1:],
		Pairs:      Config{{"PWR1", numeric.Model}},
		Options:    Options{Commit: true},
	})
	if err != nil {
		t.Fatalf("failed to install pairs: %v", err)
	}
	if report.Created != 1 || len(fx.fake.Modules) != 2 {
		t.Fatalf("expected a second module, got %+v", report)
	}
	if got := fx.fake.Modules[1].ModuleType; got == nil || got.ID != fx.psu.ID {
		t.Errorf("expected module type %d by ID, got %+v", fx.psu.ID, got)
	}
}

func TestInstallPairsAmbiguousModuleType(t *testing.T) {
	fx := newFixture(t)
	fx.fake.AddModuleType("Arista", "PWR-DUP")
	fx.fake.AddModuleType("Juniper", "PWR-DUP")

	report, err := InstallPairs(context.Background(), fx.fake, PairsParams{
		DeviceType: *fx.dt,
		Devices:    fx.devices,
		Pairs:      Config{{"PWR1", "PWR-DUP"}},
		Options:    Options{Commit: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OK || report.Result != "Error: Module type 'PWR-DUP' is ambiguous" {
		t.Errorf("unexpected result: %s", report.Result)
	}
	if len(fx.fake.Mutations) != 0 {
		t.Errorf("expected no mutations, got %v", fx.fake.Mutations)
	}
}

func TestInstallPairsWithoutPairs(t *testing.T) {
	fx := newFixture(t)
	report, err := InstallPairs(context.Background(), fx.fake, PairsParams{DeviceType: *fx.dt, Devices: fx.devices})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OK || report.Result != "Error: No bay/module pairs configured" {
		t.Errorf("unexpected result: %s", report.Result)
	}
}

func TestClassifyConflict(t *testing.T) {
	tests := map[string]string{
		`Key (device_id, name)=(1, PSU1) already exists in dcim_powerport`: "Power port name conflict",
		`duplicate key value violates unique constraint "dcim_interface_unique"`: "Interface name conflict",
		`duplicate key value in dcim_consoleport`:                               "Console port name conflict",
		`duplicate key value`:                                                   "Duplicate component conflict",
	}
	for body, want := range tests {
		if got := ClassifyConflict(errors.New(body)); got != want {
			t.Errorf("%s: expected %s, got %s", body, want, got)
		}
	}
}
