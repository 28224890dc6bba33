package netbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/OpenCHAMI/patchbay/pkg/client"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(client.NewClient(server.URL, "secret"), 2)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func TestListFollowsPagination(t *testing.T) {
	var nb *Client
	nb = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dcim/rear-ports/" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("device_id") != "5" || r.URL.Query().Get("limit") != "2" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		res := map[string]any{"count": 3}
		switch offset {
		case 0:
			next := nb.API().RootEndpoint("/dcim/rear-ports/?device_id=5&limit=2&offset=2")
			res["next"] = next
			res["results"] = []map[string]any{{"id": 1, "name": "RP1"}, {"id": 2, "name": "RP2"}}
		default:
			res["next"] = nil
			res["results"] = []map[string]any{{"id": 3, "name": "RP3", "cable": map[string]any{"id": 9}}}
		}
		writeJSON(t, w, res)
	})

	ports, err := nb.ListRearPorts(context.Background(), 5)
	if err != nil {
		t.Fatalf("failed to list rear ports: %v", err)
	}
	if len(ports) != 3 {
		t.Fatalf("expected 3 rear ports, got %d", len(ports))
	}
	if ports[2].Name != "RP3" || ports[2].Cable == nil || ports[2].Cable.ID != 9 {
		t.Errorf("unexpected last port: %+v", ports[2])
	}
}

func TestResolveByIDAndFields(t *testing.T) {
	nb := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.URL.Path == "/api/dcim/device-types/42/":
			writeJSON(t, w, map[string]any{"id": 42, "model": "DCS-7050"})
		case r.URL.Path == "/api/dcim/device-types/" && q.Get("model") == "DCS-7050":
			writeJSON(t, w, map[string]any{"count": 1, "results": []map[string]any{{"id": 42, "model": "DCS-7050"}}})
		case r.URL.Path == "/api/dcim/device-types/" && q.Get("slug") == "dcs-7050":
			writeJSON(t, w, map[string]any{"count": 1, "results": []map[string]any{{"id": 42, "model": "DCS-7050", "slug": "dcs-7050"}}})
		case r.URL.Path == "/api/dcim/device-types/":
			writeJSON(t, w, map[string]any{"count": 0, "results": []any{}})
		case r.URL.Path == "/api/dcim/module-types/":
			writeJSON(t, w, map[string]any{"count": 2, "results": []map[string]any{{"id": 1}, {"id": 2}}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	for _, ref := range []string{"42", "DCS-7050", " dcs-7050 "} {
		dt, err := nb.ResolveDeviceType(ctx, ref)
		if err != nil {
			t.Fatalf("%s: failed to resolve device type: %v", ref, err)
		}
		if dt.ID != 42 {
			t.Errorf("%s: expected id 42, got %d", ref, dt.ID)
		}
	}

	if _, err := nb.ResolveDeviceType(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := nb.ResolveDeviceType(ctx, "7"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a missing id, got %v", err)
	}
	if _, err := nb.ResolveModuleType(ctx, "PWR"); !errors.Is(err, ErrAmbiguous) {
		t.Errorf("expected ErrAmbiguous, got %v", err)
	}
	if _, err := nb.ResolveDeviceType(ctx, "  "); err == nil {
		t.Errorf("expected an empty reference to fail")
	}
}

func TestResolveModuleTypeByModel(t *testing.T) {
	nb := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/dcim/module-types/750/":
			writeJSON(t, w, map[string]any{"id": 750, "model": "LINECARD-X"})
		case r.URL.Path == "/api/dcim/module-types/" && r.URL.Query().Get("model") == "750":
			writeJSON(t, w, map[string]any{"count": 1, "results": []map[string]any{{"id": 3, "model": "750"}}})
		case r.URL.Path == "/api/dcim/module-types/":
			writeJSON(t, w, map[string]any{"count": 0, "results": []any{}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	mt, err := nb.ResolveModuleTypeByModel(ctx, "750")
	if err != nil {
		t.Fatalf("failed to resolve module type: %v", err)
	}
	if mt.ID != 3 || mt.Model != "750" {
		t.Errorf("expected model 750 (id 3), got %+v", mt)
	}
	if mt, err := nb.ResolveModuleType(ctx, "750"); err != nil || mt.ID != 750 {
		t.Errorf("expected id 750 by reference, got %+v (%v)", mt, err)
	}
	if _, err := nb.ResolveModuleTypeByModel(ctx, "1100"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveTenantWithinGroup(t *testing.T) {
	nb := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("group_id") != "3" {
			t.Errorf("expected the group filter, got %s", r.URL.RawQuery)
		}
		if q.Get("slug") != "" {
			writeJSON(t, w, map[string]any{"count": 0, "results": []any{}})
			return
		}
		writeJSON(t, w, map[string]any{"count": 1, "results": []map[string]any{
			{"id": 8, "name": "Acme", "group": map[string]any{"id": 3, "name": "Customers"}},
		}})
	})

	tenant, err := nb.ResolveTenant(context.Background(), "Acme", 3)
	if err != nil {
		t.Fatalf("failed to resolve tenant: %v", err)
	}
	if tenant.ID != 8 || tenant.Group == nil || tenant.Group.ID != 3 {
		t.Errorf("unexpected tenant: %+v", tenant)
	}
}

func TestCreateAndUpdate(t *testing.T) {
	nb := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/dcim/cables/":
			a := body["a_terminations"].([]any)[0].(map[string]any)
			if a["object_type"] != ObjectTypeRearPort || a["object_id"] != float64(1) {
				t.Errorf("unexpected termination: %v", a)
			}
			if _, ok := body["length"]; ok {
				t.Errorf("expected zero length to be omitted: %v", body)
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(t, w, map[string]any{"id": 11, "label": body["label"]})
		case r.Method == http.MethodPatch && r.URL.Path == "/api/dcim/interfaces/4/":
			if _, ok := body["name"]; ok {
				t.Errorf("expected name to be omitted from the patch: %v", body)
			}
			if body["mgmt_only"] != false {
				t.Errorf("expected mgmt_only to be sent: %v", body)
			}
			writeJSON(t, w, map[string]any{"id": 4, "name": "eth0", "type": map[string]any{"value": "1000base-t", "label": "1000BASE-T (1GE)"}})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
		}
	})
	ctx := context.Background()

	cable, err := nb.CreateCable(ctx, CableRequest{
		ATerminations: []Termination{{ObjectType: ObjectTypeRearPort, ObjectID: 1}},
		BTerminations: []Termination{{ObjectType: ObjectTypeRearPort, ObjectID: 2}},
		Label:         "sw1:RP1 <-> sw2:RP1",
	})
	if err != nil {
		t.Fatalf("failed to create cable: %v", err)
	}
	if cable.ID != 11 {
		t.Errorf("expected cable 11, got %d", cable.ID)
	}

	iface, err := nb.UpdateInterface(ctx, 4, InterfaceRequest{Type: "1000base-t"})
	if err != nil {
		t.Fatalf("failed to update interface: %v", err)
	}
	if iface.Type.String() != "1000base-t" {
		t.Errorf("unexpected interface type: %s", iface.Type.String())
	}
}

func TestTokens(t *testing.T) {
	nb := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/config/":
			if r.Header.Get("Authorization") != "Token secret" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			writeJSON(t, w, map[string]any{})
		case "/api/users/tokens/provision/":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["username"] != "admin" || body["password"] != "hunter2" {
				w.WriteHeader(http.StatusForbidden)
				fmt.Fprint(w, `{"detail": "Invalid credentials"}`)
				return
			}
			w.WriteHeader(http.StatusCreated)
			writeJSON(t, w, map[string]any{"id": 1, "key": "0123456789abcdef"})
		}
	})
	ctx := context.Background()

	if err := nb.CheckToken(ctx); err != nil {
		t.Errorf("expected the token to be accepted: %v", err)
	}
	token, err := nb.ProvisionToken(ctx, "admin", "hunter2")
	if err != nil {
		t.Fatalf("failed to provision token: %v", err)
	}
	if token != "0123456789abcdef" {
		t.Errorf("unexpected token: %s", token)
	}
	if _, err := nb.ProvisionToken(ctx, "admin", "wrong"); err == nil {
		t.Errorf("expected bad credentials to fail")
	}
}

func TestWebURLs(t *testing.T) {
	nb := NewClient(client.NewClient("https://netbox.example.com", ""), 0)
	if nb.PageSize != DefaultPageSize {
		t.Errorf("expected the default page size, got %d", nb.PageSize)
	}
	if got := nb.DeviceRearPortsURL(12); got != "https://netbox.example.com/dcim/devices/12/rear-ports/" {
		t.Errorf("unexpected URL: %s", got)
	}
}

func TestValidateChoices(t *testing.T) {
	type cable struct {
		Type string `validate:"cabletype"`
		Unit string `validate:"lengthunit"`
	}
	tests := []struct {
		in   cable
		pass bool
	}{
		{cable{}, true},
		{cable{Type: "cat6", Unit: "m"}, true},
		{cable{Type: "smf-os2"}, true},
		{cable{Type: "cat9"}, false},
		{cable{Unit: "yd"}, false},
	}
	for _, test := range tests {
		err := Validate(&test.in)
		if (err == nil) != test.pass {
			t.Errorf("%+v: expected pass=%t, got %v", test.in, test.pass, err)
		}
	}
}
