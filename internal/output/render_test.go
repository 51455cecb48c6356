package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"fvm/internal/api"
)

func testVMs() []api.VM {
	return []api.VM{
		{
			ID:       "0x1234567890abcdef1234",
			VMName:   "web-1",
			Status:   api.VMStatusActive,
			PublicIP: "192.0.2.10",
			Resources: []api.Resource{
				{Type: "VCPU", Supply: 2},
				{Type: "RAM", Supply: 4},
				{Type: "STORAGE", Supply: 25},
			},
			Datacenter: &api.Datacenter{CountryCode: "US"},
		},
		{
			ID:     "0xshort",
			VMName: "web-2",
			Status: api.VMStatusLaunching,
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"table", "json", "compact"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) = %v", valid, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("ParseFormat accepted xml")
	}
}

func TestTruncateID(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"0xshort", "0xshort"},
		{"exactly16chars..", "exactly16chars.."},
		{"0x1234567890abcdef1234", "0x1234...ef1234"},
	}
	for _, tt := range tests {
		if got := truncateID(tt.id); got != tt.want {
			t.Errorf("truncateID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestVMListTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf)

	if err := r.VMList(testVMs(), false); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"ID", "NAME", "STATUS", "web-1", "192.0.2.10", "Active", "US"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "0x1234567890abcdef1234") {
		t.Error("long id was not truncated")
	}
	if !strings.Contains(out, "0x1234...ef1234") {
		t.Errorf("truncated id missing:\n%s", out)
	}
}

func TestVMListFullID(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf)

	if err := r.VMList(testVMs(), true); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "0x1234567890abcdef1234") {
		t.Error("full-id output truncated the id")
	}
}

func TestVMListEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf)

	if err := r.VMList(nil, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No VMs found") {
		t.Errorf("empty list output = %q", buf.String())
	}
}

func TestVMListJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatJSON, &buf)

	vms := testVMs()
	if err := r.VMList(vms, false); err != nil {
		t.Fatal(err)
	}

	var decoded []api.VM
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json output does not parse: %v", err)
	}
	if len(decoded) != len(vms) || decoded[0].ID != vms[0].ID {
		t.Errorf("decoded = %+v", decoded)
	}
	// JSON output always carries full ids.
	if decoded[0].ID != "0x1234567890abcdef1234" {
		t.Error("json output truncated the id")
	}
}

func TestVMListCompact(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatCompact, &buf)

	if err := r.VMList(testVMs(), false); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("compact output has %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "1. ") || !strings.Contains(lines[0], "web-1") {
		t.Errorf("compact line = %q", lines[0])
	}
}

func TestVMDetails(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf)

	vm := testVMs()[0]
	vm.Ports = []api.PortSpec{{Port: 22, Protocol: "tcp"}, {Port: 443, Protocol: "tcp"}}
	if err := r.VMDetails(&vm); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"web-1", "192.0.2.10", "22/tcp, 443/tcp", "2", "4 GB"} {
		if !strings.Contains(out, want) {
			t.Errorf("details missing %q:\n%s", want, out)
		}
	}
}

func TestQuoteDerivesMissingAmounts(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf)

	if err := r.Quote(&api.PriceQuote{TotalPricePerEpochUsd: "2.40"}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Daily price: $2.40") {
		t.Errorf("daily price missing:\n%s", out)
	}
	if !strings.Contains(out, "Hourly price: $0.100000") {
		t.Errorf("derived hourly price missing:\n%s", out)
	}
	if !strings.Contains(out, "Monthly price (30 days): $72.00") {
		t.Errorf("derived monthly price missing:\n%s", out)
	}
}

func TestQuoteWithoutPricing(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf)

	if err := r.Quote(&api.PriceQuote{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No pricing information") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestOffersTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(FormatTable, &buf)

	offers := []api.Offer{{
		Configuration:    api.OfferConfiguration{Slug: "cpu-2-ram-4gb-storage-25gb", Price: "1.20"},
		Datacenter:       &api.Datacenter{CountryCode: "DE"},
		ServersAvailable: 7,
	}}
	if err := r.Offers(offers); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"cpu-2-ram-4gb-storage-25gb", "$1.20", "DE", "7"} {
		if !strings.Contains(out, want) {
			t.Errorf("offers output missing %q:\n%s", want, out)
		}
	}
}

func TestCountriesFormats(t *testing.T) {
	codes := []string{"US", "DE"}

	var table bytes.Buffer
	if err := NewRenderer(FormatTable, &table).Countries(codes); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(table.String(), "1. US") || !strings.Contains(table.String(), "2. DE") {
		t.Errorf("table countries = %q", table.String())
	}

	var compact bytes.Buffer
	if err := NewRenderer(FormatCompact, &compact).Countries(codes); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(compact.String(), "US, DE") {
		t.Errorf("compact countries = %q", compact.String())
	}
}
