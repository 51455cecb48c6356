package e2e_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"fvm/internal/api"
	"fvm/internal/lifecycle"
	"fvm/internal/vmspec"
)

const testAPIKey = "e2e-test-key"

// fakeVM is the server-side record of a provisioned VM.
type fakeVM struct {
	api.VM
	pollsUntilActive int
}

// fakeFluence is an in-memory stand-in for the marketplace API. VMs
// start Launching and become Active after a configurable number of
// list fetches.
type fakeFluence struct {
	mu               sync.Mutex
	vms              map[string]*fakeVM
	nextID           int
	pollsUntilActive int
	deleteRequests   [][]string
}

func newFakeFluence(pollsUntilActive int) *fakeFluence {
	return &fakeFluence{
		vms:              make(map[string]*fakeVM),
		pollsUntilActive: pollsUntilActive,
	}
}

func (f *fakeFluence) authorized(r *http.Request) bool {
	return r.Header.Get("Authorization") == "Bearer "+testAPIKey
}

func (f *fakeFluence) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/vms/v3", f.handleVMs)
	mux.HandleFunc("/vms/v3/estimate", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.PriceQuote{TotalPricePerEpochUsd: "1.92", Instances: 1})
	})
	mux.HandleFunc("/vms/v3/default-images", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]api.OSImage{
			{Slug: "ubuntu-22-04-x64", Name: "Ubuntu 22.04 LTS", DownloadURL: "https://example.com/jammy.img"},
		})
	})
	mux.HandleFunc("/marketplace/v3/countries", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"US", "DE", "FR"})
	})
	mux.HandleFunc("/marketplace/v3/hardware", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.HardwareOptions{
			CPU:     []api.CPUHardware{{Manufacturer: "AMD", Architecture: "Zen"}},
			Storage: []api.StorageHardware{{Type: "SSD"}},
		})
	})
	mux.HandleFunc("/marketplace/v3/basic-configurations", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]string{"cpu-2-ram-4gb-storage-25gb", "cpu-4-ram-8gb-storage-50gb"})
	})
	mux.HandleFunc("/marketplace/v3/offers", func(w http.ResponseWriter, r *http.Request) {
		var req api.OffersRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode([]api.Offer{{
			Configuration:    api.OfferConfiguration{Slug: req.Constraints.BasicConfiguration, Price: "1.92"},
			Datacenter:       &api.Datacenter{CountryCode: "US"},
			ServersAvailable: 3,
		}})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid api key"})
			return
		}
		mux.ServeHTTP(w, r)
	})
}

func (f *fakeFluence) handleVMs(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPost:
		var req api.CreateVMRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "malformed request"})
			return
		}
		if req.Constraints.BasicConfiguration == "" || len(req.VMConfiguration.SSHKeys) == 0 {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"error": "incomplete configuration"})
			return
		}
		var created []api.CreatedVM
		for i := 0; i < req.Instances; i++ {
			f.nextID++
			id := fmt.Sprintf("0x%04d0123456789abcdef", f.nextID)
			f.vms[id] = &fakeVM{
				VM: api.VM{
					ID:     id,
					VMName: req.VMConfiguration.Name,
					Status: api.VMStatusLaunching,
					Ports:  req.VMConfiguration.OpenPorts,
				},
				pollsUntilActive: f.pollsUntilActive,
			}
			created = append(created, api.CreatedVM{VMID: id, VMName: req.VMConfiguration.Name})
		}
		json.NewEncoder(w).Encode(created)

	case http.MethodGet:
		vms := make([]api.VM, 0, len(f.vms))
		for _, vm := range f.vms {
			if vm.Status == api.VMStatusLaunching {
				if vm.pollsUntilActive <= 0 {
					vm.Status = api.VMStatusActive
					vm.PublicIP = "192.0.2.50"
				} else {
					vm.pollsUntilActive--
				}
			}
			vms = append(vms, vm.VM)
		}
		json.NewEncoder(w).Encode(vms)

	case http.MethodPatch:
		var req api.UpdateVMRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, patch := range req.Updates {
			vm, ok := f.vms[patch.ID]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				json.NewEncoder(w).Encode(map[string]string{"error": "VM not found"})
				return
			}
			if patch.VMName != "" {
				vm.VMName = patch.VMName
			}
			if patch.OpenPorts != nil {
				vm.Ports = patch.OpenPorts
			}
		}
		w.WriteHeader(http.StatusOK)

	case http.MethodDelete:
		var req api.DeleteVMRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.deleteRequests = append(f.deleteRequests, req.VMIDs)
		for _, id := range req.VMIDs {
			delete(f.vms, id)
		}
		w.WriteHeader(http.StatusOK)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// instantClock never sleeps so polling loops run at full speed.
type instantClock struct{ now time.Time }

func (c *instantClock) Now() time.Time        { return c.now }
func (c *instantClock) Sleep(d time.Duration) { c.now = c.now.Add(d) }

var _ = Describe("VM lifecycle", func() {
	var (
		fake   *fakeFluence
		server *httptest.Server
		client *api.Client
		orch   *lifecycle.Orchestrator
		ctx    context.Context
	)

	newSpec := func() *vmspec.Spec {
		return &vmspec.Spec{
			CPU:       2,
			MemoryGB:  4,
			StorageGB: 25,
			Country:   "US",
			Name:      "e2e-vm",
			Hostname:  "e2e-vm",
			SSHKeys:   []string{"ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAITest"},
			OpenPorts: []api.PortSpec{{Port: 22, Protocol: "tcp"}},
			Instances: 1,
		}
	}

	BeforeEach(func() {
		fake = newFakeFluence(2)
		server = httptest.NewServer(fake.handler())

		client = api.New(server.URL, testAPIKey)
		client.MinRequestInterval = 0

		orch = lifecycle.NewWithClock(client, &instantClock{now: time.Now()})
		ctx = context.Background()
	})

	AfterEach(func() {
		server.Close()
	})

	Context("full run", func() {
		It("creates, waits, exercises and deletes the VM", func() {
			report := orch.Run(ctx, newSpec(), lifecycle.Options{
				Timeout:      time.Minute,
				PollInterval: time.Second,
			})

			Expect(report.Failure).To(BeEmpty())
			Expect(report.Created).To(BeTrue())
			Expect(report.VMID).NotTo(BeEmpty())
			Expect(report.WaitOutcome).To(Equal(lifecycle.WaitReady))
			Expect(report.PublicIP).To(Equal("192.0.2.50"))

			Expect(report.Steps).To(HaveLen(8))
			for _, step := range report.Steps {
				Expect(step.Status).To(Equal(lifecycle.StepPassed), "step %s: %s", step.Name, step.Detail)
			}

			Expect(report.Deleted).To(BeTrue())
			Expect(fake.deleteRequests).To(HaveLen(1))
			Expect(fake.deleteRequests[0]).To(ConsistOf(report.VMID))
			Expect(report.ExitCode()).To(BeZero())
		})

		It("leaves the VM running with --no-cleanup semantics", func() {
			report := orch.Run(ctx, newSpec(), lifecycle.Options{
				Timeout:      time.Minute,
				PollInterval: time.Second,
				NoCleanup:    true,
			})

			Expect(report.Failure).To(BeEmpty())
			Expect(report.CleanupSkipped).To(BeTrue())
			Expect(fake.deleteRequests).To(BeEmpty())

			vm, err := client.GetVM(ctx, report.VMID)
			Expect(err).NotTo(HaveOccurred())
			Expect(vm.Status).To(Equal(api.VMStatusActive))
		})
	})

	Context("failure handling", func() {
		It("aborts immediately on an invalid API key", func() {
			bad := api.New(server.URL, "wrong-key")
			bad.MinRequestInterval = 0
			badOrch := lifecycle.NewWithClock(bad, &instantClock{now: time.Now()})

			report := badOrch.Run(ctx, newSpec(), lifecycle.Options{
				Timeout:      time.Minute,
				PollInterval: time.Second,
			})

			Expect(report.Created).To(BeFalse())
			Expect(report.Failure).To(ContainSubstring("authentication"))
			Expect(report.ExitCode()).To(Equal(1))
		})

		It("rejects an incomplete spec before any request", func() {
			spec := newSpec()
			spec.SSHKeys = nil

			report := orch.Run(ctx, newSpec(), lifecycle.Options{
				Timeout:      time.Minute,
				PollInterval: time.Second,
			})
			Expect(report.Failure).To(BeEmpty())

			report = orch.Run(ctx, spec, lifecycle.Options{
				Timeout:      time.Minute,
				PollInterval: time.Second,
			})
			Expect(report.Failure).To(ContainSubstring("ssh"))
			Expect(report.Created).To(BeFalse())
		})
	})

	Context("client operations", func() {
		It("serves the marketplace metadata the CLI renders", func() {
			countries, err := client.Countries(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(countries).To(ContainElement("US"))

			configs, err := client.BasicConfigurations(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(configs).To(ContainElement("cpu-2-ram-4gb-storage-25gb"))

			hw, err := client.HardwareOptions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(hw.CPU).NotTo(BeEmpty())

			images, err := client.DefaultImages(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(images[0].Slug).To(Equal("ubuntu-22-04-x64"))
		})

		It("prices a spec without creating anything", func() {
			quote, err := client.EstimateVM(ctx, newSpec().ToEstimateRequest())
			Expect(err).NotTo(HaveOccurred())
			Expect(quote.DailyUSD()).To(Equal("1.92"))
			Expect(fake.vms).To(BeEmpty())
		})

		It("updates a VM through the patch endpoint", func() {
			report := orch.Run(ctx, newSpec(), lifecycle.Options{
				Timeout:      time.Minute,
				PollInterval: time.Second,
				NoCleanup:    true,
			})
			Expect(report.Failure).To(BeEmpty())

			patch := api.VMPatch{
				ID:        report.VMID,
				VMName:    "renamed-vm",
				OpenPorts: []api.PortSpec{{Port: 22, Protocol: "tcp"}, {Port: 8080, Protocol: "tcp"}},
			}
			Expect(client.UpdateVM(ctx, patch)).To(Succeed())

			vm, err := client.GetVM(ctx, report.VMID)
			Expect(err).NotTo(HaveOccurred())
			Expect(vm.VMName).To(Equal("renamed-vm"))
			Expect(vm.Ports).To(HaveLen(2))
		})
	})
})
