// Package lifecycle drives a single VM through creation, readiness
// polling, a read-only exercise battery, and teardown. Teardown runs
// whenever an identifier was obtained, unless explicitly disabled.
package lifecycle

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"fvm/internal/api"
	"fvm/internal/logging"
	"fvm/internal/vmspec"
)

// API is the client surface the orchestrator drives.
type API interface {
	CreateVM(ctx context.Context, req api.CreateVMRequest) ([]api.CreatedVM, error)
	GetVM(ctx context.Context, id string) (*api.VM, error)
	ListVMs(ctx context.Context) ([]api.VM, error)
	DeleteVMs(ctx context.Context, ids ...string) error
	EstimateVM(ctx context.Context, req api.EstimateRequest) (*api.PriceQuote, error)
	DefaultImages(ctx context.Context) ([]api.OSImage, error)
	Countries(ctx context.Context) ([]string, error)
	HardwareOptions(ctx context.Context) (*api.HardwareOptions, error)
	BasicConfigurations(ctx context.Context) ([]string, error)
	Offers(ctx context.Context, req api.OffersRequest) ([]api.Offer, error)
}

// Options configures one lifecycle run.
type Options struct {
	Timeout      time.Duration
	PollInterval time.Duration
	// NoCleanup leaves the created VM running; its id is surfaced in
	// the report for manual follow-up.
	NoCleanup bool
}

// Orchestrator owns the VM it creates for the duration of a run and
// issues at most one in-flight request at a time.
type Orchestrator struct {
	client API
	clock  Clock
	logger *zap.Logger
}

// New creates an orchestrator with a real clock.
func New(client API) *Orchestrator {
	return NewWithClock(client, realClock{})
}

// NewWithClock creates an orchestrator with an injected clock.
func NewWithClock(client API, clock Clock) *Orchestrator {
	return &Orchestrator{
		client: client,
		clock:  clock,
		logger: logging.Logger(),
	}
}

// Run executes one lifecycle run: create, wait for ready, exercise,
// cleanup. A create failure is fatal (there is nothing to clean up);
// any later failure is recorded and cleanup still runs.
func (o *Orchestrator) Run(ctx context.Context, spec *vmspec.Spec, opts Options) *Report {
	report := &Report{}

	// Validation happens before any network call.
	if err := spec.Validate(); err != nil {
		report.Failure = err.Error()
		return report
	}

	o.logger.Info("creating VM",
		zap.String("name", spec.Name),
		zap.String("configuration", spec.Slug()),
		zap.String("country", spec.Country))

	created, err := o.client.CreateVM(ctx, spec.ToCreateRequest())
	if err != nil {
		report.Failure = "create failed: " + err.Error()
		return report
	}
	if len(created) == 0 {
		report.Failure = "create returned no instances"
		return report
	}

	report.Created = true
	report.VMID = created[0].VMID
	report.VMName = created[0].VMName
	o.logger.Info("VM creation initiated", zap.String("vm_id", report.VMID))

	vm, err := o.WaitReady(ctx, report.VMID, opts.Timeout, opts.PollInterval)
	if err != nil {
		report.WaitOutcome = waitOutcome(err)
		report.Failure = err.Error()
	} else {
		report.WaitOutcome = WaitReady
		report.PublicIP = vm.PublicIP
		// The list endpoint is authoritative on id casing.
		if vm.ID != "" {
			report.VMID = vm.ID
		}
		o.logger.Info("VM is ready",
			zap.String("vm_id", report.VMID),
			zap.String("public_ip", vm.PublicIP))

		o.exercise(ctx, report, spec)
	}

	o.cleanup(ctx, report, opts)
	return report
}

func waitOutcome(err error) WaitOutcome {
	var waitErr *WaitError
	if errors.As(err, &waitErr) {
		return waitErr.Outcome
	}
	return WaitAborted
}

// exercise runs the fixed battery of read-only checks against a ready
// VM. A failed step never aborts the remaining steps; the aggregate is
// computed at the end from the per-step results.
func (o *Orchestrator) exercise(ctx context.Context, report *Report, spec *vmspec.Spec) {
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"vm list", func(ctx context.Context) error {
			vms, err := o.client.ListVMs(ctx)
			if err != nil {
				return err
			}
			for _, vm := range vms {
				if strings.EqualFold(vm.ID, report.VMID) {
					return nil
				}
			}
			return &api.Error{Kind: api.KindNotFound, Op: "GET vms/v3", Detail: "created VM missing from list"}
		}},
		{"vm get", func(ctx context.Context) error {
			_, err := o.client.GetVM(ctx, report.VMID)
			return err
		}},
		{"vm images", func(ctx context.Context) error {
			_, err := o.client.DefaultImages(ctx)
			return err
		}},
		{"vm estimate", func(ctx context.Context) error {
			_, err := o.client.EstimateVM(ctx, spec.ToEstimateRequest())
			return err
		}},
		{"market countries", func(ctx context.Context) error {
			_, err := o.client.Countries(ctx)
			return err
		}},
		{"market hardware", func(ctx context.Context) error {
			_, err := o.client.HardwareOptions(ctx)
			return err
		}},
		{"market configurations", func(ctx context.Context) error {
			_, err := o.client.BasicConfigurations(ctx)
			return err
		}},
		{"market offers", func(ctx context.Context) error {
			_, err := o.client.Offers(ctx, spec.ToOffersRequest())
			return err
		}},
	}

	for _, step := range steps {
		result := StepResult{Name: step.name, Status: StepPassed}
		if err := step.fn(ctx); err != nil {
			result.Status = StepFailed
			result.Detail = err.Error()
			o.logger.Warn("exercise step failed",
				zap.String("step", step.name),
				zap.Error(err))
		} else {
			o.logger.Info("exercise step passed", zap.String("step", step.name))
		}
		report.Steps = append(report.Steps, result)
	}
}

// cleanup deletes the created VM exactly once. A deletion failure is
// reported but never raised past the orchestrator boundary.
func (o *Orchestrator) cleanup(ctx context.Context, report *Report, opts Options) {
	if report.VMID == "" {
		return
	}
	if opts.NoCleanup {
		report.CleanupSkipped = true
		o.logger.Warn("cleanup skipped as requested, VM left running",
			zap.String("vm_id", report.VMID))
		return
	}

	if err := o.client.DeleteVMs(ctx, report.VMID); err != nil {
		report.CleanupError = err.Error()
		o.logger.Error("failed to delete VM",
			zap.String("vm_id", report.VMID),
			zap.Error(err))
		return
	}
	report.Deleted = true
	o.logger.Info("VM deletion initiated", zap.String("vm_id", report.VMID))
}
