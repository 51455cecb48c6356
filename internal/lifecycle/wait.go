package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fvm/internal/api"
)

// WaitOutcome identifies how a readiness wait ended.
type WaitOutcome string

const (
	// WaitReady means the VM reached a usable state.
	WaitReady WaitOutcome = "ready"
	// WaitTimedOut means the wait budget elapsed first.
	WaitTimedOut WaitOutcome = "timeout"
	// WaitTerminalStatus means the VM reached a status from which it
	// will never become usable.
	WaitTerminalStatus WaitOutcome = "terminal_status"
	// WaitAborted means polling stopped early on an unrecoverable
	// error (auth failure, context cancellation).
	WaitAborted WaitOutcome = "aborted"
)

// WaitError is a failed readiness wait. Err carries the last transport
// error observed while polling, if any.
type WaitError struct {
	Outcome WaitOutcome
	VMID    string
	Status  api.VMStatus
	Elapsed time.Duration
	Err     error
}

func (e *WaitError) Error() string {
	switch e.Outcome {
	case WaitTimedOut:
		msg := fmt.Sprintf("timed out after %s waiting for VM %s to become Active", e.Elapsed.Round(time.Second), e.VMID)
		if e.Err != nil {
			msg += fmt.Sprintf(" (last poll error: %v)", e.Err)
		}
		return msg
	case WaitTerminalStatus:
		return fmt.Sprintf("VM %s reached status %s and will not become Active", e.VMID, e.Status)
	default:
		return fmt.Sprintf("wait for VM %s aborted: %v", e.VMID, e.Err)
	}
}

func (e *WaitError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a wait timeout.
func IsTimeout(err error) bool {
	var waitErr *WaitError
	return errors.As(err, &waitErr) && waitErr.Outcome == WaitTimedOut
}

// failFastStatuses end the wait immediately: no later poll can turn
// them into Active.
func failFast(status api.VMStatus) bool {
	return status.Terminal() || status == api.VMStatusInsufficientFunds
}

// WaitReady polls the VM status once per interval until it becomes
// usable, reaches a fail-fast status, or the timeout elapses. Fetches
// never overlap; the loop always terminates within timeout + interval
// of wall-clock time.
//
// Transient transport errors are ridden through and remembered (a VM
// can briefly be missing from the list right after create); auth
// failures abort immediately.
func (o *Orchestrator) WaitReady(ctx context.Context, id string, timeout, interval time.Duration) (*api.VM, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}
	if interval > timeout {
		return nil, fmt.Errorf("poll interval %s exceeds timeout %s", interval, timeout)
	}

	start := o.clock.Now()
	var lastErr error
	var lastStatus api.VMStatus

	for {
		vm, err := o.client.GetVM(ctx, id)
		elapsed := o.clock.Now().Sub(start)

		switch {
		case err == nil:
			if vm.Status != lastStatus {
				o.logger.Info("VM status",
					zap.String("vm_id", id),
					zap.String("status", string(vm.Status)),
					zap.Duration("elapsed", elapsed.Round(time.Second)))
				lastStatus = vm.Status
			}
			switch {
			case vm.Status == api.VMStatusActive:
				return vm, nil
			case vm.Status == api.VMStatusSmallBalance && vm.PublicIP != "":
				// The VM is up; the account just needs topping up.
				o.logger.Warn("VM is usable but the account balance is low", zap.String("vm_id", id))
				return vm, nil
			case failFast(vm.Status):
				return nil, &WaitError{Outcome: WaitTerminalStatus, VMID: id, Status: vm.Status, Elapsed: elapsed}
			}
		case api.IsAuthFailure(err):
			return nil, &WaitError{Outcome: WaitAborted, VMID: id, Elapsed: elapsed, Err: err}
		case ctx.Err() != nil:
			return nil, &WaitError{Outcome: WaitAborted, VMID: id, Elapsed: elapsed, Err: ctx.Err()}
		default:
			lastErr = err
			o.logger.Warn("poll failed, will retry",
				zap.String("vm_id", id),
				zap.Error(err))
		}

		if elapsed >= timeout {
			return nil, &WaitError{Outcome: WaitTimedOut, VMID: id, Elapsed: elapsed, Err: lastErr}
		}
		o.clock.Sleep(interval)
	}
}
