package bootloader

import (
	"context"
	"errors"

	"github.com/looplab/fsm"

	"github.com/openfota/bootcore/internal/bootloader/core"
	fsmutil "github.com/openfota/bootcore/internal/pkg/util/fsm"
)

// Boot states. Exactly one is resolved from the persisted flags per boot;
// the machine fires a single event and the device boots.
const (
	StateNormal          = "normal"
	StatePendingSwap     = "pending_swap"
	StatePendingRollback = "pending_rollback"
	StateAfterRollback   = "after_rollback"
)

const (
	// EventRollback reverts the application slot to its pre-update contents.
	EventRollback = "event_rollback"
	// EventInstall swaps a staged image in and arms the default rollback.
	EventInstall = "event_install"
	// EventCommit certifies the running image when nothing is pending.
	EventCommit = "event_commit"
)

// decisionMachine wraps the one-shot boot decision. Each source state
// accepts exactly one event, so the store-call sequence per flag
// combination is fully fixed.
type decisionMachine struct {
	*fsm.FSM
}

func (b *Bootloader) newDecisionMachine(initial string) *decisionMachine {
	m := &decisionMachine{}

	events := fsm.Events{
		{Name: EventRollback, Src: []string{StatePendingRollback}, Dst: StateAfterRollback},
		{Name: EventInstall, Src: []string{StatePendingSwap}, Dst: StateNormal},
		{Name: EventCommit, Src: []string{StateNormal}, Dst: StateNormal},
	}

	callbacks := fsm.Callbacks{
		"before_" + EventRollback: fsmutil.WrapEvent(b.actionRollback),
		"before_" + EventInstall:  fsmutil.WrapEvent(b.actionInstall),
		"before_" + EventCommit:   fsmutil.WrapEvent(b.actionCommit),
	}

	m.FSM = fsm.NewFSM(initial, events, callbacks)
	return m
}

// isRealError filters the library's bookkeeping results: a commit fires a
// same-state transition, which looplab/fsm reports as NoTransitionError.
func isRealError(err error) bool {
	if err == nil {
		return false
	}

	var noTransition fsm.NoTransitionError
	var canceled fsm.CanceledError

	if errors.As(err, &noTransition) || errors.As(err, &canceled) {
		return false
	}

	return true
}

// resolveState maps the persisted flags to the single active boot state.
// Rollback takes precedence over a pending swap: an uncertified image is
// reverted even if another upload got staged in the meantime.
func resolveState(store core.StatusStore) string {
	if store.ShouldRollback() {
		return StatePendingRollback
	}
	if store.HasFirmwareToSwap() {
		return StatePendingSwap
	}
	return StateNormal
}

// eventFor returns the one event a resolved state accepts.
func eventFor(state string) string {
	switch state {
	case StatePendingRollback:
		return EventRollback
	case StatePendingSwap:
		return EventInstall
	default:
		return EventCommit
	}
}

// actionRollback: swap back, certify the restored image, record that this
// boot is the result of a rollback.
func (b *Bootloader) actionRollback(ctx context.Context, e *fsm.Event) error {
	b.log.Info("rolling back to the previous firmware")
	b.engine.Swap(b.store.SwapSize())
	b.store.Commit()
	b.store.MarkNoNewFirmware()
	b.store.MarkAfterRollback()
	return nil
}

// actionInstall: swap the staged image in and arm the one-shot default
// rollback. The new image must Commit during its own run to survive the
// next boot.
func (b *Bootloader) actionInstall(ctx context.Context, e *fsm.Event) error {
	b.log.Info("swapping in staged firmware")
	b.engine.Swap(b.store.SwapSize())
	b.store.MarkHasNewFirmware()
	b.store.MarkNotAfterRollback()
	b.store.MarkShouldRollback()
	return nil
}

// actionCommit: nothing pending, certify the running image.
func (b *Bootloader) actionCommit(ctx context.Context, e *fsm.Event) error {
	b.log.Info("nothing to swap")
	b.store.Commit()
	b.store.MarkNoNewFirmware()
	return nil
}
