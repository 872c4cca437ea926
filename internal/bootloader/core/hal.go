package core

import "net"

// The interfaces in this package are the boot core's outbound ports. Real
// targets implement them against hardware registers; internal/hal carries
// the reference implementations used by tests and the simulator.

// Flash is the sector-granular flash driver. Erase and Program must be
// called with sector-aligned addresses; the fixed sector size lives in
// Layout. Failures during a swap are logged and deliberately not surfaced
// (an accepted risk of the design).
type Flash interface {
	// Read copies len(p) bytes starting at addr into p.
	Read(addr uint32, p []byte) error

	// Erase erases [addr, addr+length). Both must be sector-aligned.
	Erase(addr, length uint32) error

	// Program writes p starting at addr. The region must have been erased
	// and len(p) must be a multiple of the alignment unit.
	Program(addr uint32, p []byte) error
}

// StatusStore is the externally durable persisted-flag store. Mutators are
// void: durability and write ordering are the store's own concern, and the
// boot path has no recovery action for a failed mark anyway.
type StatusStore interface {
	// ShouldRollback reports whether the default-rollback safety net is
	// still armed, i.e. the last installed image never self-certified.
	ShouldRollback() bool

	// HasFirmwareToSwap reports whether a verified image is staged in the
	// download slot.
	HasFirmwareToSwap() bool

	// IsAfterUpdate reports whether the previous boot installed new firmware.
	IsAfterUpdate() bool

	// IsAfterRollback reports whether the previous boot rolled back.
	IsAfterRollback() bool

	// SwapSize returns the configured swap size in bytes. Zero means
	// "swap the full capacity".
	SwapSize() uint32

	MarkHasNewFirmware()
	MarkNoNewFirmware()
	MarkAfterRollback()
	MarkNotAfterRollback()

	// MarkShouldRollback arms the one-shot default-rollback safety net.
	// The running image clears it by calling Commit.
	MarkShouldRollback()

	// Commit certifies the currently running image: clears ShouldRollback.
	Commit()

	// InitializeDownloadSlot prepares the download slot for a fresh upload,
	// erasing any staged content and invalidating the slot.
	InitializeDownloadSlot()

	// MarkSlotValid records a verified image of the given length in the
	// download slot and arms the swap for the next boot.
	MarkSlotValid(length uint32)

	MarkSlotInvalid()
}

// Target is the per-architecture hardware port: interrupt control,
// peripheral reset, the final vector jump and the watchdog.
type Target interface {
	// UniqueID returns the factory-unique device identifier.
	UniqueID() [8]byte

	// RecoveryRequested reports whether the operator asked for recovery
	// mode, typically via a held button sampled at power-on.
	RecoveryRequested() bool

	// SaveAndDisableInterrupts masks interrupts for a flash-critical
	// section and returns the previous mask state.
	SaveAndDisableInterrupts() uint32

	// RestoreInterrupts restores a mask state saved by
	// SaveAndDisableInterrupts.
	RestoreInterrupts(state uint32)

	// MaskInterrupts masks all interrupt sources at the core and the
	// peripheral interrupt controller. Unlike SaveAndDisableInterrupts it
	// is terminal: there is no matching restore.
	MaskInterrupts()

	// ResetPeripherals resets every peripheral subsystem except those the
	// clock tree and flash paths need to stay up.
	ResetPeripherals()

	// JumpToVector relocates the vector table to addr, loads the stack
	// pointer from its first entry and transfers control to its reset
	// vector. It never returns; an invalid addr is a silent lockup.
	JumpToVector(addr uint32)

	// WatchdogReset reboots the device immediately. It never returns.
	WatchdogReset()
}

// Verifier checks the digest of the first length bytes of the download
// slot. A non-nil error means the upload is rejected and must not be
// installed.
type Verifier interface {
	Verify(length uint32) error
}

// LeaseState is the DHCP client's answer to a single poll.
type LeaseState int

const (
	LeaseNone LeaseState = iota
	LeaseBound
)

// NetConfig is the effective interface configuration.
type NetConfig struct {
	MAC     net.HardwareAddr
	IP      net.IP
	Mask    net.IPMask
	Gateway net.IP
	DNS     net.IP
	DHCP    bool
}

// NetDevice is the network transport port, shaped after byte-oriented
// hardware TCP offload chips: one socket, explicit polling, no blocking
// reads. The recovery server is written strictly against this surface.
type NetDevice interface {
	SetHardwareAddr(mac net.HardwareAddr)

	DHCPStart()
	DHCPPoll() LeaseState
	DHCPStop()

	// ApplyStatic applies a static configuration after DHCP exhaustion.
	ApplyStatic(cfg NetConfig)

	// Current reads back the effective configuration.
	Current() NetConfig

	// Open opens the single TCP socket bound to port.
	Open(port uint16) error

	// Listen puts the open socket in listening state.
	Listen() error

	// Available returns the number of received bytes ready to Recv.
	Available() int

	// Recv copies up to len(p) ready bytes into p.
	Recv(p []byte) (int, error)

	// Send transmits p on the connected socket.
	Send(p []byte) error

	// Disconnect performs an orderly close of the current connection.
	Disconnect()

	// Close tears the socket down; a following Open starts fresh.
	Close()
}
