package hal

import (
	"errors"
	"net"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

// ErrScriptDone is returned by Open once every scripted connection has been
// served, letting a test's serve loop terminate instead of spinning.
var ErrScriptDone = errors.New("hal: loopback script exhausted")

// Conn is one scripted connection: the chunks the peer will deliver, in
// order. An empty Conn models a peer that connects and never sends.
type Conn struct {
	Chunks [][]byte
}

// Loopback is a scriptable NetDevice. Each Open/Listen cycle consumes the
// next scripted connection; Recv drains its chunks one at a time, so a
// multi-chunk script exercises the bounded receive polling the same way a
// slow peer would.
type Loopback struct {
	Leases  []core.LeaseState // successive DHCPPoll answers; empty means never leased
	Conns   []Conn
	Sent    [][]byte // bytes sent per connection
	Dropped int      // Disconnect + Close calls

	cfg     core.NetConfig
	poll    int
	conn    int
	pending []byte
	chunk   int
	sent    []byte
}

var _ core.NetDevice = (*Loopback)(nil)

func (d *Loopback) SetHardwareAddr(mac net.HardwareAddr) { d.cfg.MAC = mac }

func (d *Loopback) DHCPStart() { d.poll = 0 }

func (d *Loopback) DHCPPoll() core.LeaseState {
	if d.poll < len(d.Leases) {
		s := d.Leases[d.poll]
		d.poll++
		if s == core.LeaseBound {
			d.cfg.DHCP = true
			d.cfg.IP = net.IPv4(10, 0, 0, 42).To4()
			d.cfg.Mask = net.CIDRMask(24, 32)
			d.cfg.Gateway = net.IPv4(10, 0, 0, 1).To4()
		}
		return s
	}
	return core.LeaseNone
}

func (d *Loopback) DHCPStop() {}

func (d *Loopback) ApplyStatic(cfg core.NetConfig) {
	mac := d.cfg.MAC
	d.cfg = cfg
	d.cfg.MAC = mac
	d.cfg.DHCP = false
}

func (d *Loopback) Current() core.NetConfig { return d.cfg }

func (d *Loopback) Open(port uint16) error {
	if d.conn >= len(d.Conns) {
		return ErrScriptDone
	}
	return nil
}

func (d *Loopback) Listen() error {
	if d.conn < len(d.Conns) {
		d.chunk = 0
		d.loadChunk()
	}
	return nil
}

func (d *Loopback) loadChunk() {
	if d.conn < len(d.Conns) && d.chunk < len(d.Conns[d.conn].Chunks) {
		d.pending = append([]byte(nil), d.Conns[d.conn].Chunks[d.chunk]...)
		d.chunk++
	}
}

func (d *Loopback) Available() int {
	if len(d.pending) == 0 {
		d.loadChunk()
	}
	return len(d.pending)
}

func (d *Loopback) Recv(p []byte) (int, error) {
	if len(d.pending) == 0 {
		d.loadChunk()
	}
	n := copy(p, d.pending)
	d.pending = d.pending[n:]
	return n, nil
}

func (d *Loopback) Send(p []byte) error {
	d.sent = append(d.sent, p...)
	return nil
}

func (d *Loopback) Disconnect() { d.Dropped++ }

func (d *Loopback) Close() {
	d.Sent = append(d.Sent, d.sent)
	d.sent = nil
	d.pending = nil
	d.conn++
	d.Dropped++
}

// Exhausted reports whether every scripted connection has been served.
func (d *Loopback) Exhausted() bool { return d.conn >= len(d.Conns) }
