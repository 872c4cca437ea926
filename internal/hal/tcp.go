package hal

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

// TCPDevice adapts a host TCP listener to the core.NetDevice surface so the
// simulator can serve real browsers. One accepted connection at a time, a
// background reader feeding an in-memory buffer, and a fake DHCP client that
// leases instantly with whatever static configuration it was given.
type TCPDevice struct {
	Addr string // listen address, e.g. "127.0.0.1:8070"

	mu   sync.Mutex
	cfg  core.NetConfig
	ln   net.Listener
	conn net.Conn

	buf    []byte
	rdDone chan struct{}
	rdErr  error
}

var _ core.NetDevice = (*TCPDevice)(nil)

func (d *TCPDevice) SetHardwareAddr(mac net.HardwareAddr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.MAC = mac
}

func (d *TCPDevice) DHCPStart() {}

// DHCPPoll always reports a bound lease: the host network below us is
// already configured.
func (d *TCPDevice) DHCPPoll() core.LeaseState {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.DHCP = true
	if d.cfg.IP == nil {
		d.cfg.IP = net.IPv4(127, 0, 0, 1)
		d.cfg.Mask = net.CIDRMask(8, 32)
	}
	return core.LeaseBound
}

func (d *TCPDevice) DHCPStop() {}

func (d *TCPDevice) ApplyStatic(cfg core.NetConfig) {
	d.mu.Lock()
	defer d.mu.Unlock()
	mac := d.cfg.MAC
	d.cfg = cfg
	d.cfg.MAC = mac
}

func (d *TCPDevice) Current() core.NetConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

func (d *TCPDevice) Open(port uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ln != nil {
		return nil
	}
	addr := d.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", port)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	d.ln = ln
	return nil
}

// Listen blocks until the next connection arrives and starts the reader
// goroutine for it. Hardware sockets flip a register instead; for the
// simulator blocking here keeps the serve loop's poll budget honest.
func (d *TCPDevice) Listen() error {
	d.mu.Lock()
	ln := d.ln
	d.mu.Unlock()
	if ln == nil {
		return fmt.Errorf("tcp device: listen on closed socket")
	}
	conn, err := ln.Accept()
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.conn = conn
	d.buf = nil
	d.rdErr = nil
	d.rdDone = make(chan struct{})
	done := d.rdDone
	d.mu.Unlock()

	go func() {
		defer close(done)
		p := make([]byte, 4096)
		for {
			n, err := conn.Read(p)
			if n > 0 {
				d.mu.Lock()
				d.buf = append(d.buf, p[:n]...)
				d.mu.Unlock()
			}
			if err != nil {
				d.mu.Lock()
				d.rdErr = err
				d.mu.Unlock()
				return
			}
		}
	}()
	return nil
}

func (d *TCPDevice) Available() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buf)
}

func (d *TCPDevice) Recv(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.buf) == 0 {
		if d.rdErr != nil {
			return 0, d.rdErr
		}
		return 0, nil
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}

func (d *TCPDevice) Send(p []byte) error {
	d.mu.Lock()
	conn := d.conn
	d.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("tcp device: send without connection")
	}
	_, err := conn.Write(p)
	return err
}

func (d *TCPDevice) Disconnect() {
	d.mu.Lock()
	conn, done := d.conn, d.rdDone
	d.conn = nil
	d.mu.Unlock()
	if conn == nil {
		return
	}
	// Give the peer a moment to drain before the FIN, like the hardware
	// socket's linger behavior.
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	_ = conn.Close()
	if done != nil {
		<-done
	}
}

func (d *TCPDevice) Close() {
	d.Disconnect()
	d.mu.Lock()
	ln := d.ln
	d.ln = nil
	d.buf = nil
	d.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}
}
