// Package recovery implements the fallback firmware path: a minimal
// single-connection HTTP-over-TCP responder that serves an upload page and
// streams a raw firmware upload straight into the download slot. It speaks
// just enough HTTP for a browser on the same LAN and nothing more; there is
// no authentication anywhere.
package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/pkg/metrics"
)

// rxBufSize matches the transport chip's receive window.
const rxBufSize = 2048

// InstallFunc is invoked after a verified upload has been marked valid.
// Depending on deployment it either swaps-and-boots immediately or reboots
// into the regular install path; either way it ends the recovery session
// and on real targets it never returns.
type InstallFunc func(length uint32)

// Config wires one recovery server.
type Config struct {
	Port   uint16
	Layout core.Layout

	Dev      core.NetDevice
	Flash    core.Flash
	Store    core.StatusStore
	Target   core.Target
	Verifier core.Verifier

	DHCP     core.RetryPolicy
	ConnWait core.WaitPolicy
	IdleWait core.WaitPolicy

	Install InstallFunc
	Log     logr.Logger
}

// Server owns the single listening socket. Connections are strictly
// serialized; there is no concurrency anywhere on this path.
type Server struct {
	cfg Config
	log logr.Logger
}

func NewServer(cfg Config) *Server {
	return &Server{cfg: cfg, log: cfg.Log.WithName("recovery")}
}

// Run brings the network up and serves connections until the context is
// canceled, the transport fails, or an upload is installed. On hardware an
// installed upload never returns here; a nil return means exactly that a
// simulated install or reboot completed.
func (s *Server) Run(ctx context.Context) error {
	BringUp(s.cfg.Dev, s.cfg.Target.UniqueID(), s.cfg.DHCP, s.log)
	s.log.Info("waiting for connections", "port", s.cfg.Port)

	buf := make([]byte, rxBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		done, err := s.serveOne(ctx, buf)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// serveOne handles one listen/accept/classify/respond cycle. done reports
// that recovery is over (install or reboot happened).
func (s *Server) serveOne(ctx context.Context, buf []byte) (done bool, err error) {
	if err := s.cfg.Dev.Open(s.cfg.Port); err != nil {
		return false, fmt.Errorf("open socket: %w", err)
	}
	defer s.cfg.Dev.Close()

	if err := s.cfg.Dev.Listen(); err != nil {
		return false, fmt.Errorf("listen: %w", err)
	}

	n := s.awaitBytes(buf, s.cfg.ConnWait)
	if n == 0 {
		metrics.ConnectionsTotal.WithLabelValues("idle").Inc()
		return false, nil
	}

	hint := Classify(buf[:n])
	switch {
	case hint.Method == MethodGet && hint.Reboot:
		metrics.ConnectionsTotal.WithLabelValues("reboot").Inc()
		s.log.Info("reboot requested")
		s.cfg.Target.WatchdogReset()
		return true, nil

	case hint.Method == MethodGet:
		metrics.ConnectionsTotal.WithLabelValues("get").Inc()
		if err := s.cfg.Dev.Send(recoveryPage); err != nil {
			s.log.Error(err, "failed to send recovery page")
		} else {
			s.log.Info("served recovery page")
		}
		// Active close: browsers wait on us otherwise, there being no
		// keep-alive and no Connection header handling.
		s.cfg.Dev.Disconnect()
		return false, nil

	case hint.Method == MethodPost:
		metrics.ConnectionsTotal.WithLabelValues("post").Inc()
		return s.handleUpload(buf, n, hint), nil

	default:
		metrics.ConnectionsTotal.WithLabelValues("unknown").Inc()
		return false, nil
	}
}

// awaitBytes waits, bounded, for initial request bytes and receives the
// first chunk.
func (s *Server) awaitBytes(buf []byte, wait core.WaitPolicy) int {
	for poll := 0; poll < wait.Polls; poll++ {
		if s.cfg.Dev.Available() > 0 {
			n, err := s.cfg.Dev.Recv(buf)
			if err != nil {
				s.log.Error(err, "recv failed")
				return 0
			}
			return n
		}
		time.Sleep(wait.Interval)
	}
	return 0
}

// handleUpload ingests a raw firmware stream into the download slot. The
// upload has no length framing: it is over when the peer stays silent past
// the idle budget. The trailing sub-alignment-unit bytes of an upload are
// dropped; images are produced as alignment-unit multiples.
func (s *Server) handleUpload(buf []byte, n int, hint RequestHint) (installed bool) {
	s.log.Info("upload started", "initial", n-hint.BodyOffset)

	// Fresh slot, fresh session. Slot state and flash content go together.
	s.cfg.Store.InitializeDownloadSlot()
	if err := s.cfg.Flash.Erase(s.cfg.Layout.DownloadStart, s.cfg.Layout.SwapCapacity); err != nil {
		s.log.Error(err, "failed to erase download slot")
	}

	session := NewUploadSession(s.cfg.Layout.AlignUnit, s.cfg.Layout.SwapCapacity)
	flush := func(offset uint32, block []byte) error {
		return s.cfg.Flash.Program(s.cfg.Layout.DownloadStart+offset, block)
	}

	if err := session.Ingest(buf[hint.BodyOffset:n], flush); err != nil {
		s.log.Error(err, "flash write failed during upload")
	}

	for {
		got := false
		for poll := 0; poll < s.cfg.IdleWait.Polls; poll++ {
			if s.cfg.Dev.Available() > 0 {
				got = true
				break
			}
			time.Sleep(s.cfg.IdleWait.Interval)
		}
		if !got {
			break
		}

		n, err := s.cfg.Dev.Recv(buf)
		if err != nil || n == 0 {
			break
		}
		if err := session.Ingest(buf[:n], flush); err != nil {
			s.log.Error(err, "flash write failed during upload")
		}
	}

	written := session.Written()
	s.log.Info("upload complete", "bytes", written, "dropped", session.Pending())

	if over := session.Overflow(); over > 0 {
		// The slot is full and more kept arriving; nothing past the
		// capacity ever reached flash. Reject without consulting the
		// digest, the stream cannot fit this slot.
		s.log.Error(nil, "upload exceeds download slot", "capacity", s.cfg.Layout.SwapCapacity, "excess", over)
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		return false
	}

	if err := s.cfg.Verifier.Verify(written); err != nil {
		// The one explicitly handled failure: reject, keep serving. The
		// slot stays initialized-but-invalid; nothing was installed.
		s.log.Error(err, "firmware rejected")
		metrics.UploadsTotal.WithLabelValues("digest_mismatch").Inc()
		return false
	}

	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	metrics.UploadBytesTotal.Add(float64(written))

	s.cfg.Store.MarkSlotValid(written)
	s.cfg.Install(written)
	return true
}
