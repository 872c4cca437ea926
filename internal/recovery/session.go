package recovery

// UploadSession accumulates one connection's raw firmware stream into
// alignment-unit blocks. It is owned by the connection-handling loop and
// discarded with the connection; nothing here survives across uploads.
type UploadSession struct {
	buf      []byte
	capacity uint32
	fill     uint32
	written  uint32
	overflow uint32
}

// flushFunc commits one exactly-full alignment block at the given slot
// offset.
type flushFunc func(offset uint32, block []byte) error

// NewUploadSession sizes a session for one download slot. capacity bounds
// the total bytes flushed; it must be an alignUnit multiple.
func NewUploadSession(alignUnit, capacity uint32) *UploadSession {
	return &UploadSession{buf: make([]byte, alignUnit), capacity: capacity}
}

// Ingest feeds received bytes into the alignment buffer and flushes every
// exactly-full block. A trailing partial block stays in the buffer and is
// never flushed: images are expected to be alignment-unit multiples, so
// sub-unit trailers are dropped. Bytes past the slot capacity are never
// flushed either; they are counted so the caller can reject the upload
// once the stream ends.
//
// A flush failure is remembered and returned but does not stop ingestion;
// the digest check after the upload is what decides acceptance.
func (s *UploadSession) Ingest(data []byte, flush flushFunc) error {
	var firstErr error

	for len(data) > 0 {
		if s.written == s.capacity {
			s.overflow += uint32(len(data))
			break
		}

		n := copy(s.buf[s.fill:], data)
		s.fill += uint32(n)
		data = data[n:]

		if s.fill == uint32(len(s.buf)) {
			if err := flush(s.written, s.buf); err != nil && firstErr == nil {
				firstErr = err
			}
			s.written += s.fill
			s.fill = 0
		}
	}

	return firstErr
}

// Written returns the bytes committed to flash so far.
func (s *UploadSession) Written() uint32 { return s.written }

// Pending returns the trailing bytes that will be dropped unless more data
// completes the block.
func (s *UploadSession) Pending() uint32 { return s.fill }

// Overflow returns the bytes received past the slot capacity. Any overflow
// means the stream cannot be a valid image for this slot.
func (s *UploadSession) Overflow() uint32 { return s.overflow }
