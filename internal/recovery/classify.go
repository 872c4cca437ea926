package recovery

import "bytes"

// Method is the request classification. There is deliberately no full HTTP
// parse: requests are classified by locating recognized markers anywhere in
// the received bytes, which is lenient far beyond RFC 7230 and exactly
// lenient enough for browsers and curl.
type Method int

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
)

// The recognized markers. Matching is an exact substring search over this
// enumeration: the all-upper and all-lower casings and nothing else.
var (
	getMarkers    = [][]byte{[]byte("GET"), []byte("get")}
	postMarkers   = [][]byte{[]byte("POST"), []byte("post")}
	rebootMarkers = [][]byte{[]byte("REBOOT"), []byte("reboot")}

	headerEnd = []byte("\r\n\r\n")
)

// RequestHint is the result of classifying one received chunk. It lives
// only for the connection that produced it.
type RequestHint struct {
	Method Method

	// Reboot is set when a GET carries the reboot marker.
	Reboot bool

	// HeaderEnd reports whether the blank-line terminator was seen.
	HeaderEnd bool

	// BodyOffset is the index of the first payload byte. Without a
	// terminator it is len(req): nothing of the chunk is payload.
	BodyOffset int
}

// Classify inspects the initial bytes of a connection. GET wins over POST
// when both markers appear, matching the serve loop's branch order.
func Classify(req []byte) RequestHint {
	hint := RequestHint{BodyOffset: len(req)}

	if i := bytes.Index(req, headerEnd); i >= 0 {
		hint.HeaderEnd = true
		hint.BodyOffset = i + len(headerEnd)
	}

	switch {
	case containsAny(req, getMarkers):
		hint.Method = MethodGet
		hint.Reboot = containsAny(req, rebootMarkers)
	case containsAny(req, postMarkers):
		hint.Method = MethodPost
	}

	return hint
}

func containsAny(req []byte, markers [][]byte) bool {
	for _, m := range markers {
		if bytes.Contains(req, m) {
			return true
		}
	}
	return false
}
