package recovery

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		req  string
		want RequestHint
	}{
		{
			name: "browser get",
			req:  "GET / HTTP/1.1\r\nHost: 192.168.0.100\r\n\r\n",
			want: RequestHint{Method: MethodGet, HeaderEnd: true, BodyOffset: 39},
		},
		{
			name: "lowercase get",
			req:  "get / http/1.1\r\n\r\n",
			want: RequestHint{Method: MethodGet, HeaderEnd: true, BodyOffset: 18},
		},
		{
			name: "mixed case not recognized",
			req:  "Get / HTTP/1.1\r\n\r\n",
			want: RequestHint{HeaderEnd: true, BodyOffset: 18},
		},
		{
			name: "reboot request",
			req:  "GET /reboot HTTP/1.1\r\n\r\n",
			want: RequestHint{Method: MethodGet, Reboot: true, HeaderEnd: true, BodyOffset: 24},
		},
		{
			name: "post with body in first chunk",
			req:  "POST /upload HTTP/1.1\r\nContent-Type: application/octet-stream\r\n\r\nAB",
			want: RequestHint{Method: MethodPost, HeaderEnd: true, BodyOffset: 65},
		},
		{
			name: "no header terminator yet",
			req:  "POST /upload HTTP/1.1\r\nContent-Le",
			want: RequestHint{Method: MethodPost, BodyOffset: 33},
		},
		{
			// Substring matching is deliberate: a GET marker anywhere in
			// the bytes beats a POST marker, in serve-loop branch order.
			name: "get wins over post",
			req:  "POST /GET-upload HTTP/1.1\r\n\r\n",
			want: RequestHint{Method: MethodGet, HeaderEnd: true, BodyOffset: 29},
		},
		{
			name: "garbage",
			req:  "\x00\x01\x02 nonsense",
			want: RequestHint{BodyOffset: 12},
		},
		{
			name: "empty",
			req:  "",
			want: RequestHint{BodyOffset: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify([]byte(tt.req))
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.req, got, tt.want)
			}
		})
	}
}
