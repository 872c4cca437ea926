package recovery

import "fmt"

// The embedded recovery page: a short explanation and a file-upload form
// that POSTs the raw image bytes. Served byte-for-byte with a matching
// Content-Length; no other document exists on this server.
const pageBody = `<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8"><title>Firmware Recovery</title></head><body>` +
	`<h1>SYSTEM RECOVERY</h1>` +
	`Booted in recovery mode. A new firmware image can be uploaded here.<br><br>` +
	`The upload takes a couple of minutes; the device installs and reboots on success, after which this page stops responding.<br><br>` +
	`<input type="file" id="input" onchange="upload()"><br><br>` +
	`<script>` +
	`function upload() {` +
	`const input = document.getElementById('input');` +
	`if (input.files.length > 0) {` +
	`const rdr = new FileReader();` +
	`rdr.onload = e => fetch('upload', {` +
	`method: 'POST',` +
	`headers: {'Content-Type': 'application/octet-stream'},` +
	`body: e.target.result` +
	`}).then(res => res.text()).catch(err => console.error('Error:', err));` +
	`rdr.readAsArrayBuffer(input.files[0]);` +
	`}` +
	`}` +
	`</script><br><br>` +
	`<button onclick="location.href='reboot'">REBOOT</button>` +
	`</body></html>`

// recoveryPage is the complete wire response. The length indicator is
// computed from the body so the two can never drift apart.
var recoveryPage = []byte(fmt.Sprintf(
	"HTTP/1.1 200 OK\r\nContent-Type: text/html\r\nContent-Length: %d\r\n\r\n%s",
	len(pageBody), pageBody))
