package download

import (
	"io"
	"strings"

	"github.com/vxdev/vx/internal/reporter"
)

// countingReader wraps a response body and reports download progress to
// rep as bytes are read, throttled implicitly by io.Copy's buffer size.
type countingReader struct {
	r             io.Reader
	tool, version string
	total         int64
	read          int64
	rep           reporter.Reporter
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.read += int64(n)
		total := c.total
		if total <= 0 {
			total = -1
		}
		c.rep.Report(reporter.Event{
			Kind: reporter.KindDownloadProgress, Tool: c.tool, Version: c.version,
			Downloaded: c.read, Total: total,
		})
	}
	return n, err
}

func splitLines(s string) []string {
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}

func splitFields(s string) []string {
	return strings.Fields(s)
}
