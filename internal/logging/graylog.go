package logging

import (
	"fmt"

	"github.com/Graylog2/go-gelf/gelf"
)

// DialGraylog opens a GELF UDP writer to addr (host:port).
func DialGraylog(addr string, facility string) (*gelf.Writer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("connect to graylog at %s: %w", addr, err)
	}
	w.Facility = facility
	return w, nil
}
