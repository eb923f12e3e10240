package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogHandler returns a JSON handler writing GELF messages over UDP to
// addr. The returned closer releases the connection.
func NewGraylogHandler(addr, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, nil, fmt.Errorf("creating gelf writer for %s: %w", addr, err)
	}
	w.Facility = ServiceName
	return slog.NewJSONHandler(w, handlerOptions(parseLevel(level))), w, nil
}
