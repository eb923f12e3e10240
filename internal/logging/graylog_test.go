package logging

import (
	"testing"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraylogHandler_SendsUnderServiceFacility(t *testing.T) {
	r, err := gelf.NewReader("127.0.0.1:0")
	if err != nil {
		t.Skipf("udp unavailable: %v", err)
	}

	h, closer, err := NewGraylogHandler(r.Addr(), "info")
	require.NoError(t, err)
	defer closer.Close()

	m := NewSlogManager()
	m.Setup(nil, "warn", nil, Sink{Name: "graylog", Handler: h})
	m.Logger().Info("racer finished", "position", 1)

	// the first datagram is Setup's own announcement
	boot, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, boot.Short, "Logging initialized")

	msg, err := r.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ServiceName, msg.Facility)
	assert.Contains(t, msg.Short, `"msg":"racer finished"`)
	assert.Contains(t, msg.Short, `"position":1`)
}
