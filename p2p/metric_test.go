package p2p

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMetricPool(t *testing.T) {
	require := require.New(t)

	mp := &MetricPool{}
	mp.handle(metricConnected)
	mp.bytes(10)
	require.False(mp.Enabled())
	require.Equal(uint32(0), mp.Connected)

	mp = &MetricPool{enabled: true}
	mp.handle(metricAccepted)
	mp.handle(metricConnected)
	mp.handle(metricDataReceived)
	mp.handle(metricDataReceived)
	mp.handle(metricEndpointExhausted)
	mp.bytes(1500)

	var snapshot map[string]uint64
	require.Nil(json.Unmarshal([]byte(mp.String()), &snapshot))
	require.Len(snapshot, 10)
	require.Equal(uint64(1), snapshot["accepted"])
	require.Equal(uint64(1), snapshot["connected"])
	require.Equal(uint64(2), snapshot["data-received"])
	require.Equal(uint64(1), snapshot["endpoint-exhausted"])
	require.Equal(uint64(0), snapshot["read-error"])
	require.Equal(uint64(1500), snapshot["bytes-received"])
}
