package p2p

import (
	"encoding/json"
	"sync/atomic"
)

const (
	metricAccepted = iota
	metricConnected
	metricConnectFailed
	metricOpenFailed
	metricDataReceived
	metricReadClosed
	metricReadError
	metricDisconnected
	metricEndpointExhausted
)

type MetricPool struct {
	enabled bool

	Accepted          uint32 `json:"accepted"`
	Connected         uint32 `json:"connected"`
	ConnectFailed     uint32 `json:"connect-failed"`
	OpenFailed        uint32 `json:"open-failed"`
	DataReceived      uint32 `json:"data-received"`
	ReadClosed        uint32 `json:"read-closed"`
	ReadError         uint32 `json:"read-error"`
	Disconnected      uint32 `json:"disconnected"`
	EndpointExhausted uint32 `json:"endpoint-exhausted"`
	BytesReceived     uint64 `json:"bytes-received"`
}

func (mp *MetricPool) handle(kind int) {
	if !mp.enabled {
		return
	}

	switch kind {
	case metricAccepted:
		atomic.AddUint32(&mp.Accepted, 1)
	case metricConnected:
		atomic.AddUint32(&mp.Connected, 1)
	case metricConnectFailed:
		atomic.AddUint32(&mp.ConnectFailed, 1)
	case metricOpenFailed:
		atomic.AddUint32(&mp.OpenFailed, 1)
	case metricDataReceived:
		atomic.AddUint32(&mp.DataReceived, 1)
	case metricReadClosed:
		atomic.AddUint32(&mp.ReadClosed, 1)
	case metricReadError:
		atomic.AddUint32(&mp.ReadError, 1)
	case metricDisconnected:
		atomic.AddUint32(&mp.Disconnected, 1)
	case metricEndpointExhausted:
		atomic.AddUint32(&mp.EndpointExhausted, 1)
	}
}

func (mp *MetricPool) bytes(n int) {
	if !mp.enabled {
		return
	}
	atomic.AddUint64(&mp.BytesReceived, uint64(n))
}

func (mp *MetricPool) Enabled() bool {
	return mp.enabled
}

func (mp *MetricPool) String() string {
	snapshot := MetricPool{
		Accepted:          atomic.LoadUint32(&mp.Accepted),
		Connected:         atomic.LoadUint32(&mp.Connected),
		ConnectFailed:     atomic.LoadUint32(&mp.ConnectFailed),
		OpenFailed:        atomic.LoadUint32(&mp.OpenFailed),
		DataReceived:      atomic.LoadUint32(&mp.DataReceived),
		ReadClosed:        atomic.LoadUint32(&mp.ReadClosed),
		ReadError:         atomic.LoadUint32(&mp.ReadError),
		Disconnected:      atomic.LoadUint32(&mp.Disconnected),
		EndpointExhausted: atomic.LoadUint32(&mp.EndpointExhausted),
		BytesReceived:     atomic.LoadUint64(&mp.BytesReceived),
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		panic(err)
	}
	return string(b)
}
