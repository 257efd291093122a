package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDisplayPower records one display power sample from the poll cycle.
// It satisfies the jobs worker's Telemetry interface.
//
// The sample is buffered and sent with the next batch; when the sink is
// disconnected it is dropped silently, matching the sink's best-effort
// role.
func (c *Client) WriteDisplayPower(deviceID string, powered bool) {
	if !c.IsConnected() {
		return
	}

	state := 0
	if powered {
		state = 1
	}

	point := write.NewPoint(
		"display_power",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"powered": state,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
