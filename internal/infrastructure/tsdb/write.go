package tsdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDistanceReading records one distance-sensor reading.
//
// The write is non-blocking; data is batched and sent asynchronously.
// A nil or disconnected client drops the point silently - SQLite holds
// the authoritative reading log.
//
// Parameters:
//   - value: Distance in centimeters as reported by the controller
func (c *Client) WriteDistanceReading(value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"distance",
		map[string]string{
			"sensor": "hcsr05",
		},
		map[string]interface{}{
			"centimeters": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteActuatorState records an LED or pushbutton state change as 0/1.
//
// Useful for overlaying actuator activity on sensor dashboards.
//
// Parameters:
//   - entityType: "led" or "pushbutton"
//   - id: 1-based entity index
//   - state: Current boolean state
func (c *Client) WriteActuatorState(entityType string, id int, state bool) {
	if !c.IsConnected() {
		return
	}

	value := 0.0
	if state {
		value = 1.0
	}

	point := write.NewPoint(
		"actuator_state",
		map[string]string{
			"entity_type": entityType,
			"entity_id":   strconv.Itoa(id),
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
