// Package tsdb writes distance-sensor telemetry to InfluxDB.
//
// The controller reports sensor readings continuously; SQLite keeps the
// authoritative local log, while this package ships the same readings to
// a time-series database for dashboards and long-range queries. Writes
// are non-blocking and batched by the client library, so a slow or
// unreachable InfluxDB never stalls the synchronization loop.
//
// The integration is optional: when disabled in config, Connect returns
// ErrDisabled and callers run without telemetry.
package tsdb
