// Package collector acquires per-VM metric snapshots from the monitoring
// backend. Two sources are supported behind one interface: the Zabbix
// JSON-RPC API and direct node_exporter scrapes in Prometheus text
// exposition format.
package collector
