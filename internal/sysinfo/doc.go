// Package sysinfo collects host diagnostics for the device info endpoint:
// CPU details and device classification from procfs, uptime, memory, load
// average, disk usage, and network addresses.
//
// Reader takes an injectable proc root so tests run against fixture files
// instead of the live host.
package sysinfo
