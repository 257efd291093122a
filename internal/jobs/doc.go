// Package jobs runs the device's background work: the MQTT task consumer
// (reboot, shutdown, default asset provisioning) and the periodic loops
// (display power polling, temporary file cleanup).
//
// Tasks are consumed with QoS 1, so delivery is at-least-once and every
// handler is written to be idempotent.
package jobs
