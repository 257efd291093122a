// Package mqtt provides MQTT broker connectivity for panel.sh.
//
// It wraps the eclipse/paho.mqtt.golang library with connection management,
// automatic reconnection, and panel.sh topic conventions.
//
// # Purpose
//
// MQTT is the device's task bus and event channel:
//   - Background tasks (reboot, default asset provisioning) are published
//     to panelsh/task/+ and consumed by the jobs worker with QoS 1
//   - Playback control commands are published to panelsh/viewer/control
//   - The server's online/offline status lives on panelsh/system/status
//     (retained, with an LWT for crash detection)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{}
//	client.Subscribe(topics.AllTasks(), 1, handleTask)
//	client.Publish(topics.Task("reboot"), []byte(`{}`), 1, false)
//
// # Thread Safety
//
// All client methods are safe for concurrent use. Message handlers are
// invoked on separate goroutines and wrapped with panic recovery.
//
// # Delivery Semantics
//
// Task topics use QoS 1 (at-least-once). Handlers must be idempotent:
// a redelivered task message must not corrupt state.
package mqtt
