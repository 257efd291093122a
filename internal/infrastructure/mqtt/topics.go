package mqtt

import "fmt"

// Topic prefixes for the panel.sh broker namespace.
//
// The task topics form the background job queue: the API publishes task
// messages and the jobs worker consumes them with QoS 1.
const (
	// TopicPrefix is the base for all panel.sh topics.
	TopicPrefix = "panelsh"

	// TopicPrefixTask is the base for background task topics.
	TopicPrefixTask = "panelsh/task"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "panelsh/system"

	// TopicPrefixViewer is the base for playback engine topics.
	TopicPrefixViewer = "panelsh/viewer"
)

// Topics provides builders for panel.sh MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	taskTopic := topics.Task("reboot")
//	// Returns: "panelsh/task/reboot"
type Topics struct{}

// =============================================================================
// Task Topics
// =============================================================================

// Task returns the topic for a named background task.
//
// Example: panelsh/task/add_default_assets
func (Topics) Task(name string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixTask, name)
}

// AllTasks returns a pattern matching all background task topics.
//
// Pattern: panelsh/task/+
func (Topics) AllTasks() string {
	return fmt.Sprintf("%s/+", TopicPrefixTask)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the system status topic.
//
// Example: panelsh/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemCommand returns the topic for host-level commands.
// The host agent (or balena supervisor bridge) subscribes here.
//
// Example: panelsh/system/command/reboot
func (Topics) SystemCommand(command string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefixSystem, command)
}

// AllSystemCommands returns a pattern matching all host command topics.
//
// Pattern: panelsh/system/command/+
func (Topics) AllSystemCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefixSystem)
}

// =============================================================================
// Viewer Topics
// =============================================================================

// ViewerControl returns the topic for playback control commands.
// The playback engine subscribes here for next/previous/asset commands.
//
// Example: panelsh/viewer/control
func (Topics) ViewerControl() string {
	return fmt.Sprintf("%s/control", TopicPrefixViewer)
}

// ViewerEvent returns the topic for events published to the playback engine.
//
// Example: panelsh/viewer/event/assets_changed
func (Topics) ViewerEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixViewer, eventType)
}

// AllViewerEvents returns a pattern matching all playback engine events.
//
// Pattern: panelsh/viewer/event/+
func (Topics) AllViewerEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixViewer)
}

// =============================================================================
// Wildcard Patterns
// =============================================================================

// AllTopics returns a pattern matching all panel.sh topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: panelsh/#
func (Topics) AllTopics() string {
	return "panelsh/#"
}
