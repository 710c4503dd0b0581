package mqtt

import "strings"

// TopicRoot is the prefix shared by every IR bridge topic.
//
// Layout: graylogic/ir/{device_id}/{kind}[/{action}]
const TopicRoot = "graylogic/ir"

// Topic kinds below the device segment.
const (
	kindCommand  = "command"
	kindStatus   = "status"
	kindCommands = "commands"
	kindHealth   = "health"
)

// Topics builds the topics of one IR device.
//
//	topics := mqtt.NewTopics("ir-001")
//	topics.Command("send")   // graylogic/ir/ir-001/command/send
//	topics.Status()          // graylogic/ir/ir-001/status
type Topics struct {
	DeviceID string
}

// NewTopics returns the topic builder for deviceID.
func NewTopics(deviceID string) Topics {
	return Topics{DeviceID: deviceID}
}

// Base returns graylogic/ir/{device_id}.
func (t Topics) Base() string {
	return TopicRoot + "/" + t.DeviceID
}

// Command returns the request topic for one action.
//
// Example: graylogic/ir/ir-001/command/learn
func (t Topics) Command(action string) string {
	return t.Base() + "/" + kindCommand + "/" + action
}

// CommandWildcard matches every action topic of this device.
func (t Topics) CommandWildcard() string {
	return t.Command("+")
}

// Status carries one event per handled request or finished capture.
func (t Topics) Status() string {
	return t.Base() + "/" + kindStatus
}

// Commands carries the command document in reply to a bus list request.
func (t Topics) Commands() string {
	return t.Base() + "/" + kindCommands
}

// Health carries the retained liveness message and the last will.
func (t Topics) Health() string {
	return t.Base() + "/" + kindHealth
}

// ActionFromTopic extracts {action} from a command topic of this device.
// It reports false for any other topic.
func (t Topics) ActionFromTopic(topic string) (string, bool) {
	prefix := t.Base() + "/" + kindCommand + "/"
	action, ok := strings.CutPrefix(topic, prefix)
	if !ok || action == "" || strings.Contains(action, "/") {
		return "", false
	}
	return action, true
}
