package pubsub

import (
	"fmt"
	"strings"
)

// Channel naming conventions for the chat relay.
const (
	// ChannelChatRelay carries every chat message of every stream. It is
	// deliberately not partitioned per stream.
	ChannelChatRelay = "chat:relay:%s"

	DefaultNamespace = "default"
)

// Event types carried on the relay channel.
const (
	EventChatMessage = "chat_message"
)

// ChatRelayChannel returns the relay channel for a deployment namespace.
func ChatRelayChannel(namespace string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return fmt.Sprintf(ChannelChatRelay, namespace)
}

// channelToSubject converts a colon separated channel to a dotted subject
// ("chat:relay:default" -> "chat.relay.default").
func channelToSubject(channel string) string {
	return strings.ReplaceAll(channel, ":", ".")
}

// channelToTopic converts a colon separated channel to a Kafka topic name
// ("chat:relay:default" -> "chat-relay-default").
func channelToTopic(channel string) (string, error) {
	parts := strings.Split(channel, ":")
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("invalid channel format: %q", channel)
		}
	}
	return strings.Join(parts, "-"), nil
}
