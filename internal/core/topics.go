package core

import (
	"fmt"
	"strings"

	"github.com/dkeye/debateroom/internal/domain"
)

const (
	topicPrefix = "/topic/debate/"
	appPrefix   = "/app/debate/"
)

// TopicKind names the per-room broadcast streams.
type TopicKind int

const (
	TopicUnknown TopicKind = iota
	TopicChat
	TopicParticipants
	TopicTyping
)

func (k TopicKind) String() string {
	switch k {
	case TopicChat:
		return "chat"
	case TopicParticipants:
		return "participants"
	case TopicTyping:
		return "typing"
	default:
		return "unknown"
	}
}

func ChatTopic(room domain.RoomID) string { return topicPrefix + string(room) }
func ParticipantsTopic(room domain.RoomID) string {
	return fmt.Sprintf("%s%s/participants", topicPrefix, room)
}
func TypingTopic(room domain.RoomID) string { return fmt.Sprintf("%s%s/typing", topicPrefix, room) }

func SendDestination(room domain.RoomID) string   { return fmt.Sprintf("%s%s/send", appPrefix, room) }
func TypingDestination(room domain.RoomID) string { return fmt.Sprintf("%s%s/typing", appPrefix, room) }
func JoinDestination(room domain.RoomID) string   { return fmt.Sprintf("%s%s/join", appPrefix, room) }

// ParseTopic splits a broadcast destination into its room and kind.
func ParseTopic(destination string) (domain.RoomID, TopicKind) {
	rest, ok := strings.CutPrefix(destination, topicPrefix)
	if !ok || rest == "" {
		return "", TopicUnknown
	}
	room, suffix, found := strings.Cut(rest, "/")
	if room == "" {
		return "", TopicUnknown
	}
	if !found {
		return domain.RoomID(room), TopicChat
	}
	switch suffix {
	case "participants":
		return domain.RoomID(room), TopicParticipants
	case "typing":
		return domain.RoomID(room), TopicTyping
	}
	return "", TopicUnknown
}

// AppAction is what a client asks the relay to do in a room.
type AppAction int

const (
	ActionUnknown AppAction = iota
	ActionSend
	ActionTyping
	ActionJoin
)

// ParseAppDestination splits an application destination into room and action.
func ParseAppDestination(destination string) (domain.RoomID, AppAction) {
	rest, ok := strings.CutPrefix(destination, appPrefix)
	if !ok {
		return "", ActionUnknown
	}
	room, action, found := strings.Cut(rest, "/")
	if !found || room == "" {
		return "", ActionUnknown
	}
	switch action {
	case "send":
		return domain.RoomID(room), ActionSend
	case "typing":
		return domain.RoomID(room), ActionTyping
	case "join":
		return domain.RoomID(room), ActionJoin
	}
	return "", ActionUnknown
}
