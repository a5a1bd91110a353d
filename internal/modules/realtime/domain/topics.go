package domain

import "strings"

const (
	SystemEntity     = "system"
	RestaurantEntity = "restaurants"
	ReviewEntity     = "reviews"
	PhotoEntity      = "photos"

	TopicSystemConnected    = SystemEntity + ".connected"
	TopicSystemPong         = SystemEntity + ".pong"
	TopicSystemError        = SystemEntity + ".error"
	TopicSystemSubscribed   = SystemEntity + ".subscribed"
	TopicSystemUnsubscribed = SystemEntity + ".unsubscribed"

	ActionConnected    = "connected"
	ActionPong         = "pong"
	ActionError        = "error"
	ActionSubscribed   = "subscribed"
	ActionUnsubscribed = "unsubscribed"
	ActionCreated      = "created"
	ActionUpdated      = "updated"
	ActionDeleted      = "deleted"
)

// MetadataRestaurantID tags review events with their parent restaurant.
const MetadataRestaurantID = "restaurantId"

// Entities lists the entities that publish change events.
func Entities() []string {
	return []string{RestaurantEntity, ReviewEntity, PhotoEntity}
}

// CreatedTopic returns the canonical created topic for the given entity.
func CreatedTopic(entity string) string {
	return buildEntityTopic(entity, ActionCreated)
}

// UpdatedTopic returns the canonical updated topic for the given entity.
func UpdatedTopic(entity string) string {
	return buildEntityTopic(entity, ActionUpdated)
}

// DeletedTopic returns the canonical deleted topic for the given entity.
func DeletedTopic(entity string) string {
	return buildEntityTopic(entity, ActionDeleted)
}

// CustomTopic returns the canonical topic for the given entity and action.
func CustomTopic(entity, action string) string {
	return buildEntityTopic(entity, action)
}

// SplitTopic is the inverse of CustomTopic. The action is the last dot-separated segment.
func SplitTopic(topic string) (entity, action string, ok bool) {
	topic = strings.TrimSpace(topic)
	idx := strings.LastIndex(topic, ".")
	if idx <= 0 || idx == len(topic)-1 {
		return "", "", false
	}
	return topic[:idx], topic[idx+1:], true
}

// EntityTopics expands entities and actions into every entity.action combination.
func EntityTopics(entities, actions []string) []string {
	seen := make(map[string]struct{})
	topics := make([]string, 0, len(entities)*len(actions))
	for _, entity := range entities {
		for _, action := range actions {
			topic := buildEntityTopic(strings.ToLower(entity), strings.ToLower(action))
			if topic == "" {
				continue
			}
			if _, dup := seen[topic]; dup {
				continue
			}
			seen[topic] = struct{}{}
			topics = append(topics, topic)
		}
	}
	return topics
}

func buildEntityTopic(entity, action string) string {
	cleanEntity := strings.TrimSpace(entity)
	cleanAction := strings.TrimSpace(action)
	if cleanEntity == "" || cleanAction == "" {
		return ""
	}
	return cleanEntity + "." + cleanAction
}
