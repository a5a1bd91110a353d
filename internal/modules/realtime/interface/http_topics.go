package transport

import (
	"strings"

	domain "mesaYaReviews/internal/modules/realtime/domain"
)

// TopicSet is the closed set of topics clients may subscribe to.
type TopicSet struct {
	topics []string
	index  map[string]struct{}
}

// NewTopicSet expands the review entities with allowedActions.
func NewTopicSet(allowedActions []string) *TopicSet {
	if len(allowedActions) == 0 {
		allowedActions = []string{domain.ActionCreated, domain.ActionUpdated, domain.ActionDeleted}
	}
	topics := domain.EntityTopics(domain.Entities(), allowedActions)
	index := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		index[topic] = struct{}{}
	}
	return &TopicSet{topics: topics, index: index}
}

func (s *TopicSet) Allows(topic string) bool {
	_, ok := s.index[strings.ToLower(strings.TrimSpace(topic))]
	return ok
}

func (s *TopicSet) All() []string {
	return append([]string(nil), s.topics...)
}

// Resolve turns the "topics" query value into subscriptions. Entries may be full topics
// ("reviews.created"), bare entities ("reviews", "review") or "*" for everything. Unknown
// entries are returned separately.
func (s *TopicSet) Resolve(raw string) (topics, rejected []string) {
	seen := make(map[string]struct{})
	add := func(topic string) {
		if _, dup := seen[topic]; dup {
			return
		}
		seen[topic] = struct{}{}
		topics = append(topics, topic)
	}
	for _, part := range strings.Split(raw, ",") {
		entry := strings.ToLower(strings.TrimSpace(part))
		switch {
		case entry == "":
			continue
		case entry == "*":
			for _, topic := range s.topics {
				add(topic)
			}
		case s.Allows(entry):
			add(entry)
		default:
			entity := normalizeEntity(entry)
			matched := false
			for _, topic := range s.topics {
				if strings.HasPrefix(topic, entity+".") {
					add(topic)
					matched = true
				}
			}
			if !matched {
				rejected = append(rejected, entry)
			}
		}
	}
	return topics, rejected
}

func normalizeEntity(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	switch trimmed {
	case "restaurant", "restaurants":
		return domain.RestaurantEntity
	case "review", "reviews":
		return domain.ReviewEntity
	case "photo", "photos", "image", "images":
		return domain.PhotoEntity
	default:
		return trimmed
	}
}
