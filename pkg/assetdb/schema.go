package assetdb

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by project name so several
// shows can share one Redis server.
//
// Key pattern: burrow:{project}:{entity}:...
// Channel pattern: burrow:{project}:{event_type}_events

// rootParent is the parent segment used for top-level assets.
const rootParent = "root"

// DocumentKey returns the Redis key for a document hash.
// Pattern: burrow:{project}:doc:{id}
func DocumentKey(project, id string) string {
	return fmt.Sprintf("burrow:%s:doc:%s", project, id)
}

// ChildrenKey returns the Redis key for the list of child document IDs of one type,
// in publish order.
// Pattern: burrow:{project}:children:{parent}:{type}
func ChildrenKey(project, parent string, t DocumentType) string {
	return fmt.Sprintf("burrow:%s:children:%s:%s", project, parentSegment(parent), t)
}

// NamesKey returns the Redis key for the lexicographic name index of child documents.
// Members are "name\x00id" with score 0 so ZRANGEBYLEX orders them by name.
// Pattern: burrow:{project}:names:{parent}:{type}
func NamesKey(project, parent string, t DocumentType) string {
	return fmt.Sprintf("burrow:%s:names:%s:%s", project, parentSegment(parent), t)
}

// ByNameKey returns the Redis key for the name -> id hash of child documents.
// Pattern: burrow:{project}:byname:{parent}:{type}
func ByNameKey(project, parent string, t DocumentType) string {
	return fmt.Sprintf("burrow:%s:byname:%s:%s", project, parentSegment(parent), t)
}

// PublishEventsChannel returns the Pub/Sub channel name for publish events.
// Pattern: burrow:{project}:publish_events
func PublishEventsChannel(project string) string {
	return fmt.Sprintf("burrow:%s:publish_events", project)
}

func parentSegment(parent string) string {
	if parent == "" {
		return rootParent
	}
	return parent
}

// nameMember builds the NamesKey ZSET member for a document.
func nameMember(name, id string) string {
	return name + "\x00" + id
}
