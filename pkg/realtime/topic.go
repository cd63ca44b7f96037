package realtime

// WildcardRecordID subscribes to every record of a collection.
const WildcardRecordID = "*"

// ResolveTopic returns the topic for a collection and optional record id.
// An empty or wildcard record id yields the collection itself.
func ResolveTopic(collection, recordID string) string {
	if recordID == "" || recordID == WildcardRecordID {
		return collection
	}
	return collection + "/" + recordID
}
