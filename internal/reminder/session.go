package reminder

import "strings"

// SessionKey derives the storage key for a reminder. With uniqueSession
// enabled, each user inside a shared chat gets an isolated bucket by
// suffixing the creator id to the session id.
func SessionKey(sessionID, creatorID string, uniqueSession bool) string {
	if !uniqueSession || creatorID == "" {
		return sessionID
	}
	if strings.HasSuffix(sessionID, "_"+creatorID) {
		return sessionID
	}
	return sessionID + "_" + creatorID
}

// SplitSessionKey undoes SessionKey: it returns the delivery session id and
// the creator suffix (empty when the key was never isolated).
func SplitSessionKey(key string) (sessionID, creatorID string) {
	i := strings.LastIndex(key, "_")
	if i <= 0 || i == len(key)-1 {
		return key, ""
	}
	return key[:i], key[i+1:]
}
