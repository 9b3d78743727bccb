package auth

import "strings"

// VerifyAPIKey checks a presented api-key against a project's stored
// api_key_hash using the strict rule: the presented key is structured
// prefix_<project_id>_<org>_<stored_hash||suffix>_<timestamp>, and the
// hash field (the second-to-last underscore-delimited field, so that
// project ids such as proj_real_001 may themselves contain underscores)
// must begin with storedHash exactly (a prefix match, never a substring
// match anywhere else in the key). There is no fallback path.
func VerifyAPIKey(presented, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	parts := strings.Split(presented, "_")
	if len(parts) < 5 {
		return false
	}
	hashField := parts[len(parts)-2]
	return strings.HasPrefix(hashField, storedHash)
}
