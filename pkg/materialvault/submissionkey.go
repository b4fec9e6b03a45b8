package materialvault

import (
	"context"
	"strconv"
)

// parseNumericKey reports whether the key is a purely numeric identifier.
// Anything else, including malformed UUID-like strings, is treated as a
// UUID lookup key by the caller; a bad UUID then simply misses instead of
// crashing on a parse.
func parseNumericKey(key string) (int64, bool) {
	if key == "" {
		return 0, false
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	id, err := strconv.ParseInt(key, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// lookupSubmission resolves a submission by normalized key: all-digit keys
// are id lookups, everything else is a UUID lookup.
func lookupSubmission(ctx context.Context, repo Repository, key string) (*MaterialSubmission, error) {
	if id, ok := parseNumericKey(key); ok {
		return repo.GetSubmission(ctx, id)
	}
	return repo.GetSubmissionByUUID(ctx, key)
}

// lookupMaterial resolves a material by the same id-or-UUID convention.
func lookupMaterial(ctx context.Context, repo Repository, key string) (*Material, error) {
	if id, ok := parseNumericKey(key); ok {
		return repo.GetMaterial(ctx, id)
	}
	return repo.GetMaterialByUUID(ctx, key)
}
