package keys

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const favoritesRoot = "favorites"

// sanitizeKey keeps owner ids usable as a single path segment.
func sanitizeKey(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "/", "-")
}

// OwnerPrefix is the listing prefix for every favorite owned by ownerID.
func OwnerPrefix(ownerID string) string {
	return fmt.Sprintf("%s/%s/", favoritesRoot, sanitizeKey(ownerID))
}

// Favorite returns the canonical object key for one favorite document.
func Favorite(ownerID string, id uuid.UUID) string {
	return OwnerPrefix(ownerID) + id.String() + ".json"
}

// ParseFavorite splits a key produced by Favorite back into its owner and id.
func ParseFavorite(key string) (ownerID string, id uuid.UUID, err error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != favoritesRoot || parts[1] == "" {
		return "", uuid.Nil, fmt.Errorf("not a favorite key: %q", key)
	}
	name, ok := strings.CutSuffix(parts[2], ".json")
	if !ok {
		return "", uuid.Nil, fmt.Errorf("not a favorite key: %q", key)
	}
	id, err = uuid.Parse(name)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("favorite key %q: %w", key, err)
	}
	return parts[1], id, nil
}
