package recommend

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"medley/models"
)

// favoritesHashLength is the truncated hex length of the favorites digest.
const favoritesHashLength = 16

// favoritesHash digests the favorites set identity. Keys are sorted before
// hashing so two sets with the same members hash identically regardless of
// insertion order.
func favoritesHash(favorites []models.FavoriteItem) string {
	keys := make([]string, 0, len(favorites))
	for _, f := range favorites {
		keys = append(keys, f.Key())
	}
	sort.Strings(keys)
	sum := sha256.Sum256([]byte(strings.Join(keys, "|")))
	return hex.EncodeToString(sum[:])[:favoritesHashLength]
}

// mergeDedup unions candidate lists keeping the first-seen item per type:id
// key. Later duplicates are discarded whole, never merged field by field.
func mergeDedup(lists [][]models.MediaItem) []models.MediaItem {
	seen := make(map[string]struct{})
	var out []models.MediaItem
	for _, list := range lists {
		for _, item := range list {
			key := item.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// diversify buckets items by type, caps each bucket at perType, and
// interleaves the buckets round-robin in the fixed catalog order so no type
// dominates the head of the list. Exhausted buckets are skipped and the
// remainder continues round-robin among the rest.
func diversify(items []models.MediaItem, perType int) []models.MediaItem {
	buckets := make(map[models.MediaType][]models.MediaItem, len(models.AllMediaTypes))
	for _, item := range items {
		if len(buckets[item.Type]) >= perType {
			continue
		}
		buckets[item.Type] = append(buckets[item.Type], item)
	}

	out := make([]models.MediaItem, 0, len(items))
	indexes := make(map[models.MediaType]int, len(models.AllMediaTypes))
	for {
		emitted := false
		for _, t := range models.AllMediaTypes {
			i := indexes[t]
			if i >= len(buckets[t]) {
				continue
			}
			out = append(out, buckets[t][i])
			indexes[t] = i + 1
			emitted = true
		}
		if !emitted {
			break
		}
	}
	return out
}
