package recommend

import "medley/models"

// seedSet partitions selected seeds by provider group. Movies and TV share
// one group since they are served by the same upstream.
type seedSet struct {
	screen []models.FavoriteItem
	games  []models.FavoriteItem
	books  []models.FavoriteItem
}

// selectSeeds caps how many favorites per group are used as seeds,
// preserving the order of the snapshot. Upstream similar calls are per-seed
// and rate-limited; fanning out over the whole favorites list would be
// unbounded.
func selectSeeds(favorites []models.FavoriteItem, screenMax, gameMax, bookMax int) seedSet {
	var set seedSet
	for _, f := range favorites {
		switch f.Type {
		case models.MediaTypeMovie, models.MediaTypeTV:
			if len(set.screen) < screenMax {
				set.screen = append(set.screen, f)
			}
		case models.MediaTypeGame:
			if len(set.games) < gameMax {
				set.games = append(set.games, f)
			}
		case models.MediaTypeBook:
			if len(set.books) < bookMax {
				set.books = append(set.books, f)
			}
		}
	}
	return set
}

// size returns the total number of selected seeds.
func (s seedSet) size() int {
	return len(s.screen) + len(s.games) + len(s.books)
}
