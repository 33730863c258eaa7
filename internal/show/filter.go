package show

import "strings"

// FilterEpisodes returns the episodes whose name or plain-text summary
// contains term, case-insensitively. An empty or blank term returns the
// input unchanged.
func FilterEpisodes(episodes []Episode, term string) []Episode {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return episodes
	}
	out := make([]Episode, 0, len(episodes))
	for _, e := range episodes {
		if strings.Contains(strings.ToLower(e.Name), term) ||
			strings.Contains(strings.ToLower(StripMarkup(e.Summary)), term) {
			out = append(out, e)
		}
	}
	return out
}

// MaxSeason reports the highest season number present, or 0 for no episodes.
func MaxSeason(episodes []Episode) int {
	max := 0
	for _, e := range episodes {
		if e.Season > max {
			max = e.Season
		}
	}
	return max
}
