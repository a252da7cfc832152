package extract

import "strings"

// Partition is one householding bucket: rank 1 is the primary output, ranks
// 2..MaxDuplicateRank are the overflow files.
type Partition struct {
	Rank int
	Rows []Row
}

// Household deduplicates rows sharing a phone number. The first occurrence
// of each phone stays in the primary partition; the 2nd through 4th go to
// their rank's overflow; any occurrence past the highest rank is appended to
// the highest rank file so the partitions together still carry every row.
// Rows without a phone value stay primary. Input order is preserved within
// every partition.
func Household(rows []Row, phoneCol string) ([]Partition, *HouseholdStats) {
	parts := make([]Partition, MaxDuplicateRank)
	for i := range parts {
		parts[i].Rank = i + 1
	}

	stats := &HouseholdStats{
		TotalRecords: len(rows),
		RankCounts:   make(map[int]int),
	}

	seen := make(map[string]int)
	for _, row := range rows {
		phone := strings.TrimSpace(row[phoneCol])
		if phone == "" {
			parts[0].Rows = append(parts[0].Rows, row)
			continue
		}

		seen[phone]++
		rank := seen[phone]
		if rank > MaxDuplicateRank {
			rank = MaxDuplicateRank
		}
		parts[rank-1].Rows = append(parts[rank-1].Rows, row)
		if rank > 1 {
			stats.DuplicatesRouted++
			stats.RankCounts[rank]++
		}
	}
	stats.UniquePhones = len(seen)

	// drop empty overflow partitions so no zero-row files are produced
	out := parts[:1]
	for _, p := range parts[1:] {
		if len(p.Rows) > 0 {
			out = append(out, p)
		}
	}
	return out, stats
}
