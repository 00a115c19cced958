package recdb

// IndexStats is a point-in-time snapshot of one attribute's index, grounded
// on the teacher's per-table TableStats (monitoring.go): instead of bucket
// byte sizes from a B+tree, it reports the shape of the in-memory B-tree.
type IndexStats struct {
	Attr     string
	Keys     int // distinct values currently indexed
	RidCount int // total (value, rid) pairs
}

// IndexStats returns a snapshot for every attribute that currently has a
// live index, sorted by attribute name for deterministic output.
func (s *Store) IndexStats() []IndexStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]IndexStats, 0, len(s.indices))
	for attr, ix := range s.indices {
		out = append(out, IndexStats{Attr: attr, Keys: ix.tree.Len(), RidCount: ix.n})
	}
	sortIndexStats(out)
	return out
}

func sortIndexStats(stats []IndexStats) {
	for i := 1; i < len(stats); i++ {
		for j := i; j > 0 && stats[j].Attr < stats[j-1].Attr; j-- {
			stats[j], stats[j-1] = stats[j-1], stats[j]
		}
	}
}
