package swarm

import (
	"math"
	"sort"
)

// Aggregate combines all critiques per idea into ranking-ready rows, one per
// surviving idea. An idea with zero critiques is not an error — it aggregates
// to a 0.0 mean as a degraded signal.
//
// Ordering: ascending by (distinct fatal flags, archive votes), then
// descending by mean score. Ideas with fewer hard blockers outrank
// higher-scoring ideas a critic flagged as fundamentally broken; score is a
// secondary signal to categorical critic consensus.
func Aggregate(ideas []Idea, critiques []Critique) []AggregateRow {
	byIdea := make(map[string][]Critique)
	for _, c := range critiques {
		byIdea[c.IdeaID] = append(byIdea[c.IdeaID], c)
	}

	rows := make([]AggregateRow, 0, len(ideas))
	for _, idea := range ideas {
		cs := byIdea[idea.ID]

		avg := 0.0
		archiveVotes := 0
		flagSet := make(map[string]struct{})
		if len(cs) > 0 {
			sum := 0.0
			for _, c := range cs {
				sum += c.Score
				if c.Verdict == VerdictArchive {
					archiveVotes++
				}
				for _, f := range c.FatalFlags {
					flagSet[f] = struct{}{}
				}
			}
			avg = sum / float64(len(cs))
		}

		flags := make([]string, 0, len(flagSet))
		for f := range flagSet {
			flags = append(flags, f)
		}
		sort.Strings(flags)

		rows = append(rows, AggregateRow{
			Idea:         idea,
			AvgScore:     math.Round(avg*100) / 100,
			CriticCount:  len(cs),
			FatalFlags:   flags,
			ArchiveVotes: archiveVotes,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if len(rows[i].FatalFlags) != len(rows[j].FatalFlags) {
			return len(rows[i].FatalFlags) < len(rows[j].FatalFlags)
		}
		if rows[i].ArchiveVotes != rows[j].ArchiveVotes {
			return rows[i].ArchiveVotes < rows[j].ArchiveVotes
		}
		return rows[i].AvgScore > rows[j].AvgScore
	})

	return rows
}
