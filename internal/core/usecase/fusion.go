package usecase

import (
	"fmt"
	"sort"

	"github.com/avoronin/corpusqa/internal/core/domain"
)

type fusedPassage struct {
	passage  domain.Passage
	score    float64
	bestRank int
}

// fusePassagesRRF merges ranked lists with Reciprocal Rank Fusion: a
// document's fused score is the sum of 1/(rankConstant+rank) over the lists
// it appears in, rank counted from 1. Each list is capped at window
// candidates before fusing. Equal fused scores break deterministically:
// better best single-list rank first, then ascending filename and chunk id.
func fusePassagesRRF(lists [][]domain.Passage, rankConstant, window int) []domain.Passage {
	if rankConstant <= 0 {
		rankConstant = 20
	}
	if window <= 0 {
		window = 100
	}

	acc := make(map[string]*fusedPassage, 2*window)
	for _, list := range lists {
		if len(list) > window {
			list = list[:window]
		}
		for i, p := range list {
			rank := i + 1
			key := passageKey(p)
			cand, ok := acc[key]
			if !ok {
				cand = &fusedPassage{passage: p, bestRank: rank}
				acc[key] = cand
			}
			cand.score += 1.0 / float64(rankConstant+rank)
			if rank < cand.bestRank {
				cand.bestRank = rank
			}
			if cand.passage.Text == "" && p.Text != "" {
				cand.passage = p
			}
		}
	}

	fused := make([]*fusedPassage, 0, len(acc))
	for _, c := range acc {
		fused = append(fused, c)
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		if fused[i].bestRank != fused[j].bestRank {
			return fused[i].bestRank < fused[j].bestRank
		}
		if fused[i].passage.Metadata.Filename != fused[j].passage.Metadata.Filename {
			return fused[i].passage.Metadata.Filename < fused[j].passage.Metadata.Filename
		}
		return fused[i].passage.Metadata.ChunkID < fused[j].passage.Metadata.ChunkID
	})

	out := make([]domain.Passage, 0, len(fused))
	for _, c := range fused {
		p := c.passage
		p.Score = c.score
		out = append(out, p)
	}
	return out
}

func passageKey(p domain.Passage) string {
	if p.Metadata.Filename != "" || p.Metadata.ChunkID > 0 {
		return fmt.Sprintf("%s#%d", p.Metadata.Filename, p.Metadata.ChunkID)
	}
	return p.Text
}

func trimPassages(passages []domain.Passage, k int) []domain.Passage {
	if k <= 0 || len(passages) <= k {
		return passages
	}
	return passages[:k]
}
