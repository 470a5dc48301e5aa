package retrieval

import (
	"retrievalagent/places"
)

// finalize выбирает финалистов по каждому типу жадно:
// релевантность по убыванию, затем меньше уже выбранных из того же кластера,
// затем рейтинг по убыванию, затем place_id.
// Кандидаты с нежелательными интересами исключаются.
func (r *run) finalize() []places.Candidate {
	out := []places.Candidate{}
	for _, kind := range places.Kinds() {
		out = append(out, r.selectKind(kind, r.targets[kind])...)
	}
	return out
}

type ranked struct {
	candidate places.Candidate
	relevant  bool
	used      bool
}

func (r *run) selectKind(kind places.Kind, required int) []places.Candidate {
	if required <= 0 {
		return nil
	}

	var pool []*ranked
	for _, c := range r.store.ByKind(kind) {
		if !r.evaluator.Eligible(c) {
			continue
		}
		pool = append(pool, &ranked{candidate: c, relevant: r.evaluator.Relevant(c)})
	}

	selected := make([]places.Candidate, 0, required)
	perCluster := make(map[string]int)
	for len(selected) < required {
		var best *ranked
		for _, p := range pool {
			if p.used {
				continue
			}
			if best == nil || better(p, best, perCluster) {
				best = p
			}
		}
		if best == nil {
			break
		}
		best.used = true
		perCluster[best.candidate.ClusterID]++
		selected = append(selected, best.candidate)
	}
	return selected
}

// better сравнивает кандидатов по правилам отбора финалистов
func better(a, b *ranked, perCluster map[string]int) bool {
	if a.relevant != b.relevant {
		return a.relevant
	}
	ca, cb := perCluster[a.candidate.ClusterID], perCluster[b.candidate.ClusterID]
	if ca != cb {
		return ca < cb
	}
	if a.candidate.Rating != b.candidate.Rating {
		return a.candidate.Rating > b.candidate.Rating
	}
	return a.candidate.PlaceID < b.candidate.PlaceID
}
