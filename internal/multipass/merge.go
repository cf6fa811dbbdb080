package multipass

import "sort"

// Merge arbitrates between the outputs of all passes. Overlapping segments
// form a conflict group and the priority ladder picks one winner per group;
// segments with no rival pass through untouched.
func Merge(all []Segment) []Segment {
	if len(all) <= 1 {
		return append([]Segment(nil), all...)
	}
	sorted := append([]Segment(nil), all...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var merged []Segment
	group := []Segment{sorted[0]}
	groupEnd := sorted[0].End
	for _, seg := range sorted[1:] {
		if seg.Start < groupEnd {
			group = append(group, seg)
			if seg.End > groupEnd {
				groupEnd = seg.End
			}
			continue
		}
		merged = append(merged, chooseBest(group))
		group = []Segment{seg}
		groupEnd = seg.End
	}
	merged = append(merged, chooseBest(group))

	sort.Slice(merged, func(i, j int) bool { return merged[i].Start < merged[j].Start })
	return merged
}

// chooseBest implements the specialization ladder:
//  1. conservative above 0.8
//  2. noise robust above 0.7 on segments longer than 1s
//  3. aggressive above 0.6
//  4. micro speech above 0.5 on segments shorter than 1s
//  5. ultra aggressive above 0.4
//  6. otherwise the highest confidence regardless of pass
func chooseBest(group []Segment) Segment {
	if len(group) == 1 {
		return group[0]
	}

	if best, ok := bestOfPass(group, PassConservative); ok && best.Confidence > 0.8 {
		return best
	}
	if best, ok := bestOfPass(group, PassNoiseRobust); ok && best.Confidence > 0.7 && best.Duration() > 1.0 {
		return best
	}
	if best, ok := bestOfPass(group, PassAggressive); ok && best.Confidence > 0.6 {
		return best
	}
	if best, ok := bestOfPass(group, PassMicroSpeech); ok && best.Confidence > 0.5 && best.Duration() < 1.0 {
		return best
	}
	if best, ok := bestOfPass(group, PassUltraAggressive); ok && best.Confidence > 0.4 {
		return best
	}

	best := group[0]
	for _, seg := range group[1:] {
		if seg.Confidence > best.Confidence {
			best = seg
		}
	}
	return best
}

func bestOfPass(group []Segment, pass string) (Segment, bool) {
	var best Segment
	found := false
	for _, seg := range group {
		if seg.Pass != pass {
			continue
		}
		if !found || seg.Confidence > best.Confidence {
			best = seg
			found = true
		}
	}
	return best, found
}
