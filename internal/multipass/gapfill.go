package multipass

import "sort"

const (
	// Candidates below this confidence never fill a gap.
	gapFillerMinConfidence = 0.3
	// At most this many fillers per gap to keep dense overlap regions from
	// flooding back in.
	gapFillerLimit = 2
)

// FillGaps recovers speech the merge discarded. For every silence of at
// least minGap seconds between consecutive merged segments, the best
// rejected candidates that fit entirely inside the gap are re-admitted.
func FillGaps(merged, all []Segment, minGap float64) []Segment {
	if len(merged) < 2 || minGap <= 0 {
		return append([]Segment(nil), merged...)
	}

	selected := make(map[segmentKey]struct{}, len(merged))
	for _, seg := range merged {
		selected[keyOf(seg)] = struct{}{}
	}

	final := append([]Segment(nil), merged...)
	for i := 0; i < len(merged)-1; i++ {
		gapStart := merged[i].End
		gapEnd := merged[i+1].Start
		if gapEnd-gapStart < minGap {
			continue
		}

		var fillers []Segment
		for _, candidate := range all {
			if candidate.Start < gapStart || candidate.End > gapEnd {
				continue
			}
			if _, used := selected[keyOf(candidate)]; used {
				continue
			}
			fillers = append(fillers, candidate)
		}
		sort.Slice(fillers, func(a, b int) bool { return fillers[a].Confidence > fillers[b].Confidence })
		admitted := 0
		for _, filler := range fillers {
			if admitted >= gapFillerLimit {
				break
			}
			if filler.Confidence <= gapFillerMinConfidence {
				continue
			}
			final = append(final, filler)
			selected[keyOf(filler)] = struct{}{}
			admitted++
		}
	}

	sort.Slice(final, func(a, b int) bool { return final[a].Start < final[b].Start })
	return final
}

// segmentKey mirrors Segment without the non-comparable word slice so
// segments can be tracked in a set.
type segmentKey struct {
	Text       string
	Start      float64
	End        float64
	Confidence float64
	Pass       string
}

// keyOf strips the non-comparable word slice so segments can be tracked in
// a set.
func keyOf(seg Segment) segmentKey {
	return segmentKey{
		Text:       seg.Text,
		Start:      seg.Start,
		End:        seg.End,
		Confidence: seg.Confidence,
		Pass:       seg.Pass,
	}
}
