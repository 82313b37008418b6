package classify

import (
	"image"
	"sort"
)

// candidate is a box in model input coordinates.
type candidate struct {
	class      int
	confidence float32
	x1, y1     float32
	x2, y2     float32
}

// decodeYOLO reads a [1, 4+classes, anchors] output tensor laid out row by
// row: cx, cy, w, h, then one score per class, each row holding one value
// per anchor. Anchors whose best class score is below threshold are dropped.
func decodeYOLO(raw []float32, classes, anchors int, threshold float32) []candidate {
	if classes <= 0 || anchors <= 0 || len(raw) < (4+classes)*anchors {
		return nil
	}

	at := func(row, anchor int) float32 { return raw[row*anchors+anchor] }

	var out []candidate
	for a := 0; a < anchors; a++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := at(4+c, a); s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}
		cx, cy, w, h := at(0, a), at(1, a), at(2, a), at(3, a)
		out = append(out, candidate{
			class:      best,
			confidence: bestScore,
			x1:         cx - w/2,
			y1:         cy - h/2,
			x2:         cx + w/2,
			y2:         cy + h/2,
		})
	}
	return out
}

// nonMaxSuppression keeps the highest scoring boxes per class, dropping any
// box whose IoU with an already kept box of the same class exceeds iou.
func nonMaxSuppression(cands []candidate, iou float32, limit int) []candidate {
	sorted := make([]candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].confidence > sorted[j].confidence
	})

	var kept []candidate
	for _, c := range sorted {
		if limit > 0 && len(kept) >= limit {
			break
		}
		overlaps := false
		for _, k := range kept {
			if k.class == c.class && intersectionOverUnion(k, c) > iou {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, c)
		}
	}
	return kept
}

func intersectionOverUnion(a, b candidate) float32 {
	ix1, iy1 := max(a.x1, b.x1), max(a.y1, b.y1)
	ix2, iy2 := min(a.x2, b.x2), min(a.y2, b.y2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// anchorCount is the number of predictions a stride 8/16/32 detection head
// emits for a square input of the given size.
func anchorCount(size int) int {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		side := size / stride
		n += side * side
	}
	return n
}

// toSource maps a candidate from letterboxed input space back onto the
// original image and clips it to bounds.
func (c candidate) toSource(lb letterbox, bounds image.Rectangle) image.Rectangle {
	conv := func(v, pad float32) int {
		return int((v - pad) / lb.scale)
	}
	r := image.Rect(
		conv(c.x1, lb.padX), conv(c.y1, lb.padY),
		conv(c.x2, lb.padX), conv(c.y2, lb.padY),
	)
	return r.Intersect(bounds)
}
