package texpack

import (
	"image"
	"math"
)

// skyline tracks the top edge of the packed region of one page as a list of
// horizontal segments ordered by x. Rectangles are placed bottom-left first
// (lowest resting y, then lowest x) in image coordinates where y grows down.
type skyline struct {
	side    int
	padding int
	nodes   []skyNode
}

type skyNode struct {
	x, y, w int
}

func newSkyline(side, padding int) *skyline {
	return &skyline{
		side:    side,
		padding: padding,
		nodes:   []skyNode{{x: 0, y: 0, w: side}},
	}
}

// fit returns the y at which a rect spanning reserveW columns starting at
// node i would rest, or -1 if it does not fit on the page.
func (s *skyline) fit(i, w, reserveW, h int) int {
	x := s.nodes[i].x
	if x+w > s.side {
		return -1
	}
	y := 0
	remaining := reserveW
	for j := i; remaining > 0; j++ {
		if j >= len(s.nodes) {
			return -1
		}
		if s.nodes[j].y > y {
			y = s.nodes[j].y
		}
		if y+h > s.side {
			return -1
		}
		remaining -= s.nodes[j].w
	}
	return y
}

// insert places a w×h rectangle and returns its bounds. The padding gutter to
// the right and below is reserved but clipped at the page edge.
func (s *skyline) insert(w, h int) (image.Rectangle, bool) {
	if w <= 0 || h <= 0 || w > s.side || h > s.side {
		return image.Rectangle{}, false
	}

	bestI, bestX, bestY := -1, math.MaxInt, math.MaxInt
	for i := range s.nodes {
		x := s.nodes[i].x
		reserveW := min(w+s.padding, s.side-x)
		y := s.fit(i, w, reserveW, h)
		if y < 0 {
			continue
		}
		if y < bestY || (y == bestY && x < bestX) {
			bestI, bestX, bestY = i, x, y
		}
	}
	if bestI < 0 {
		return image.Rectangle{}, false
	}

	reserveW := min(w+s.padding, s.side-bestX)
	reserveH := min(h+s.padding, s.side-bestY)
	s.addLevel(bestI, skyNode{x: bestX, y: bestY + reserveH, w: reserveW})

	return image.Rect(bestX, bestY, bestX+w, bestY+h), true
}

func (s *skyline) addLevel(i int, n skyNode) {
	s.nodes = append(s.nodes, skyNode{})
	copy(s.nodes[i+1:], s.nodes[i:])
	s.nodes[i] = n

	// trim the segments the new one now covers
	end := n.x + n.w
	for j := i + 1; j < len(s.nodes); {
		if s.nodes[j].x >= end {
			break
		}
		shrink := end - s.nodes[j].x
		s.nodes[j].x += shrink
		s.nodes[j].w -= shrink
		if s.nodes[j].w > 0 {
			break
		}
		s.nodes = append(s.nodes[:j], s.nodes[j+1:]...)
	}

	// merge neighbours at the same height
	for j := 0; j+1 < len(s.nodes); {
		if s.nodes[j].y == s.nodes[j+1].y {
			s.nodes[j].w += s.nodes[j+1].w
			s.nodes = append(s.nodes[:j+1], s.nodes[j+2:]...)
			continue
		}
		j++
	}
}
