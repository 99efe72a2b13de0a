package linemerge

import (
	"github.com/paulmach/orb"
)

type segment struct {
	Reversed bool
	Line     orb.LineString
}

// Reverse will reverse the line string of the segment.
func (s *segment) Reverse() {
	s.Reversed = !s.Reversed
	s.Line.Reverse()
}

// First returns the first point in the segment linestring.
func (s segment) First() orb.Point {
	return s.Line[0]
}

// Last returns the last point in the segment linestring.
func (s segment) Last() orb.Point {
	return s.Line[len(s.Line)-1]
}

// multiSegment is an ordered set of segments that form one continuous line.
type multiSegment []segment

func (ms multiSegment) First() orb.Point {
	return ms[0].Line[0]
}

func (ms multiSegment) Last() orb.Point {
	line := ms[len(ms)-1].Line
	return line[len(line)-1]
}

// LineString converts a multisegment into a single linestring.
func (ms multiSegment) LineString() orb.LineString {
	length := 0
	for _, s := range ms {
		length += len(s.Line)
	}

	line := make(orb.LineString, 0, length)
	for _, s := range ms {
		line = append(line, s.Line...)
	}

	return line
}

// endpoints indexes segments by their first and last points. Index lists are ascending and
// used entries are dropped lazily from their front.
type endpoints struct {
	starts map[orb.Point][]int
	ends   map[orb.Point][]int
	used   []bool
}

func newEndpoints(segments []segment) *endpoints {
	e := &endpoints{
		starts: make(map[orb.Point][]int, len(segments)),
		ends:   make(map[orb.Point][]int, len(segments)),
		used:   make([]bool, len(segments)),
	}
	for i, s := range segments {
		e.starts[s.First()] = append(e.starts[s.First()], i)
		e.ends[s.Last()] = append(e.ends[s.Last()], i)
	}
	return e
}

// lowest returns the smallest unused index stored under p, or -1.
func (e *endpoints) lowest(m map[orb.Point][]int, p orb.Point) int {
	list := m[p]
	for len(list) > 0 && e.used[list[0]] {
		list = list[1:]
	}
	if len(list) == 0 {
		delete(m, p)
		return -1
	}
	m[p] = list
	return list[0]
}

// next returns the lowest unused segment touching one of the open ends of current.
func (e *endpoints) next(first, last orb.Point, allowReverse bool) int {
	candidates := []int{e.lowest(e.starts, last), e.lowest(e.ends, first)}
	if allowReverse {
		candidates = append(candidates, e.lowest(e.ends, last), e.lowest(e.starts, first))
	}

	found := -1
	for _, i := range candidates {
		if i >= 0 && (found == -1 || i < found) {
			found = i
		}
	}
	return found
}

// join stitches segments sharing endpoints into continuous lines. Segments are only
// reversed when allowReverse is set. Neighbours are looked up by endpoint, and a line is
// extended with the lowest-index segment that fits.
func join(segments []segment, allowReverse bool) []multiSegment {
	lists := []multiSegment{}
	segments = compact(segments)
	idx := newEndpoints(segments)

	for start := range segments {
		if idx.used[start] {
			continue
		}
		idx.used[start] = true
		current := multiSegment{segments[start]}

		// a closed loop can't be extended any further
		for !current.First().Equal(current.Last()) {
			first := current.First()
			last := current.Last()

			i := idx.next(first, last, allowReverse)
			if i == -1 {
				break // dangling end, nothing connects
			}
			idx.used[i] = true

			segment := segments[i]
			switch {
			case last.Equal(segment.First()):
				// nice fit at the end of current
				segment.Line = segment.Line[1:]
				current = append(current, segment)
			case first.Equal(segment.Last()):
				// nice fit at the start of current
				segment.Line = segment.Line[:len(segment.Line)-1]
				current = append(multiSegment{segment}, current...)
			case last.Equal(segment.Last()):
				// reverse it and it'll fit at the end
				segment.Line = segment.Line.Clone()
				segment.Reverse()
				segment.Line = segment.Line[1:]
				current = append(current, segment)
			default:
				// reverse it and it'll fit at the start
				segment.Line = segment.Line.Clone()
				segment.Reverse()
				segment.Line = segment.Line[:len(segment.Line)-1]
				current = append(multiSegment{segment}, current...)
			}
		}

		lists = append(lists, current)
	}

	return lists
}

func compact(ms []segment) []segment {
	at := 0
	for _, s := range ms {
		if len(s.Line) <= 1 {
			continue
		}

		ms[at] = s
		at++
	}

	return ms[:at]
}

// Join stitches lines sharing endpoints into continuous lines. Closed results are rings.
func Join(lines []orb.LineString, allowReverse bool) []orb.LineString {
	segments := make([]segment, 0, len(lines))
	for _, ls := range lines {
		segments = append(segments, segment{Line: ls})
	}

	joined := join(segments, allowReverse)
	out := make([]orb.LineString, 0, len(joined))
	for _, ms := range joined {
		out = append(out, ms.LineString())
	}
	return out
}
