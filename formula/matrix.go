package formula

import (
	"sort"
)

// Matrix enumerates the configuration space of a recipe: Require holds
// platform settings, Options holds recipe option values.
type Matrix struct {
	Require map[string][]string
	Options map[string][]string
}

// Point is a single configuration of a Matrix.
type Point struct {
	Require map[string]string
	Options map[string]string
}

// String renders the point the way Combinations does.
func (p Point) String() string {
	req := joinValues(p.Require, "-")
	opt := joinValues(p.Options, "-")
	switch {
	case req == "":
		return opt
	case opt == "":
		return req
	}
	return req + "|" + opt
}

func joinValues(kvs map[string]string, sep string) string {
	keys := sortedKeys(kvs)
	s := ""
	for i, k := range keys {
		if i > 0 {
			s += sep
		}
		s += kvs[k]
	}
	return s
}

func sortedKeys[V any](kvs map[string]V) []string {
	keys := make([]string, 0, len(kvs))
	for k := range kvs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cartesian returns the cartesian product of kvs with keys taken in
// alphabetical order, the first key varying slowest.
func cartesian(kvs map[string][]string) []map[string]string {
	if len(kvs) == 0 {
		return nil
	}
	keys := sortedKeys(kvs)

	result := []map[string]string{{}}
	for _, k := range keys {
		values := kvs[k]
		next := make([]map[string]string, 0, len(result)*len(values))
		for _, prev := range result {
			for _, v := range values {
				m := make(map[string]string, len(prev)+1)
				for pk, pv := range prev {
					m[pk] = pv
				}
				m[k] = v
				next = append(next, m)
			}
		}
		result = next
	}
	return result
}

// Points returns every configuration of the matrix, in the same order as
// Combinations.
func (m *Matrix) Points() []Point {
	reqs := cartesian(m.Require)
	opts := cartesian(m.Options)

	switch {
	case len(reqs) == 0 && len(opts) == 0:
		return nil
	case len(reqs) == 0:
		reqs = []map[string]string{nil}
	case len(opts) == 0:
		opts = []map[string]string{nil}
	}

	points := make([]Point, 0, len(reqs)*len(opts))
	for _, r := range reqs {
		for _, o := range opts {
			points = append(points, Point{Require: r, Options: o})
		}
	}
	return points
}

// Combinations returns all cartesian product combinations of the matrix.
// Keys are sorted alphabetically, and combinations are built layer by layer.
// Require fields are joined with "-", then combined with options using "|".
func (m *Matrix) Combinations() []string {
	points := m.Points()
	if points == nil {
		return nil
	}
	result := make([]string, len(points))
	for i, p := range points {
		result[i] = p.String()
	}
	return result
}

// CombinationCount returns the total number of cartesian product combinations.
func (m *Matrix) CombinationCount() int {
	countPart := func(kvs map[string][]string) int {
		if len(kvs) == 0 {
			return 0
		}
		count := 1
		for _, v := range kvs {
			count *= len(v)
		}
		return count
	}

	requireCount := countPart(m.Require)
	optionsCount := countPart(m.Options)

	if requireCount == 0 {
		return optionsCount
	}
	if optionsCount == 0 {
		return requireCount
	}
	return requireCount * optionsCount
}
