package sequence

import (
	"slices"
	"sort"
)

// Row is any table row carrying a knob set, such as an Element or a
// dependent vars.Variable.
type Row interface {
	Key() string
	KnobList() []string
}

// KnobRank is one knob with the rows it drives.
type KnobRank struct {
	Knob         string
	Multiplicity int
	Dependents   []string
}

// RankKnobs lists every knob referenced by rows, most used first. Ties are
// broken by knob name.
func RankKnobs[T Row](rows []T) []KnobRank {
	index := make(map[string]int)
	var out []KnobRank
	for _, row := range rows {
		for _, k := range row.KnobList() {
			i, ok := index[k]
			if !ok {
				i = len(out)
				index[k] = i
				out = append(out, KnobRank{Knob: k})
			}
			out[i].Multiplicity++
			out[i].Dependents = append(out[i].Dependents, row.Key())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Multiplicity != out[j].Multiplicity {
			return out[i].Multiplicity > out[j].Multiplicity
		}
		return out[i].Knob < out[j].Knob
	})
	return out
}

// FilterByKnob returns the rows driven by knob, in their original order.
func FilterByKnob[T Row](rows []T, knob string) []T {
	var out []T
	for _, row := range rows {
		if slices.Contains(row.KnobList(), knob) {
			out = append(out, row)
		}
	}
	return out
}
