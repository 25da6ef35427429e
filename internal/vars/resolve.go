package vars

import (
	"slices"
	"sort"
)

// Resolve computes the transitive closure of the parameter sets of the
// dependent variables. dependent maps each dependent name to its direct
// parameters. The result maps each dependent name to the sorted names it
// ultimately rests on, none of which is dependent.
//
// Every pass rewrites each set as the union of its direct parameters, with
// dependent ones replaced by their current set. Acyclic graphs converge in
// at most depth+1 passes; the cap is len(dependent)+2.
func Resolve(dependent map[string][]string) (map[string][]string, error) {
	names := make([]string, 0, len(dependent))
	cur := make(map[string][]string, len(dependent))
	for name, ps := range dependent {
		names = append(names, name)
		cur[name] = dedupe(ps)
	}
	sort.Strings(names)

	limit := len(dependent) + 2
	for pass := 1; pass <= limit; pass++ {
		next := make(map[string][]string, len(cur))
		changed := false
		for _, name := range names {
			set := make(map[string]struct{})
			for _, p := range dependent[name] {
				if sub, ok := cur[p]; ok {
					for _, s := range sub {
						set[s] = struct{}{}
					}
					continue
				}
				set[p] = struct{}{}
			}
			next[name] = sortedKeys(set)
			if !slices.Equal(next[name], cur[name]) {
				changed = true
			}
		}
		cur = next
		if !changed {
			return cur, checkSelfReference(cur, pass)
		}
	}
	return nil, &DependencyCycleError{Names: unsettled(dependent, cur), Passes: limit}
}

// checkSelfReference rejects converged sets still holding dependent names,
// which only happens when a name is its own ancestor.
func checkSelfReference(closure map[string][]string, passes int) error {
	var cyclic []string
	for name, set := range closure {
		for _, s := range set {
			if _, ok := closure[s]; ok {
				cyclic = append(cyclic, name)
				break
			}
		}
	}
	if len(cyclic) == 0 {
		return nil
	}
	sort.Strings(cyclic)
	return &DependencyCycleError{Names: cyclic, Passes: passes}
}

// unsettled lists the names whose set still contains dependent names.
func unsettled(dependent map[string][]string, cur map[string][]string) []string {
	var out []string
	for name, set := range cur {
		for _, s := range set {
			if _, ok := dependent[s]; ok {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

func dedupe(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	return sortedKeys(set)
}
