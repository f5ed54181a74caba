package progenitor

import "github.com/EdoardoCarlesi/MetroCpp/halostore"

// searchMapJoin is the preferred algorithm (spec.md §4.4 mode A): for
// every particle owned by a descendant halo, look the particle id up
// in the progenitor snapshot's inverted index and credit the match.
// Descendants are walked in ascending local-index order, their
// particle types in ascending type order, and particle ids in the
// ascending order the halo store already sorts them in on Append — so
// two runs over identical input produce identical candidate order,
// satisfying the deterministic tie-break requirement of spec.md §4.5.
func searchMapJoin(store *halostore.Store, descSlot, progSlot int, opts Options) Result {
	progIdx := store.Inverted(progSlot)
	acc := newAccumulator(opts.NPTypes)

	for descIdx := 0; descIdx < store.Len(descSlot); descIdx++ {
		ps := store.Particles(descSlot, descIdx)
		for _, ptype := range sortedTypes(ps) {
			for _, pid := range ps.ByType[ptype] {
				for _, owner := range progIdx.Owners(pid) {
					if owner.ParticleType != ptype {
						continue
					}
					acc.add(descIdx, owner.HaloID, ptype)
				}
			}
		}
	}
	return acc.result(store, progSlot, opts.MinPartCmp)
}
