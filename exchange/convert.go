package exchange

import "github.com/EdoardoCarlesi/MetroCpp/treepb"

func toWireHalo(h treepb.Halo, ps *treepb.ParticleSet) wireHalo {
	parts := make(map[int][]uint64, len(ps.ByType))
	for t, ids := range ps.ByType {
		cp := make([]uint64, len(ids))
		copy(cp, ids)
		parts[t] = cp
	}
	return wireHalo{
		Halo: haloFields{
			ID:         h.ID,
			HostID:     h.HostID,
			Position:   h.Position,
			Velocity:   h.Velocity,
			RVir:       h.RVir,
			Mass:       h.Mass,
			NPart:      append([]uint64(nil), h.NPart...),
			Spin:       h.Spin,
			HiResFrac:  h.HiResFrac,
			IsToken:    h.IsToken,
			OrphanStep: h.OrphanStep,
		},
		PartsByType: parts,
	}
}

func fromWireHalo(w wireHalo) (treepb.Halo, *treepb.ParticleSet) {
	h := treepb.Halo{
		ID:         w.Halo.ID,
		HostID:     w.Halo.HostID,
		Position:   w.Halo.Position,
		Velocity:   w.Halo.Velocity,
		RVir:       w.Halo.RVir,
		Mass:       w.Halo.Mass,
		NPart:      w.Halo.NPart,
		Spin:       w.Halo.Spin,
		HiResFrac:  w.Halo.HiResFrac,
		IsToken:    w.Halo.IsToken,
		OrphanStep: w.Halo.OrphanStep,
	}
	ps := treepb.NewParticleSet()
	for t, ids := range w.PartsByType {
		ps.ByType[t] = ids
	}
	return h, ps
}
