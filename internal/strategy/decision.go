package strategy

import (
	"sort"

	"GEMSentinel/internal/model"
)

// Rank orders results by return descending. Equal returns keep their input order.
func Rank(results []model.InstrumentResult) []model.InstrumentResult {
	ranked := make([]model.InstrumentResult, len(results))
	copy(ranked, results)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ReturnPct > ranked[j].ReturnPct
	})
	return ranked
}

// Decide applies the GEM rule to a ranked result set.
//   - leader is a risk asset with a positive return: buy the leader
//   - otherwise: flee to the best ranked safe haven
func Decide(ranked []model.InstrumentResult) (*model.Signal, error) {
	if len(ranked) == 0 {
		return nil, ErrNoDataAvailable
	}
	leader := ranked[0]
	if leader.Instrument.Category == model.RiskAsset && leader.ReturnPct > 0 {
		return &model.Signal{Action: model.ActionBuyRiskAsset, Leader: leader, Chosen: leader}, nil
	}
	for _, r := range ranked {
		if r.Instrument.Category == model.SafeHaven {
			return &model.Signal{Action: model.ActionFleeToSafeHaven, Leader: leader, Chosen: r}, nil
		}
	}
	return nil, ErrNoSafeHavenAvailable
}
