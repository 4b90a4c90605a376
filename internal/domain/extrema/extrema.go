// Package extrema finds the global per-member growth bounds used to keep
// member charts on a shared scale.
package extrema

import (
	"github.com/mowoo/SLG-Dashboard/internal/domain/model"
	"github.com/mowoo/SLG-Dashboard/internal/domain/types"
	"github.com/mowoo/SLG-Dashboard/internal/domain/velocity"
)

// Resolve computes the per-member velocity series over the whole Dataset and
// returns its max merit velocity and max/min power velocity. First records
// count with their zero velocity. An empty Dataset yields zeros.
func Resolve(ds model.Dataset) model.Extrema {
	return Of(velocity.Series(ds, model.ByMember))
}

// Of returns the extrema of an already computed series.
func Of(records []model.VelocityRecord) model.Extrema {
	if len(records) == 0 {
		return model.Extrema{}
	}
	e := model.Extrema{
		MaxMeritVelocity: records[0].MeritVelocity,
		MaxPowerVelocity: records[0].PowerVelocity,
		MinPowerVelocity: records[0].PowerVelocity,
	}
	for _, r := range records[1:] {
		if r.MeritVelocity > e.MaxMeritVelocity {
			e.MaxMeritVelocity = r.MeritVelocity
		}
		if r.PowerVelocity > e.MaxPowerVelocity {
			e.MaxPowerVelocity = r.PowerVelocity
		}
		if r.PowerVelocity < e.MinPowerVelocity {
			e.MinPowerVelocity = r.PowerVelocity
		}
	}
	return e
}

// Bounds turns extrema into chart domains. Merit growth is floored at 0.
func Bounds(e model.Extrema) types.Bounds {
	return types.Bounds{
		MeritVelocity: [2]float64{0, e.MaxMeritVelocity},
		PowerVelocity: [2]float64{e.MinPowerVelocity, e.MaxPowerVelocity},
	}
}
