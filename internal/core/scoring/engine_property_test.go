// Package scoring 合流评分引擎属性测试
package scoring

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"orderflow-signal-engine/internal/core/detector"
	"orderflow-signal-engine/internal/core/indicator"
	"orderflow-signal-engine/internal/core/model"
)

// **Feature: orderflow-signal-engine, Property 9: Score Range Invariant**
// **Validates: Requirements 6.1, 6.2**

func TestEngine_ScoreRange_Property(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	tbl := NewWeightTable()
	e := NewEngine(tbl, 70)
	maxScore := tbl.MaxPossibleScore()

	nodes := []indicator.NodeType{indicator.NodePOC, indicator.NodeHighVolume, indicator.NodeLowVolume, indicator.NodeNormal}
	divs := []indicator.DivergenceKind{indicator.DivergenceNone, indicator.DivergenceBullish, indicator.DivergenceBearish}
	vwaps := []indicator.VWAPRelation{indicator.VWAPAbove, indicator.VWAPBelow, indicator.VWAPNear}
	tails := []detector.TailBias{detector.TailNone, detector.TailBullish, detector.TailBearish, detector.TailConsolidation}

	properties.Property("任意输入下 0 ≤ 得分 ≤ 最大可能得分", prop.ForAll(
		func(long bool, orderCount int, cvd float64, pick int, imb float64,
			emaOffset float64, hour int, dom float64, quality int, tape float64,
			fish bool) bool {
			dir := model.DirShort
			if long {
				dir = model.DirLong
			}
			price := 4500.0
			in := Input{
				Kind:          model.KindIceberg,
				Direction:     dir,
				Price:         price,
				OrderCount:    orderCount,
				CVD:           cvd,
				CVDDivergence: divs[pick%len(divs)],
				Node:          nodes[pick%len(nodes)],
				// imb/dom 已在 [-1, 1] 内
				VolumeImbalance: imb,
				EMA: EMASet{
					Fast: price + emaOffset, Mid: price - emaOffset, Slow: price + 2*emaOffset,
					FastReady: pick%2 == 0, MidReady: pick%3 != 0, SlowReady: true,
				},
				VWAPRelation:           vwaps[pick%len(vwaps)],
				Hour:                   hour % 24,
				DOMImbalance:           dom,
				StopHuntQuality:        quality % 11,
				StopHuntDirectionMatch: quality%2 == 0,
				TapeAlignment:          tape,
				Tail:                   detector.TailReport{Bias: tails[pick%len(tails)], StrongerSide: dir},
				BigFishDefending:       fish,
				NowNs:                  1_000_000_000,
			}

			sig := e.Score(in)
			return sig.Score >= 0 && sig.Score <= maxScore
		},
		gen.Bool(),
		gen.IntRange(0, 500),
		gen.Float64Range(-1e6, 1e6),
		gen.IntRange(0, 1000),
		gen.Float64Range(-1, 1),
		gen.Float64Range(-50, 50),
		gen.IntRange(0, 100),
		gen.Float64Range(-1, 1),
		gen.IntRange(0, 100),
		gen.Float64Range(-1, 1),
		gen.Bool(),
	))

	properties.Property("因子分值之和（钳制前）不小于最终得分", prop.ForAll(
		func(long bool, cvd float64, dom float64) bool {
			dir := model.DirShort
			if long {
				dir = model.DirLong
			}
			sig := e.Score(Input{
				Kind:         model.KindSpoof,
				Direction:    dir,
				Price:        4500,
				CVD:          cvd,
				DOMImbalance: dom,
				Hour:         3,
				NowNs:        1,
			})
			var sum float64
			for _, f := range sig.Breakdown {
				sum += f.Points
			}
			// 负总分钳制为 0，非负总分与明细之和一致
			if sum < 0 {
				return sig.Score == 0
			}
			return sig.Score == sum
		},
		gen.Bool(),
		gen.Float64Range(-1e4, 1e4),
		gen.Float64Range(-1, 1),
	))

	properties.TestingRun(t)
}
