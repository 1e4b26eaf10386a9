package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/lox/mcblackjack/internal/blackjack"
	"github.com/lox/mcblackjack/internal/solver"
)

var (
	dealerLabels = func() []string {
		out := make([]string, 0, int(blackjack.Ten))
		for d := blackjack.Ace; d <= blackjack.Ten; d++ {
			out = append(out, d.String())
		}
		return out
	}()

	sumLabels = func() []string {
		out := make([]string, 0, solver.MaxSum-solver.MinSum+1)
		for sum := solver.MinSum; sum <= solver.MaxSum; sum++ {
			out = append(out, strconv.Itoa(sum))
		}
		return out
	}()
)

// Heatmap writes an HTML page with the state value (the better of the two
// action values) and the chosen action for both ace cases.
func Heatmap(w io.Writer, f *solver.PolicyFile) error {
	page := components.NewPage()
	page.PageTitle = "Blackjack policy"

	for _, usableAce := range []bool{true, false} {
		suffix := "no usable ace"
		if usableAce {
			suffix = "usable ace"
		}
		values, actions := heatmapData(f, usableAce)
		page.AddCharts(
			heatmapChart(fmt.Sprintf("State value, %s", suffix), "value", values, -1, 1,
				[]string{"#d73027", "#fee08b", "#1a9850"}),
			heatmapChart(fmt.Sprintf("Action (1 = hit), %s", suffix), "action", actions, 0, 1,
				[]string{"#96CEB4", "#FF6B6B"}),
		)
	}
	return page.Render(w)
}

func heatmapData(f *solver.PolicyFile, usableAce bool) (values, actions []opts.HeatMapData) {
	for _, e := range f.States {
		if e.UsableAce != usableAce {
			continue
		}
		x, y := e.DealerCard-1, e.Sum-solver.MinSum
		action := 0
		if e.Hit {
			action = 1
		}
		values = append(values, opts.HeatMapData{Value: [3]interface{}{x, y, max(e.QHit, e.QStand)}})
		actions = append(actions, opts.HeatMapData{Value: [3]interface{}{x, y, action}})
	}
	return values, actions
}

func heatmapChart(title, series string, data []opts.HeatMapData, low, high float32, colors []string) *charts.HeatMap {
	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:      "Dealer showing",
			Type:      "category",
			Data:      dealerLabels,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:      "Player sum",
			Type:      "category",
			Data:      sumLabels,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        low,
			Max:        high,
			InRange:    &opts.VisualMapInRange{Color: colors},
		}),
	)
	hm.AddSeries(series, data)
	return hm
}
