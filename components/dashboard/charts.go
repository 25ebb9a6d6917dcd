package dashboard

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	defaultChartHeight = "360px"
	// DefaultChartAssetsHost serves the ECharts bundle when no local assets are mounted.
	DefaultChartAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"
)

var heatmapPalette = []string{"#eef4fb", "#9ecae1", "#3182bd", "#08306b"}

// ChartRenderer turns query data into go-echarts markup.
type ChartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

// ChartRendererOption customizes renderer behavior.
type ChartRendererOption func(*ChartRenderer)

// WithChartCache injects a render cache. Nil disables memoization.
func WithChartCache(cache RenderCache) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the echarts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartRendererOption {
	return func(r *ChartRenderer) {
		if theme = strings.TrimSpace(theme); theme != "" {
			r.theme = theme
		}
	}
}

// WithChartAssetsHost rewrites the assets host the chart scripts load from.
func WithChartAssetsHost(host string) ChartRendererOption {
	return func(r *ChartRenderer) {
		r.assetsHost = host
	}
}

// NewChartRenderer builds a renderer.
func NewChartRenderer(options ...ChartRendererOption) *ChartRenderer {
	r := &ChartRenderer{
		theme:      types.ThemeWesteros,
		assetsHost: DefaultChartAssetsHost,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Theme returns the configured theme.
func (r *ChartRenderer) Theme() string {
	return r.theme
}

// SalesChart renders revenue and expenses as a smoothed line chart.
// version identifies the data; equal versions reuse cached markup.
func (r *ChartRenderer) SalesChart(version string, series SalesSeries) (string, error) {
	if len(series.Labels) == 0 {
		return "", fmt.Errorf("dashboard: sales series is empty")
	}
	return r.memo(chartKey("sales", version, r.theme), func() (string, error) {
		line := charts.NewLine()
		line.SetGlobalOptions(r.globalOptions("Revenue vs expenses", "Last 12 months")...)
		line.SetXAxis(series.Labels).
			AddSeries("Revenue", toLineData(series.Labels, series.Revenue)).
			AddSeries("Expenses", toLineData(series.Labels, series.Expenses))
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	})
}

// ActivityHeatmap renders weeks on the x axis and weekdays on the y axis.
func (r *ChartRenderer) ActivityHeatmap(version string, cells []ActivityCell) (string, error) {
	if len(cells) == 0 {
		return "", fmt.Errorf("dashboard: activity grid is empty")
	}
	return r.memo(chartKey("activity", version, r.theme), func() (string, error) {
		weeks := 0
		for _, cell := range cells {
			weeks = max(weeks, cell.Week+1)
		}
		labels := make([]string, weeks)
		for i := range labels {
			labels[i] = fmt.Sprintf("W%d", i+1)
		}

		hm := charts.NewHeatMap()
		global := r.globalOptions("Weekly activity", fmt.Sprintf("Last %d weeks", weeks))
		global = append(global,
			charts.WithXAxisOpts(opts.XAxis{Type: "category", SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
			charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: DayNames, SplitArea: &opts.SplitArea{Show: opts.Bool(true)}}),
			charts.WithVisualMapOpts(opts.VisualMap{
				Calculable: opts.Bool(true),
				Min:        0,
				Max:        99,
				InRange:    &opts.VisualMapInRange{Color: heatmapPalette},
			}),
		)
		hm.SetGlobalOptions(global...)
		hm.SetXAxis(labels).AddSeries("Activity", toHeatMapData(cells))
		return renderChart(hm)
	})
}

func (r *ChartRenderer) memo(key string, render func() (string, error)) (string, error) {
	if r.cache == nil {
		return render()
	}
	return r.cache.GetOrRender(key, render)
}

func (r *ChartRenderer) globalOptions(title, subtitle string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toLineData(labels []string, values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, value := range values {
		name := ""
		if i < len(labels) {
			name = labels[i]
		}
		data[i] = opts.LineData{Name: name, Value: value}
	}
	return data
}

func toHeatMapData(cells []ActivityCell) []opts.HeatMapData {
	data := make([]opts.HeatMapData, len(cells))
	for i, cell := range cells {
		data[i] = opts.HeatMapData{
			Name:  cell.DayName,
			Value: [3]any{cell.Week, cell.Day, cell.Value},
		}
	}
	return data
}
