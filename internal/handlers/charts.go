package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"

	"github.com/Kothamrita/GlauCat/internal/engine"
	"github.com/Kothamrita/GlauCat/internal/repository"
)

// ChartsHandler renders the score-over-time chart for one assessment kind.
type ChartsHandler struct {
	log *zap.Logger
}

func NewChartsHandler(log *zap.Logger) *ChartsHandler {
	return &ChartsHandler{log: log}
}

var chartTitles = map[engine.ScoreKind]string{
	engine.ScoreField:    "Field Test Score Over Time",
	engine.ScoreContrast: "Contrast Sensitivity Score Over Time",
	engine.ScoreGaze:     "Gaze Tracking Score Over Time",
}

// Timeline returns the ECharts option object for the requested kind's
// score history; the frontend feeds it straight into echarts.setOption.
func (h *ChartsHandler) Timeline(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	kind, ok := scoreKindFromQuery(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown assessment kind"})
		return
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()
	data, err := repository.GetScoreTimeline(ctx, user.ID, kind)
	if err != nil {
		h.log.Error("Failed to get score timeline", zap.Error(err), zap.String("kind", string(kind)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load timeline"})
		return
	}

	line := generateTimelineChart(data, chartTitles[kind])
	c.JSON(http.StatusOK, line.JSON())
}

// TimelinePage renders the same chart as a standalone HTML page.
func (h *ChartsHandler) TimelinePage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.Redirect(http.StatusFound, "/")
		return
	}
	kind, ok := scoreKindFromQuery(c)
	if !ok {
		c.String(http.StatusBadRequest, "Unknown assessment kind")
		return
	}

	ctx, cancel := contextWithTimeout(c)
	defer cancel()
	data, err := repository.GetScoreTimeline(ctx, user.ID, kind)
	if err != nil {
		h.log.Error("Failed to get score timeline", zap.Error(err), zap.String("kind", string(kind)))
		c.String(http.StatusInternalServerError, "Failed to load timeline")
		return
	}

	line := generateTimelineChart(data, chartTitles[kind])
	if err := line.Render(c.Writer); err != nil {
		h.log.Error("Failed to render timeline chart", zap.Error(err))
	}
}

func generateTimelineChart(data []repository.TimelineDataPoint, title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "Risk score, 1 (high risk) to 10 (low risk)",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	items := make([]opts.LineData, 0, len(data))
	for _, point := range data {
		items = append(items, opts.LineData{Value: []interface{}{point.Date, point.Value}})
	}

	line.AddSeries("Score", items).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}
