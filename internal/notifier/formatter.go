package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"SignalFoundry/internal/model"
	"SignalFoundry/internal/pipeline"
)

// FormatRunReport formats a pipeline run into a Telegram HTML message.
func FormatRunReport(symbol string, res *pipeline.Result) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>SignalFoundry</b> | %s | %s\n\n", html.EscapeString(symbol), time.Now().Format("2006-01-02")))

	if f := res.Frame; f != nil && f.Len() > 0 {
		last := f.Len() - 1
		b.WriteString(fmt.Sprintf("收盘: %.2f | Kalman: %.2f | Fourier: %.2f\n", f.Close[last], f.Kalman[last], f.Fourier[last]))
		b.WriteString(fmt.Sprintf("样本: %d 根K线\n\n", f.Len()))
	}

	b.WriteString("📈 <b>模型信号:</b>\n")
	for _, g := range res.Generators {
		b.WriteString(fmt.Sprintf("  %s (×%.2f): %s | 收益 %+.2f%%\n",
			g.Name, g.Weight, lastSignal(g.Signals), g.Metrics.TotalReturn*100))
	}
	b.WriteString("  ─────────────────\n")
	b.WriteString(fmt.Sprintf("  综合信号: <b>%s</b>\n\n", lastSignal(res.Final)))

	b.WriteString(FormatMetrics(res))
	return b.String()
}

// FormatMetrics renders the ensemble's performance block.
func FormatMetrics(res *pipeline.Result) string {
	m := res.Metrics
	var b strings.Builder
	b.WriteString("💰 <b>回测表现:</b>\n")
	b.WriteString(fmt.Sprintf("   总收益: %+.2f%%\n", m.TotalReturn*100))
	b.WriteString(fmt.Sprintf("   夏普比率: %s\n", formatRatio(m.SharpeRatio)))
	b.WriteString(fmt.Sprintf("   最大回撤: %.2f%%\n", m.MaxDrawdown*100))
	b.WriteString(fmt.Sprintf("   期末权益: %.2f | 交易次数: %d\n", m.FinalEquity, m.NumTrades))
	return b.String()
}

// FormatFailure formats a failed run.
func FormatFailure(symbol, stage string, err error) string {
	return fmt.Sprintf("❌ <b>%s</b> 运行失败 (%s): %s", html.EscapeString(symbol), stage, html.EscapeString(err.Error()))
}

func lastSignal(s model.SignalSeries) string {
	if len(s) == 0 {
		return "n/a"
	}
	return s[len(s)-1].String()
}

func formatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
