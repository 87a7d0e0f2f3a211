package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rlaalswo86-stack/godlifedaily/internal/currency"
	"github.com/rlaalswo86-stack/godlifedaily/internal/fx"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// maxReportMatches caps the match lines of a scan report.
const maxReportMatches = 30

// FormatScanReport formats a screener run into a Telegram message.
func FormatScanReport(res *model.ScanResult) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>S&amp;P 500 스크리너</b> | %s\n\n", res.StartedAt.Format("2006-01-02 15:04")))
	c := res.Criteria
	b.WriteString(fmt.Sprintf("조건: RSI ≤ %s · 0 &lt; PER &lt; %s · ROE &gt; %s%%\n",
		trimFloat(c.MaxRSI), trimFloat(c.MaxPER), trimFloat(c.MinROEPercent)))
	b.WriteString(fmt.Sprintf("검사 종목: %d개 | 발견: %d개 | 소요: %s\n",
		res.UniverseSize, len(res.Matches), res.Duration().Round(time.Second)))

	if res.Cancelled {
		b.WriteString("⏹ 중단된 스캔입니다 (부분 결과)\n")
	}
	if res.UniverseWarning != "" {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(res.UniverseWarning)))
	}
	b.WriteString("\n")

	if len(res.Matches) == 0 {
		b.WriteString("조건에 맞는 종목이 없습니다.\n")
	}
	for i, m := range res.Matches {
		if i == maxReportMatches {
			b.WriteString(fmt.Sprintf("... 외 %d개\n", len(res.Matches)-maxReportMatches))
			break
		}
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %s\n", i+1, m.Symbol, html.EscapeString(m.Company)))
		b.WriteString(fmt.Sprintf("   $%s | RSI %.1f | PER %.1f | ROE %.1f%%\n",
			currency.FormatFixed(m.Price, 2), m.RSI, m.PER, m.ROEPercent))
	}

	if len(res.Counts) > 0 {
		b.WriteString("\n")
		b.WriteString(formatCounts(res.Counts))
	}
	return b.String()
}

var reasonLabels = map[model.SkipReason]string{
	model.ReasonMatched:            "통과",
	model.ReasonFetchFailed:        "조회 실패",
	model.ReasonNoData:             "데이터 없음",
	model.ReasonRSIUndefined:       "RSI 계산 불가",
	model.ReasonRSIAbove:           "RSI 초과",
	model.ReasonFundamentalsFailed: "재무 조회 실패",
	model.ReasonCriteriaNotMet:     "PER/ROE 미달",
	model.ReasonCancelled:          "중단",
}

func formatCounts(counts map[model.SkipReason]int) string {
	reasons := make([]model.SkipReason, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })

	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		label, ok := reasonLabels[r]
		if !ok {
			label = string(r)
		}
		parts = append(parts, fmt.Sprintf("%s %d", label, counts[r]))
	}
	return "<i>" + strings.Join(parts, " · ") + "</i>\n"
}

// FormatAnalysis formats a single-ticker report.
func FormatAnalysis(a *model.Analysis) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📈 <b>%s</b> %s (%s)\n\n", a.Symbol, html.EscapeString(a.Company), a.Period))
	b.WriteString(fmt.Sprintf("현재가: $%s (%s)\n", currency.FormatFixed(a.Price, 2), formatChange(a.Change, 2)))

	per := "N/A"
	if a.PER != nil {
		per = fmt.Sprintf("%.2f", *a.PER)
	}
	b.WriteString(fmt.Sprintf("PER: %s\n", per))

	rsi := "N/A"
	if a.RSI != nil && !math.IsNaN(*a.RSI) {
		rsi = fmt.Sprintf("%.2f", *a.RSI)
		switch {
		case *a.RSI >= 70:
			rsi += " (과매수)"
		case *a.RSI <= 30:
			rsi += " (과매도)"
		}
	}
	b.WriteString(fmt.Sprintf("RSI(14): %s\n", rsi))
	if a.MA20 != nil {
		b.WriteString(fmt.Sprintf("MA20: $%s\n", currency.FormatFixed(*a.MA20, 2)))
	}

	if a.High > 0 || a.Low > 0 {
		b.WriteString(fmt.Sprintf("기간 고가/저가: $%s / $%s\n", currency.FormatFixed(a.High, 2), currency.FormatFixed(a.Low, 2)))
	}
	if a.Industry != "" {
		b.WriteString(fmt.Sprintf("업종: %s\n", html.EscapeString(a.Industry)))
	}
	if a.Summary != "" {
		b.WriteString(fmt.Sprintf("\n<i>%s</i>\n", html.EscapeString(a.Summary)))
	}
	if a.Warning != "" {
		b.WriteString(fmt.Sprintf("\n⚠️ %s\n", html.EscapeString(a.Warning)))
	}
	return b.String()
}

var currencyFlags = map[string]string{
	"USD": "🇺🇸",
	"THB": "🇹🇭",
	"JPY": "🇯🇵",
	"EUR": "🇪🇺",
}

// FormatFXReport formats exchange-rate quotes and per-code failures.
func FormatFXReport(quotes []model.FXQuote, errs map[string]error) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("💱 <b>환율 리포트</b> | %s\n\n", time.Now().Format("2006-01-02 15:04")))

	for _, q := range quotes {
		cur := q.Currency()
		flag, ok := currencyFlags[cur]
		if !ok {
			flag = "💵"
		}
		b.WriteString(fmt.Sprintf("%s %s/KRW: <b>%s원</b> (%s)\n",
			flag, cur, currency.FormatFixed(q.Rate, 2), formatChange(q.Change, 2)))
	}

	codes := make([]string, 0, len(errs))
	for code := range errs {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		b.WriteString(fmt.Sprintf("⚠️ %s: 조회 실패 (%s)\n", code, html.EscapeString(errs[code].Error())))
	}
	if len(quotes) == 0 && len(errs) == 0 {
		b.WriteString("조회할 환율이 없습니다.\n")
	}
	return b.String()
}

// FormatConversion formats a KRW/THB conversion.
func FormatConversion(c *fx.Conversion) string {
	var b strings.Builder
	b.WriteString("🧮 <b>환전 계산기</b>\n\n")
	switch c.Direction {
	case fx.KRWToTHB:
		b.WriteString(fmt.Sprintf("%s원 → <b>%s바트</b>\n", currency.FormatAmount(c.Amount), currency.FormatFixed(c.Result, 2)))
	default:
		b.WriteString(fmt.Sprintf("%s바트 → <b>%s원</b>\n", currency.FormatAmount(c.Amount), currency.FormatFixed(c.Result, 0)))
	}
	b.WriteString(fmt.Sprintf("적용 환율: 1바트 = %s원\n", currency.FormatFixed(c.Rate, 2)))
	if c.Verdict != "" {
		b.WriteString("\n" + c.Verdict + "\n")
	}
	return b.String()
}

func formatChange(v float64, digits int) string {
	switch {
	case v > 0:
		return "▲ " + currency.FormatFixed(v, digits)
	case v < 0:
		return "▼ " + currency.FormatFixed(-v, digits)
	default:
		return "-"
	}
}

func trimFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
