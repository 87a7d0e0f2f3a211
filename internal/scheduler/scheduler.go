package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/robfig/cron/v3"

	"github.com/rlaalswo86-stack/godlifedaily/internal/fx"
	"github.com/rlaalswo86-stack/godlifedaily/internal/metrics"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
	"github.com/rlaalswo86-stack/godlifedaily/internal/notifier"
	"github.com/rlaalswo86-stack/godlifedaily/internal/recorder"
	"github.com/rlaalswo86-stack/godlifedaily/internal/screener"
)

// ErrScanInProgress is returned when a scan is requested while another runs.
var ErrScanInProgress = errors.New("a scan is already running")

// Sender delivers a chat message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// UniverseProvider resolves the symbols to scan.
type UniverseProvider interface {
	Universe(ctx context.Context) (model.Universe, string)
}

// Scanner runs the screener over a universe.
type Scanner interface {
	Scan(ctx context.Context, universe []string, criteria model.Criteria, progress screener.ProgressFunc) (*model.ScanResult, error)
}

// Analyzer builds single-ticker reports.
type Analyzer interface {
	Analyze(ctx context.Context, symbol string, period model.Period) (*model.Analysis, error)
}

// QuoteProvider reads exchange rates.
type QuoteProvider interface {
	Quote(ctx context.Context, code string) (model.FXQuote, error)
	Quotes(ctx context.Context, codes []string) ([]model.FXQuote, map[string]error)
}

// Scheduler manages all cron tasks and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Universe UniverseProvider
	Screener Scanner
	Analyzer Analyzer
	FX       QuoteProvider
	Notifier Sender // nil disables notifications
	Recorder recorder.Recorder
	Health   *metrics.HealthStatus // optional
	Criteria model.Criteria
	FXCodes  []string
	Ctx      context.Context

	scanning atomic.Bool
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, up UniverseProvider, sc Scanner, an Analyzer, qp QuoteProvider, sender Sender, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Universe: up,
		Screener: sc,
		Analyzer: an,
		FX:       qp,
		Notifier: sender,
		Recorder: rec,
		Criteria: model.DefaultCriteria(),
		FXCodes:  fx.DefaultCodes,
		Ctx:      ctx,
	}
}

// RegisterAll registers the scan and exchange-rate report tasks.
func (s *Scheduler) RegisterAll(scanCron, fxCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	if _, err := s.Cron.AddFunc(fxCron, s.fxTask); err != nil {
		return fmt.Errorf("register fx task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunScanNow executes the scan task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunScanNow() {
	s.scanTask()
}

// Scanning reports whether a scan is in flight.
func (s *Scheduler) Scanning() bool { return s.scanning.Load() }

// Scan resolves the universe, screens it and records the result. Only one
// scan runs at a time. A cancelled scan is recorded and returned together
// with the context error.
func (s *Scheduler) Scan(ctx context.Context, criteria model.Criteria, progress screener.ProgressFunc) (*model.ScanResult, error) {
	if !s.scanning.CompareAndSwap(false, true) {
		return nil, ErrScanInProgress
	}
	defer s.scanning.Store(false)
	if s.Health != nil {
		s.Health.SetScanRunning(true)
		defer s.Health.SetScanRunning(false)
	}

	universe, warning := s.Universe.Universe(ctx)
	if warning != "" {
		log.Printf("[WARN] universe: %s", warning)
	}

	res, err := s.Screener.Scan(ctx, universe, criteria, progress)
	if res == nil {
		return nil, err
	}
	res.UniverseWarning = warning
	if recErr := s.Recorder.RecordScan(res); recErr != nil {
		log.Printf("[ERROR] record scan %s: %v", res.ID, recErr)
	}
	return res, err
}

func (s *Scheduler) scanTask() {
	log.Println("[INFO] running scheduled scan")
	res, err := s.Scan(s.Ctx, s.Criteria, logProgress)
	switch {
	case errors.Is(err, ErrScanInProgress):
		log.Println("[WARN] scan skipped: previous scan still running")
		return
	case res == nil:
		log.Printf("[ERROR] scan: %v", err)
		s.trySend(fmt.Sprintf("❌ 스캔 실패: %v", err))
		return
	}
	s.trySend(notifier.FormatScanReport(res))
}

func logProgress(p screener.Progress) {
	if p.Index%50 == 0 || p.Index == p.Total {
		log.Printf("[INFO] scan progress %d/%d", p.Index, p.Total)
	}
}

func (s *Scheduler) fxTask() {
	log.Println("[INFO] running fx report")
	s.trySend(s.fxReport(s.Ctx))
}

// fxReport fetches the configured pairs, records them and formats the report.
func (s *Scheduler) fxReport(ctx context.Context) string {
	quotes, errs := s.FX.Quotes(ctx, s.FXCodes)
	for code, err := range errs {
		log.Printf("[WARN] fx %s: %v", code, err)
	}
	for i := range quotes {
		if err := s.Recorder.RecordQuote(&quotes[i]); err != nil {
			log.Printf("[ERROR] record quote %s: %v", quotes[i].Code, err)
		}
	}
	return notifier.FormatFXReport(quotes, errs)
}

const helpText = `사용 가능한 명령:
• /scan - S&amp;P 500 스크리너 실행
• /fx - 환율 리포트
• /stock SYMBOL [1mo|3mo|6mo|1y|5y] - 종목 분석
• /convert AMOUNT krw-thb|thb-krw - 환전 계산
• /history - 최근 스캔 기록`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	cmd := strings.ToLower(fields[0])
	if at := strings.IndexByte(cmd, '@'); at > 0 {
		cmd = cmd[:at]
	}
	args := fields[1:]

	switch cmd {
	case "/scan":
		if s.Scanning() {
			return "⏳ 이미 스캔이 진행 중입니다."
		}
		go s.scanTask()
		return "🔍 스캔을 시작합니다. 완료되면 결과를 보내드릴게요."
	case "/fx":
		return s.fxReport(ctx)
	case "/stock":
		return s.stockReply(ctx, args)
	case "/convert":
		return s.convertReply(ctx, args)
	case "/history":
		return s.historyReply()
	default:
		return helpText
	}
}

func (s *Scheduler) stockReply(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "사용법: /stock SYMBOL [1mo|3mo|6mo|1y|5y]"
	}
	var period model.Period
	if len(args) > 1 {
		period = model.Period(args[1])
	}
	a, err := s.Analyzer.Analyze(ctx, args[0], period)
	switch {
	case errors.Is(err, model.ErrUnknownPeriod):
		return "❌ 지원하지 않는 기간입니다. (1mo, 3mo, 6mo, 1y, 5y)"
	case errors.Is(err, model.ErrNoData):
		return fmt.Sprintf("❌ %s: 데이터가 없습니다. 티커를 확인해주세요.", strings.ToUpper(args[0]))
	case err != nil:
		log.Printf("[ERROR] analyze %s: %v", args[0], err)
		return fmt.Sprintf("❌ %s 조회 실패: %v", strings.ToUpper(args[0]), err)
	}
	return notifier.FormatAnalysis(a)
}

func (s *Scheduler) convertReply(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "사용법: /convert AMOUNT krw-thb|thb-krw"
	}
	dir, err := fx.ParseDirection(args[len(args)-1])
	if err != nil {
		return "❌ 방향은 krw-thb 또는 thb-krw 입니다."
	}
	amount := strings.Join(args[:len(args)-1], "")

	var rate float64
	q, err := s.FX.Quote(ctx, fx.CodeTHBKRW)
	if err != nil {
		log.Printf("[WARN] convert: THB quote: %v", err)
	} else {
		rate = q.Rate
	}

	c, err := fx.Convert(dir, amount, rate)
	switch {
	case errors.Is(err, fx.ErrNoAmount):
		return "❌ 금액을 입력해주세요."
	case errors.Is(err, fx.ErrNoRate):
		return "❌ 환율 정보를 가져올 수 없습니다."
	case err != nil:
		return fmt.Sprintf("❌ %v", err)
	}
	return notifier.FormatConversion(c)
}

func (s *Scheduler) historyReply() string {
	h, ok := s.Recorder.(recorder.History)
	if !ok {
		return "기록 저장소가 설정되지 않았습니다."
	}
	scans, err := h.RecentScans(5)
	if err != nil {
		log.Printf("[ERROR] recent scans: %v", err)
		return fmt.Sprintf("❌ 기록 조회 실패: %v", err)
	}
	if len(scans) == 0 {
		return "스캔 기록이 없습니다."
	}

	var b strings.Builder
	b.WriteString("🗂 <b>최근 스캔</b>\n\n")
	for _, sc := range scans {
		symbols := make([]string, 0, len(sc.Matches))
		for _, m := range sc.Matches {
			symbols = append(symbols, m.Symbol)
		}
		line := fmt.Sprintf("%s | %d/%d개", sc.StartedAt.Format("01-02 15:04"), len(sc.Matches), sc.UniverseSize)
		if sc.Cancelled {
			line += " (중단)"
		}
		if len(symbols) > 0 {
			if len(symbols) > 10 {
				symbols = append(symbols[:10], "...")
			}
			line += " " + strings.Join(symbols, ", ")
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		log.Printf("[INFO] notifier disabled, report:\n%s", text)
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
