package publish

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/pretty"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Publisher writes scan results as files for the static site and for humans
// ⭐ SSOT: 산출물 파일 형식은 여기서만
type Publisher struct {
	outDir  string
	siteDir string
	logger  *logger.Logger
}

// Artifacts lists what one Publish call wrote
type Artifacts struct {
	RankedCSV  string `json:"ranked_csv"`
	DebugCSV   string `json:"debug_csv"`
	ScanJSON   string `json:"scan_json"`
	LatestJSON string `json:"latest_json,omitempty"` // empty when a newer scan is already latest
	LatestCSV  string `json:"latest_csv,omitempty"`
	ArchiveCSV string `json:"archive_csv"`
}

// Document is the JSON shape of scan.json and latest.json
type Document struct {
	Result *contracts.ScanResult `json:"result"`
	Run    *contracts.ScanRun    `json:"run,omitempty"`
}

type artifactFile struct {
	path string
	data []byte
}

// New creates a publisher. Files go under outDir/YYYY-MM-DD and siteDir/data.
func New(outDir, siteDir string, log *logger.Logger) *Publisher {
	return &Publisher{
		outDir:  outDir,
		siteDir: siteDir,
		logger:  log.WithField("module", "publish"),
	}
}

// Publish writes every artifact for result. run may be nil.
func (p *Publisher) Publish(result *contracts.ScanResult, run *contracts.ScanRun) (*Artifacts, error) {
	date := result.AsOf.Format(contracts.DateLayout)
	dayDir := filepath.Join(p.outDir, date)
	dataDir := filepath.Join(p.siteDir, "data")
	archiveDir := filepath.Join(p.siteDir, "archive")

	a := &Artifacts{
		RankedCSV:  filepath.Join(dayDir, "todays_scan.csv"),
		DebugCSV:   filepath.Join(dayDir, "debug_checks.csv"),
		ScanJSON:   filepath.Join(dayDir, "scan.json"),
		LatestJSON: filepath.Join(dataDir, "latest.json"),
		LatestCSV:  filepath.Join(dataDir, "latest.csv"),
		ArchiveCSV: filepath.Join(archiveDir, date+".csv"),
	}

	ranked, err := encodeCSV(rankedHeader, rankedRows(result))
	if err != nil {
		return nil, fmt.Errorf("encode ranked csv: %w", err)
	}
	debug, err := encodeCSV(debugHeader, debugRows(result))
	if err != nil {
		return nil, fmt.Errorf("encode debug csv: %w", err)
	}
	doc, err := json.Marshal(Document{Result: result, Run: run})
	if err != nil {
		return nil, fmt.Errorf("encode scan json: %w", err)
	}
	doc = pretty.Pretty(doc)

	files := []artifactFile{
		{a.RankedCSV, ranked},
		{a.DebugCSV, debug},
		{a.ScanJSON, doc},
		{a.ArchiveCSV, ranked},
	}

	// 백필(과거 날짜)은 latest.* 를 되돌리지 않음
	if p.supersedes(a.LatestJSON, result.AsOf) {
		files = append(files, artifactFile{a.LatestJSON, doc}, artifactFile{a.LatestCSV, ranked})
	} else {
		a.LatestJSON, a.LatestCSV = "", ""
	}
	for _, f := range files {
		if err := writeAtomic(f.path, f.data); err != nil {
			return nil, err
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"as_of":   date,
		"ranked":  len(result.Ranked),
		"skipped": len(result.Skipped),
		"dir":     dayDir,
		"latest":  a.LatestJSON != "",
	}).Info("Published scan")

	return a, nil
}

// supersedes reports whether asOf is at least as new as the scan in latest.json.
// A missing or unreadable latest.json is replaced.
func (p *Publisher) supersedes(latestPath string, asOf time.Time) bool {
	raw, err := os.ReadFile(latestPath)
	if err != nil {
		return true
	}
	var current Document
	if err := json.Unmarshal(raw, &current); err != nil || current.Result == nil {
		p.logger.WithField("path", latestPath).Warn("Unreadable latest.json, replacing it")
		return true
	}
	return !asOf.Before(current.Result.AsOf)
}

var rankedHeader = []string{
	"rank", "symbol", "score", "close", "pivot", "dist_to_pivot_pct", "box_span_pct",
	"atr_ratio", "vol5_to_vol50", "uptrend", "within_20pct_high", "nr7_today", "inside_today",
	"tv20_cr", "roc_20_pct", "ema_trend", "stale",
}

var debugHeader = []string{
	"symbol", "reason", "detail", "score", "close", "box_span_pct", "atr_ratio", "vol5_to_vol50", "tv20_cr",
}

func rankedRows(r *contracts.ScanResult) [][]string {
	stale := make(map[string]bool, len(r.Stale))
	for _, s := range r.Stale {
		stale[s] = true
	}

	rows := make([][]string, 0, len(r.Ranked))
	for _, row := range r.Ranked {
		m := row.Metrics
		rows = append(rows, []string{
			strconv.Itoa(row.Rank),
			row.Symbol,
			fixed(row.Score, 4),
			fixed(m.Close, 2),
			fixed(m.Pivot, 2),
			fixed(m.DistToPivot*100, 2),
			fixed(m.BoxSpan*100, 2),
			fixed(m.ATRRatio, 2),
			ratio(m.VolRatio),
			strconv.FormatBool(m.Uptrend),
			strconv.FormatBool(m.Near52wHigh),
			strconv.FormatBool(m.NR7),
			strconv.FormatBool(m.InsideDay),
			fixed(m.TradedValueCr, 2),
			fixed(m.ROC20*100, 2),
			m.EMATrend,
			strconv.FormatBool(stale[row.Symbol]),
		})
	}
	return rows
}

// debugRows lists every universe member: ranked first, then skipped
func debugRows(r *contracts.ScanResult) [][]string {
	rows := make([][]string, 0, len(r.Ranked)+len(r.Skipped))
	for _, row := range r.Ranked {
		m := row.Metrics
		rows = append(rows, []string{
			row.Symbol, "ranked", "",
			fixed(row.Score, 4),
			fixed(m.Close, 2),
			fixed(m.BoxSpan*100, 2),
			fixed(m.ATRRatio, 2),
			ratio(m.VolRatio),
			fixed(m.TradedValueCr, 2),
		})
	}
	for _, s := range r.Skipped {
		rows = append(rows, []string{s.Symbol, string(s.Reason), s.Detail, "", "", "", "", "", ""})
	}
	return rows
}

// fixed renders x with exactly places decimals, half away from zero
func fixed(x float64, places int32) string {
	return decimal.NewFromFloat(x).StringFixed(places)
}

// 기준값 없음(9.99) → 빈 칸
func ratio(x float64) string {
	if x >= 9 {
		return ""
	}
	return fixed(x, 2)
}

func encodeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeAtomic replaces path so readers never see a half-written file
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
