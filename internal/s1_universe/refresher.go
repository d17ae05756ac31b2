package s1_universe

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/httputil"
	"github.com/wonny/momentumchaser/pkg/logger"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Refresher downloads index constituents and rewrites the universe file
// ⭐ SSOT: 유니버스 파일 갱신은 여기서만
type Refresher struct {
	http    *httputil.Client
	sources []string
	path    string
	logger  *logger.Logger
}

// RefreshResult describes a completed refresh
type RefreshResult struct {
	Source  string
	Symbols []string
	Added   []string
	Removed []string
}

// NewRefresher creates a refresher trying sources in order
func NewRefresher(httpClient *httputil.Client, path string, log *logger.Logger, sources ...string) *Refresher {
	var urls []string
	for _, s := range sources {
		if s != "" {
			urls = append(urls, s)
		}
	}
	return &Refresher{
		http:    httpClient,
		sources: urls,
		path:    path,
		logger:  log.WithField("module", "universe"),
	}
}

// Refresh fetches the first source that yields symbols and replaces the file atomically.
// The existing file is left untouched when every source fails.
func (r *Refresher) Refresh(ctx context.Context) (*RefreshResult, error) {
	if len(r.sources) == 0 {
		return nil, fmt.Errorf("no universe source configured")
	}

	var errs []error
	for _, src := range r.sources {
		symbols, err := r.fetch(ctx, src)
		if err != nil {
			r.logger.WithError(err).WithField("source", src).Warn("Universe source failed")
			errs = append(errs, fmt.Errorf("%s: %w", src, err))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		res := &RefreshResult{Source: src, Symbols: symbols}
		if prev, err := NewFileResolver(r.path).Resolve(ctx, time.Now()); err == nil {
			next := &contracts.Universe{Symbols: symbols}
			res.Added, res.Removed = next.Diff(prev)
		}

		if err := writeAtomic(r.path, symbols); err != nil {
			return nil, err
		}

		r.logger.WithFields(map[string]interface{}{
			"source":  src,
			"symbols": len(symbols),
			"added":   len(res.Added),
			"removed": len(res.Removed),
		}).Info("Universe refreshed")
		return res, nil
	}

	return nil, fmt.Errorf("refresh universe: %w", errors.Join(errs...))
}

func (r *Refresher) fetch(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv,text/html,application/octet-stream,*/*;q=0.8")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var symbols []string
	if isHTML(resp.Header.Get("Content-Type"), body) {
		symbols, err = parseHTMLTable(body)
	} else {
		symbols, err = parseCSV(body)
	}
	if err != nil {
		return nil, err
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols in response")
	}
	return symbols, nil
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(contentType, "html") {
		return true
	}
	return bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
}

// parseCSV reads the constituents CSV and returns its Symbol column
func parseCSV(body []byte) ([]string, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	col := symbolColumn(header)
	if col < 0 {
		return nil, fmt.Errorf("'Symbol' column not found in %v", header)
	}

	var raw []string
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row: %w", err)
		}
		if col < len(rec) {
			raw = append(raw, rec[col])
		}
	}
	return cleanSymbols(raw), nil
}

// parseHTMLTable reads the first table whose header has a Symbol column
func parseHTMLTable(body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var raw []string
	found := false
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		var header []string
		table.Find("tr").First().Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			header = append(header, cell.Text())
		})
		col := symbolColumn(header)
		if col < 0 {
			return true
		}

		found = true
		table.Find("tr").Slice(1, goquery.ToEnd).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if col < cells.Length() {
				raw = append(raw, cells.Eq(col).Text())
			}
		})
		return false
	})

	if !found {
		return nil, fmt.Errorf("no constituents table in html")
	}
	return cleanSymbols(raw), nil
}

func symbolColumn(header []string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), "symbol") {
			return i
		}
	}
	return -1
}

// cleanSymbols uppercases, drops non-ASCII and blanks, dedupes and sorts
func cleanSymbols(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || !isASCII(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// writeAtomic writes symbols to a temp file beside path and renames it over path
func writeAtomic(path string, symbols []string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("universe mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".universe-*.tmp")
	if err != nil {
		return fmt.Errorf("universe temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(strings.Join(symbols, "\n") + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write universe: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close universe: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace universe: %w", err)
	}
	return nil
}
