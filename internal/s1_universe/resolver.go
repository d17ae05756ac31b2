package s1_universe

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// FileResolver reads the universe from a text file, one symbol per line
// ⭐ SSOT: S1 유니버스 파일 해석
//
// The file is re-read on every Resolve, so a refresh between runs takes
// effect on the next run.
type FileResolver struct {
	path string
}

// NewFileResolver creates a resolver over path
func NewFileResolver(path string) *FileResolver {
	return &FileResolver{path: path}
}

// Path returns the universe file location
func (r *FileResolver) Path() string {
	return r.path
}

// Resolve implements contracts.UniverseResolver
func (r *FileResolver) Resolve(ctx context.Context, date time.Time) (*contracts.Universe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open universe %s: %w (run `chaser universe refresh`)", r.path, err)
	}
	defer f.Close()

	symbols, err := ParseSymbols(f)
	if err != nil {
		return nil, fmt.Errorf("read universe %s: %w", r.path, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe %s is empty", r.path)
	}

	return &contracts.Universe{
		Date:    contracts.NormalizeDate(date),
		Symbols: symbols,
		Source:  r.path,
	}, nil
}

// ParseSymbols reads one symbol per line.
// Blank lines and # comments are skipped, order is kept, duplicates dropped.
func ParseSymbols(r io.Reader) ([]string, error) {
	var symbols []string
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		sym := strings.ToUpper(strings.TrimSpace(line))
		if sym == "" {
			continue
		}
		if _, dup := seen[sym]; dup {
			continue
		}
		seen[sym] = struct{}{}
		symbols = append(symbols, sym)
	}
	return symbols, scanner.Err()
}

// StaticResolver serves a fixed symbol list
type StaticResolver struct {
	symbols []string
}

// NewStaticResolver creates a resolver over symbols, dropping duplicates
func NewStaticResolver(symbols []string) *StaticResolver {
	parsed, _ := ParseSymbols(strings.NewReader(strings.Join(symbols, "\n")))
	return &StaticResolver{symbols: parsed}
}

// Resolve implements contracts.UniverseResolver
func (r *StaticResolver) Resolve(ctx context.Context, date time.Time) (*contracts.Universe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &contracts.Universe{
		Date:    contracts.NormalizeDate(date),
		Symbols: append([]string(nil), r.symbols...),
		Source:  "static",
	}, nil
}
