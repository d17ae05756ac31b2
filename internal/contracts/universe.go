package contracts

import "time"

// Universe is the ordered symbol set for one run (S1 → S0/S4)
// ⭐ SSOT: S1 → S0/S4 종목 목록 전달
type Universe struct {
	Date    time.Time `json:"date"`
	Symbols []string  `json:"symbols"` // 입력 순서 유지, 중복 없음
	Source  string    `json:"source"`
}

// Contains checks if a symbol is in the universe
func (u *Universe) Contains(symbol string) bool {
	for _, s := range u.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Count returns the number of symbols
func (u *Universe) Count() int {
	return len(u.Symbols)
}

// Diff returns symbols added and removed relative to prev
func (u *Universe) Diff(prev *Universe) (added, removed []string) {
	if prev == nil {
		return append([]string(nil), u.Symbols...), nil
	}

	before := make(map[string]struct{}, len(prev.Symbols))
	for _, s := range prev.Symbols {
		before[s] = struct{}{}
	}
	now := make(map[string]struct{}, len(u.Symbols))
	for _, s := range u.Symbols {
		now[s] = struct{}{}
		if _, ok := before[s]; !ok {
			added = append(added, s)
		}
	}
	for _, s := range prev.Symbols {
		if _, ok := now[s]; !ok {
			removed = append(removed, s)
		}
	}
	return added, removed
}
