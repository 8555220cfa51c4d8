package service

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/marksix/internal/model"
	"github.com/mmeshcher/marksix/internal/normalize"
)

// SortDraws упорядочивает строки по дате тиража, затем по году и номеру.
// Строки без корректной даты считаются самыми ранними.
func SortDraws(rows []model.Draw) {
	dates := make(map[string]time.Time, len(rows))
	dateOf := func(v string) time.Time {
		if dt, ok := dates[v]; ok {
			return dt
		}
		dt, _ := normalize.ParseDate(v)
		dates[v] = dt
		return dt
	}

	slices.SortStableFunc(rows, func(a, b model.Draw) int {
		if c := dateOf(a.DrawDate).Compare(dateOf(b.DrawDate)); c != 0 {
			return c
		}
		if c := compareID(a.Year, b.Year); c != 0 {
			return c
		}
		return compareID(a.No, b.No)
	})
}

func compareID(a, b string) int {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}
