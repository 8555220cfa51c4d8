// Package normalize приводит тиражи из удалённого API к строкам архива.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/marksix/internal/model"
)

const dateLayout = "2006-01-02"

// Eligible сообщает, можно ли сохранить тираж: результат опубликован и есть хотя бы один номер.
func Eligible(raw model.RawDraw) bool {
	if raw.Status.String() != model.StatusResult {
		return false
	}
	return raw.DrawResult != nil && len(raw.DrawResult.DrawnNo) > 0
}

// Filter оставляет только пригодные для хранения тиражи, сохраняя порядок.
func Filter(raws []model.RawDraw) []model.RawDraw {
	out := make([]model.RawDraw, 0, len(raws))
	for _, raw := range raws {
		if Eligible(raw) {
			out = append(out, raw)
		}
	}
	return out
}

// Draw преобразует тираж в строку архива. Пригодность не проверяется.
func Draw(raw model.RawDraw) model.Draw {
	d := model.Draw{
		Year:         raw.Year.String(),
		No:           raw.No.String(),
		DrawDate:     raw.DrawDate.String(),
		CloseDate:    raw.CloseDate.String(),
		OpenDate:     raw.OpenDate.String(),
		Status:       raw.Status.String(),
		SnowballCode: raw.SnowballCode.String(),
		SnowballName: raw.SnowballNameCh.String(),
	}

	if pool := raw.LotteryPool; pool != nil {
		d.PoolSell = pool.Sell.String()
		d.PoolTotalInvestment = pool.TotalInvestment.String()
		d.PoolJackpot = pool.Jackpot.String()
		d.PoolEstimatedPrize = pool.EstimatedPrize.String()
		d.PoolDerivedFirstPrizeDiv = pool.DerivedFirstPrizeDiv.String()
	}

	if res := raw.DrawResult; res != nil {
		d.Drawn = MainNumbers(res.DrawnNo)
		d.Special = Number(res.XDrawnNo)
	}

	return d
}

// MainNumbers возвращает ровно шесть основных номеров в исходном порядке.
// Недостающие заполняются пустыми строками, лишние отбрасываются.
func MainNumbers(values []model.Scalar) [model.MainNumbers]string {
	var out [model.MainNumbers]string
	for i := 0; i < len(values) && i < model.MainNumbers; i++ {
		out[i] = Number(values[i])
	}
	return out
}

// Number форматирует номер шара двумя цифрами с ведущим нулём.
// Нечисловое или отсутствующее значение даёт пустую строку.
func Number(v model.Scalar) string {
	if !v.Valid {
		return ""
	}
	text := strings.TrimSpace(v.Text)

	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		f, ferr := strconv.ParseFloat(text, 64)
		if ferr != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
			return ""
		}
		if f >= math.MaxInt64 || f < math.MinInt64 {
			return ""
		}
		n = int64(f)
	}

	return fmt.Sprintf("%02d", n)
}

// ParseDate извлекает календарную дату из строки в формате ISO 8601.
// Если строка не разбирается целиком, пробуются первые десять символов как YYYY-MM-DD.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", dateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			return civilDate(t), true
		}
	}

	if len(value) >= len(dateLayout) {
		if t, err := time.Parse(dateLayout, value[:len(dateLayout)]); err == nil {
			return civilDate(t), true
		}
	}

	return time.Time{}, false
}

// FormatDate форматирует дату как YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
