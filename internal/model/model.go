// Package model содержит доменные сущности архива тиражей Mark Six.
package model

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Scalar хранит необязательное скалярное значение из ответа удалённого API.
// Строки сохраняются как есть, числа в виде исходного литерала, null даёт Valid == false.
type Scalar struct {
	Text  string
	Valid bool
}

// NewScalar создаёт заполненное значение.
func NewScalar(text string) Scalar {
	return Scalar{Text: text, Valid: true}
}

// UnmarshalJSON разбирает строку, число, логическое значение или null.
// Объект или массив на месте скаляра считается отсутствующим значением.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || data[0] == '{' || data[0] == '[' {
		*s = Scalar{}
		return nil
	}

	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = NewScalar(v)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*s = NewScalar(n.String())
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*s = NewScalar(strconv.FormatBool(b))
	return nil
}

// MarshalJSON возвращает null для пустого значения и строку для заполненного.
func (s Scalar) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Text)
}

// String возвращает текст значения или пустую строку.
func (s Scalar) String() string {
	if !s.Valid {
		return ""
	}
	return s.Text
}

// RawPool описывает пул ставок тиража в ответе удалённого API.
type RawPool struct {
	Sell                 Scalar `json:"sell"`
	Status               Scalar `json:"status"`
	TotalInvestment      Scalar `json:"totalInvestment"`
	Jackpot              Scalar `json:"jackpot"`
	UnitBet              Scalar `json:"unitBet"`
	EstimatedPrize       Scalar `json:"estimatedPrize"`
	DerivedFirstPrizeDiv Scalar `json:"derivedFirstPrizeDiv"`
}

// RawResult описывает выпавшие номера тиража.
type RawResult struct {
	DrawnNo  []Scalar `json:"drawnNo"`
	XDrawnNo Scalar   `json:"xDrawnNo"`
}

// RawDraw описывает тираж в том виде, в котором его возвращает удалённый API.
// Все поля необязательны.
type RawDraw struct {
	ID             Scalar     `json:"id"`
	Year           Scalar     `json:"year"`
	No             Scalar     `json:"no"`
	OpenDate       Scalar     `json:"openDate"`
	CloseDate      Scalar     `json:"closeDate"`
	DrawDate       Scalar     `json:"drawDate"`
	Status         Scalar     `json:"status"`
	SnowballCode   Scalar     `json:"snowballCode"`
	SnowballNameEn Scalar     `json:"snowballName_en"`
	SnowballNameCh Scalar     `json:"snowballName_ch"`
	LotteryPool    *RawPool   `json:"lotteryPool"`
	DrawResult     *RawResult `json:"drawResult"`
}

// Key возвращает идентификатор тиража.
func (d RawDraw) Key() DrawKey {
	return NewDrawKey(d.Year.String(), d.No.String())
}

// StatusResult означает, что тираж завершён и результат опубликован.
const StatusResult = "Result"

// MainNumbers задаёт количество основных номеров в строке архива.
const MainNumbers = 6

// Columns перечисляет поля архива в порядке записи.
var Columns = []string{
	"year",
	"no",
	"drawDate",
	"closeDate",
	"openDate",
	"status",
	"snowballCode",
	"snowballName_ch",
	"poolSell",
	"poolTotalInvestment",
	"poolJackpot",
	"poolEstimatedPrize",
	"poolDerivedFirstPrizeDiv",
	"drawn1",
	"drawn2",
	"drawn3",
	"drawn4",
	"drawn5",
	"drawn6",
	"special",
}

// Draw представляет строку архива: один завершённый тираж.
// Отсутствующие значения хранятся как пустые строки.
type Draw struct {
	Year                     string
	No                       string
	DrawDate                 string
	CloseDate                string
	OpenDate                 string
	Status                   string
	SnowballCode             string
	SnowballName             string
	PoolSell                 string
	PoolTotalInvestment      string
	PoolJackpot              string
	PoolEstimatedPrize       string
	PoolDerivedFirstPrizeDiv string
	Drawn                    [MainNumbers]string
	Special                  string
}

// Key возвращает идентификатор тиража.
func (d Draw) Key() DrawKey {
	return NewDrawKey(d.Year, d.No)
}

// Record возвращает значения полей в порядке Columns.
func (d Draw) Record() []string {
	rec := []string{
		d.Year,
		d.No,
		d.DrawDate,
		d.CloseDate,
		d.OpenDate,
		d.Status,
		d.SnowballCode,
		d.SnowballName,
		d.PoolSell,
		d.PoolTotalInvestment,
		d.PoolJackpot,
		d.PoolEstimatedPrize,
		d.PoolDerivedFirstPrizeDiv,
	}
	rec = append(rec, d.Drawn[:]...)
	return append(rec, d.Special)
}

// DrawFromFields собирает строку архива по имени поля. Неизвестные поля пропускаются.
func DrawFromFields(get func(name string) string) Draw {
	d := Draw{
		Year:                     get("year"),
		No:                       get("no"),
		DrawDate:                 get("drawDate"),
		CloseDate:                get("closeDate"),
		OpenDate:                 get("openDate"),
		Status:                   get("status"),
		SnowballCode:             get("snowballCode"),
		SnowballName:             get("snowballName_ch"),
		PoolSell:                 get("poolSell"),
		PoolTotalInvestment:      get("poolTotalInvestment"),
		PoolJackpot:              get("poolJackpot"),
		PoolEstimatedPrize:       get("poolEstimatedPrize"),
		PoolDerivedFirstPrizeDiv: get("poolDerivedFirstPrizeDiv"),
		Special:                  get("special"),
	}
	for i := range d.Drawn {
		d.Drawn[i] = get("drawn" + strconv.Itoa(i+1))
	}
	return d
}

// DrawKey идентифицирует тираж парой (год, номер тиража).
type DrawKey struct {
	Year string
	No   string
}

// NewDrawKey приводит год и номер к каноническому виду: "007" и "7" совпадают.
func NewDrawKey(year, no string) DrawKey {
	return DrawKey{Year: canonicalID(year), No: canonicalID(no)}
}

func canonicalID(v string) string {
	v = strings.TrimSpace(v)
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return v
}

// DrawJSON описывает тираж в ответе API чтения.
type DrawJSON struct {
	Year                     int    `json:"year"`
	No                       int    `json:"no"`
	DrawDate                 string `json:"drawDate"`
	CloseDate                string `json:"closeDate"`
	OpenDate                 string `json:"openDate"`
	Status                   string `json:"status"`
	SnowballCode             string `json:"snowballCode"`
	SnowballName             string `json:"snowballName_ch"`
	PoolSell                 string `json:"poolSell"`
	PoolTotalInvestment      string `json:"poolTotalInvestment"`
	PoolJackpot              string `json:"poolJackpot"`
	PoolEstimatedPrize       string `json:"poolEstimatedPrize"`
	PoolDerivedFirstPrizeDiv string `json:"poolDerivedFirstPrizeDiv"`
	Numbers                  []int  `json:"numbers"`
	Special                  *int   `json:"special"`
}

// JSON преобразует строку архива к виду API: номера как целые, пустые ячейки опущены.
func (d Draw) JSON() DrawJSON {
	numbers := make([]int, 0, MainNumbers)
	for _, v := range d.Drawn {
		if n, ok := atoi(v); ok {
			numbers = append(numbers, n)
		}
	}

	var special *int
	if n, ok := atoi(d.Special); ok {
		special = &n
	}

	year, _ := atoi(d.Year)
	no, _ := atoi(d.No)

	return DrawJSON{
		Year:                     year,
		No:                       no,
		DrawDate:                 d.DrawDate,
		CloseDate:                d.CloseDate,
		OpenDate:                 d.OpenDate,
		Status:                   d.Status,
		SnowballCode:             d.SnowballCode,
		SnowballName:             d.SnowballName,
		PoolSell:                 d.PoolSell,
		PoolTotalInvestment:      d.PoolTotalInvestment,
		PoolJackpot:              d.PoolJackpot,
		PoolEstimatedPrize:       d.PoolEstimatedPrize,
		PoolDerivedFirstPrizeDiv: d.PoolDerivedFirstPrizeDiv,
		Numbers:                  numbers,
		Special:                  special,
	}
}

func atoi(v string) (int, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
