// Package repository содержит хранилище архива тиражей: CSV-файл и необязательное зеркало в PostgreSQL.
package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/mmeshcher/marksix/internal/model"
)

// ErrBadHeader возвращается, если файл архива не содержит обязательных колонок year и no.
var ErrBadHeader = errors.New("csv header has no year/no columns")

// CSVStore хранит архив тиражей в CSV-файле с фиксированным заголовком.
type CSVStore struct {
	path string
}

// NewCSVStore создаёт хранилище для указанного файла.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path возвращает путь к файлу архива.
func (s *CSVStore) Path() string {
	return s.path
}

// Load читает архив и строит множество идентификаторов тиражей.
// Отсутствующий файл означает пустой архив.
func (s *CSVStore) Load(ctx context.Context) ([]model.Draw, map[model.DrawKey]struct{}, error) {
	rows := []model.Draw{}
	keys := make(map[model.DrawKey]struct{})

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return rows, keys, nil
		}
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return rows, keys, nil
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = trimBOM(header[0])
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	if _, ok := index["year"]; !ok {
		return nil, nil, ErrBadHeader
	}
	if _, ok := index["no"]; !ok {
		return nil, nil, ErrBadHeader
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}

		d := model.DrawFromFields(func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return rec[i]
		})
		rows = append(rows, d)
		keys[d.Key()] = struct{}{}
	}

	return rows, keys, nil
}

// Save полностью перезаписывает архив. Данные пишутся во временный файл
// в том же каталоге и атомарно подменяют прежний файл.
func (s *CSVStore) Save(ctx context.Context, rows []model.Draw) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := WriteCSV(tmp, rows); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}

	committed = true
	return nil
}

// WriteCSV пишет заголовок и строки архива в порядке model.Columns.
func WriteCSV(w io.Writer, rows []model.Draw) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, d := range rows {
		if err := cw.Write(d.Record()); err != nil {
			return fmt.Errorf("write row %s/%s: %w", d.Year, d.No, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func trimBOM(s string) string {
	const bom = "\ufeff"
	if len(s) >= len(bom) && s[:len(bom)] == bom {
		return s[len(bom):]
	}
	return s
}
