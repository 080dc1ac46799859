package file

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/boundary-pipeline/internal/domain"
	"github.com/boundary-pipeline/internal/domain/repository"
)

type tableSource struct {
	logger *zap.Logger
}

// NewTableSource создает читатель CSV/XLSX справочников
func NewTableSource(logger *zap.Logger) repository.TableSource {
	return &tableSource{logger: logger}
}

func (s *tableSource) ReadTable(ctx context.Context, path string) (*domain.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	var (
		table *domain.Table
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = readXLSX(path)
	case ".csv", ".txt":
		table, err = readCSV(path)
	default:
		return nil, fmt.Errorf("unsupported table format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Table loaded",
		zap.String("path", path),
		zap.Int("columns", len(table.Header)),
		zap.Int("rows", len(table.Rows)))
	return table, nil
}

func readCSV(path string) (*domain.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	if sep := detectSeparator(data); sep != ',' {
		r.Comma = sep
	}

	header, err := r.Read()
	if err == io.EOF {
		return &domain.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}

	table := &domain.Table{Header: trimAll(header)}
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		table.Rows = append(table.Rows, trimAll(rec))
	}
	return table, nil
}

// detectSeparator выбирает ';' для CSV в формате Excel pt-BR
func detectSeparator(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(path string) (*domain.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &domain.Table{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s of %s: %w", sheets[0], path, err)
	}
	if len(rows) == 0 {
		return &domain.Table{}, nil
	}

	table := &domain.Table{Header: trimAll(rows[0])}
	for _, row := range rows[1:] {
		table.Rows = append(table.Rows, trimAll(row))
	}
	return table, nil
}

func trimAll(rec []string) []string {
	out := make([]string, len(rec))
	for i, v := range rec {
		out[i] = strings.TrimSpace(v)
	}
	return out
}
