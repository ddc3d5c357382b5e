package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
)

var ErrEmptySheet = errors.New("planilha vazia")

// Sheet é a planilha lida, com todas as células como string.
type Sheet struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

func (s *Sheet) Sample(n int) [][]string {
	if n >= len(s.Rows) {
		return s.Rows
	}
	return s.Rows[:n]
}

// ReadCSV lê um CSV exportado. O Excel em pt-BR usa ';' como separador, então o delimitador
// é detectado pela linha de cabeçalho.
func ReadCSV(r io.Reader) (*Sheet, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler planilha: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrEmptySheet
	}

	df := dataframe.ReadCSV(bytes.NewReader(raw),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues([]string{}),
		dataframe.WithDelimiter(sniffDelimiter(raw)),
		dataframe.WithLazyQuotes(true),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("erro ao processar planilha: %w", df.Err)
	}

	records := df.Records()
	if len(records) == 0 {
		return nil, ErrEmptySheet
	}

	sheet := &Sheet{Headers: records[0], Rows: make([][]string, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make([]string, len(rec))
		for i, v := range rec {
			row[i] = strings.TrimSpace(v)
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet, nil
}

func sniffDelimiter(raw []byte) rune {
	firstLine := raw
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		firstLine = raw[:i]
	}
	if bytes.Count(firstLine, []byte(";")) > bytes.Count(firstLine, []byte(",")) {
		return ';'
	}
	return ','
}
