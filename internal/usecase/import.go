package usecase

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"github.com/xavierca1/ligue-crm/internal/importer"
)

const (
	previewRows   = 5
	maxImportRows = 5000
)

type ImportPreview struct {
	Schema  importer.Schema        `json:"schema"`
	Headers []string               `json:"headers"`
	Mapping importer.MappingResult `json:"mapping"`
	Sample  [][]string             `json:"sample"`
	Total   int                    `json:"total_rows"`
}

type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

type ImportResult struct {
	Created int        `json:"created"`
	Skipped int        `json:"skipped"`
	Errors  []RowError `json:"errors"`
}

type ImportUseCase struct {
	Leads     LeadService
	Students  StudentService
	Threshold float64
}

func NewImportUseCase(leads LeadService, students StudentService) *ImportUseCase {
	return &ImportUseCase{Leads: leads, Students: students, Threshold: importer.DefaultThreshold}
}

func (uc *ImportUseCase) readSheet(kind string, r io.Reader) (importer.Schema, *importer.Sheet, error) {
	schema, ok := importer.SchemaByName(kind)
	if !ok {
		return importer.Schema{}, nil, validationFailed([]ValidationError{{"kind", "must be lead or student"}})
	}
	sheet, err := importer.ReadCSV(r)
	if err != nil {
		if errors.Is(err, importer.ErrEmptySheet) {
			return schema, nil, validationFailed([]ValidationError{{"file", "planilha vazia"}})
		}
		return schema, nil, validationFailed([]ValidationError{{"file", "não foi possível ler o CSV: " + err.Error()}})
	}
	if len(sheet.Rows) > maxImportRows {
		return schema, nil, validationFailed([]ValidationError{{"file", "máximo de 5000 linhas por importação"}})
	}
	return schema, sheet, nil
}

// Preview sugere o mapeamento coluna -> campo para o usuário revisar.
func (uc *ImportUseCase) Preview(ctx context.Context, actor Actor, kind string, r io.Reader) (*ImportPreview, error) {
	schema, sheet, err := uc.readSheet(kind, r)
	if err != nil {
		return nil, err
	}
	return &ImportPreview{
		Schema:  schema,
		Headers: sheet.Headers,
		Mapping: importer.MapColumns(sheet.Headers, sheet.Rows, schema, uc.Threshold),
		Sample:  sheet.Sample(previewRows),
		Total:   len(sheet.Rows),
	}, nil
}

// Execute aplica o mapeamento (header -> campo). Sem mapeamento usa a sugestão automática.
// Erros por linha são coletados; a importação não para no primeiro.
func (uc *ImportUseCase) Execute(ctx context.Context, actor Actor, kind string, r io.Reader, mapping map[string]string) (*ImportResult, error) {
	schema, sheet, err := uc.readSheet(kind, r)
	if err != nil {
		return nil, err
	}

	columns, err := resolveMapping(schema, sheet, mapping, uc.Threshold)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []RowError{}}
	for i, row := range sheet.Rows {
		values := make(map[string]string, len(columns))
		for idx, field := range columns {
			if idx < len(row) {
				values[field] = strings.TrimSpace(row[idx])
			}
		}
		if allEmpty(values) {
			continue
		}

		// linha 1 é o cabeçalho
		rowNumber := i + 2
		if err := uc.importRow(ctx, actor, schema.Name, values); err != nil {
			if DomainCode(err) == CodeConflict {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, RowError{Row: rowNumber, Error: err.Error()})
			continue
		}
		result.Created++
	}

	log.Printf("📊 Importação de %s (org %s): %d criados, %d ignorados, %d erros",
		kind, actor.OrganizationID, result.Created, result.Skipped, len(result.Errors))
	return result, nil
}

func (uc *ImportUseCase) importRow(ctx context.Context, actor Actor, kind string, v map[string]string) error {
	switch kind {
	case importer.LeadSchema.Name:
		_, err := uc.Leads.CreateLead(ctx, actor, CreateLeadInput{
			Name:     v["name"],
			Email:    v["email"],
			Phone:    v["phone"],
			CPF:      v["cpf"],
			Source:   firstNonEmpty(v["source"], "importacao"),
			Interest: v["interest"],
			Notes:    v["notes"],
			Tags:     splitTags(v["tags"]),
		})
		return err
	case importer.StudentSchema.Name:
		_, err := uc.Students.CreateStudent(ctx, actor, CreateStudentInput{
			Name:      v["name"],
			Email:     v["email"],
			Phone:     v["phone"],
			CPF:       v["cpf"],
			BirthDate: v["birth_date"],
			ZipCode:   v["zip_code"],
			Street:    v["street"],
			Number:    v["number"],
			District:  v["district"],
			City:      v["city"],
			State:     v["state"],
		})
		return err
	}
	return validationFailed([]ValidationError{{"kind", "must be lead or student"}})
}

func resolveMapping(schema importer.Schema, sheet *importer.Sheet, byHeader map[string]string, threshold float64) (map[int]string, error) {
	if len(byHeader) == 0 {
		return importer.MapColumns(sheet.Headers, sheet.Rows, schema, threshold).Mapping(), nil
	}

	columns := make(map[int]string, len(byHeader))
	used := make(map[string]bool, len(byHeader))
	var errs []ValidationError
	for idx, header := range sheet.Headers {
		field, ok := byHeader[header]
		if !ok || field == "" {
			continue
		}
		if _, known := schema.Field(field); !known {
			errs = append(errs, ValidationError{header, "campo desconhecido: " + field})
			continue
		}
		if used[field] {
			errs = append(errs, ValidationError{header, "campo mapeado mais de uma vez: " + field})
			continue
		}
		used[field] = true
		columns[idx] = field
	}
	for _, f := range schema.Fields {
		if f.Required && !used[f.Name] {
			errs = append(errs, ValidationError{f.Name, "campo obrigatório sem coluna"})
		}
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}
	return columns, nil
}

func allEmpty(values map[string]string) bool {
	for _, v := range values {
		if v != "" {
			return false
		}
	}
	return true
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ';' || r == '|' }) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, strings.ToLower(t))
		}
	}
	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
