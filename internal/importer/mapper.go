package importer

const (
	DefaultThreshold = 0.6

	nameWeight    = 0.8
	patternWeight = 0.2
	exactFloor    = 0.9
	maxSamples    = 20
)

type ColumnMapping struct {
	Header       string    `json:"header"`
	Index        int       `json:"index"`
	Field        string    `json:"field"`
	Confidence   float64   `json:"confidence"`
	InferredType ValueType `json:"inferred_type"`
}

type MappingResult struct {
	Mappings        []ColumnMapping `json:"mappings"`
	Unmapped        []string        `json:"unmapped"`
	MissingRequired []string        `json:"missing_required"`
}

// Mapping devolve índice do cabeçalho -> nome do campo, no formato que o Execute consome.
func (r MappingResult) Mapping() map[int]string {
	m := make(map[int]string, len(r.Mappings))
	for _, c := range r.Mappings {
		m[c.Index] = c.Field
	}
	return m
}

// Score combina a similaridade do nome com o padrão dos valores para um par cabeçalho/campo.
func Score(header string, samples []string, f Field) (float64, ValueType) {
	h := Normalize(header)
	inferred := InferColumnType(samples)

	nameScore, exact := 0.0, false
	for _, candidate := range fieldNames(f) {
		c := Normalize(candidate)
		if c == "" {
			continue
		}
		if h == c {
			exact = true
		}
		nameScore = max(nameScore, Similarity(h, c))
	}

	bonus := patternBonus(inferred, f.Type, hasValues(samples))
	confidence := nameWeight*nameScore + patternWeight*bonus
	if exact {
		confidence = max(confidence, exactFloor)
	}
	return confidence, inferred
}

func patternBonus(inferred, expected ValueType, sampled bool) float64 {
	if !sampled || inferred == TypeText || expected == TypeText {
		return 0.5
	}
	if compatible(inferred, expected) {
		return 1
	}
	return 0
}

// MapColumns atribui, cabeçalho a cabeçalho, o melhor campo ainda livre com nota >= threshold.
// É guloso: um cabeçalho anterior pode ficar com um campo que serviria melhor a um posterior.
func MapColumns(headers []string, rows [][]string, schema Schema, threshold float64) MappingResult {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	claimed := make(map[string]bool, len(schema.Fields))
	result := MappingResult{Mappings: []ColumnMapping{}, Unmapped: []string{}, MissingRequired: []string{}}

	for idx, header := range headers {
		samples := columnSamples(rows, idx)

		bestField, bestScore := "", 0.0
		var bestType ValueType
		for _, f := range schema.Fields {
			if claimed[f.Name] {
				continue
			}
			score, inferred := Score(header, samples, f)
			if score >= threshold && score > bestScore {
				bestField, bestScore, bestType = f.Name, score, inferred
			}
		}

		if bestField == "" {
			result.Unmapped = append(result.Unmapped, header)
			continue
		}
		claimed[bestField] = true
		result.Mappings = append(result.Mappings, ColumnMapping{
			Header:       header,
			Index:        idx,
			Field:        bestField,
			Confidence:   bestScore,
			InferredType: bestType,
		})
	}

	for _, f := range schema.Fields {
		if f.Required && !claimed[f.Name] {
			result.MissingRequired = append(result.MissingRequired, f.Name)
		}
	}
	return result
}

func fieldNames(f Field) []string {
	names := make([]string, 0, len(f.Aliases)+2)
	names = append(names, f.Name, f.Label)
	return append(names, f.Aliases...)
}

func columnSamples(rows [][]string, idx int) []string {
	samples := make([]string, 0, maxSamples)
	for _, row := range rows {
		if len(samples) == maxSamples {
			break
		}
		if idx < len(row) {
			samples = append(samples, row[idx])
		}
	}
	return samples
}

func hasValues(samples []string) bool {
	for _, s := range samples {
		if s != "" {
			return true
		}
	}
	return false
}
