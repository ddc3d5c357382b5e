// Package importer mapeia colunas de planilha nos schemas de lead/aluno e lê arquivos CSV.
package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize tira acentos, passa para minúsculas e troca o que não for letra ou dígito
// por um único espaço: "  Data de Nascimento* " -> "data de nascimento".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Levenshtein devolve a distância de edição entre a e b, contada em runas.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

const containmentBoost = 0.85

// Similarity compara duas strings já normalizadas e devolve uma razão em [0, 1].
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	longest := max(len([]rune(a)), len([]rune(b)))
	ratio := 1 - float64(Levenshtein(a, b))/float64(longest)

	// "emailcontato" contém "email": cabeçalho colado ainda ganha o piso
	if strings.Contains(a, b) || strings.Contains(b, a) {
		ratio = max(ratio, containmentBoost)
	}
	return ratio
}
