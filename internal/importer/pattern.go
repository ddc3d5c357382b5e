package importer

import (
	"regexp"
	"strings"
)

type ValueType string

const (
	TypeEmail  ValueType = "email"
	TypePhone  ValueType = "phone"
	TypeDate   ValueType = "date"
	TypeMoney  ValueType = "money"
	TypeNumber ValueType = "number"
	TypeCPF    ValueType = "cpf"
	TypeText   ValueType = "text"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	cpfPattern    = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	phonePattern  = regexp.MustCompile(`^(\+?55\s?)?(\(?\d{2}\)?\s?)?9?\d{4}[-\s]?\d{4}$`)
	datePattern   = regexp.MustCompile(`^(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4}|\d{4}-\d{2}-\d{2}(T.*)?)$`)
	moneyPattern  = regexp.MustCompile(`^(R\$\s?)?-?\d{1,3}(\.\d{3})*,\d{2}$|^R\$\s?-?\d+([.,]\d{1,2})?$`)
	numberPattern = regexp.MustCompile(`^-?\d+([.,]\d+)?$`)
)

// ClassifyValue adivinha o tipo de uma célula da planilha.
// A ordem importa: um CPF formatado pareceria data ou número.
func ClassifyValue(v string) ValueType {
	v = strings.TrimSpace(v)
	switch {
	case v == "":
		return TypeText
	case emailPattern.MatchString(v):
		return TypeEmail
	case cpfPattern.MatchString(v):
		return TypeCPF
	case datePattern.MatchString(v):
		return TypeDate
	case moneyPattern.MatchString(v):
		return TypeMoney
	case phonePattern.MatchString(v) && digitCount(v) >= 8:
		return TypePhone
	case numberPattern.MatchString(v):
		return TypeNumber
	}
	return TypeText
}

const majorityShare = 0.6

// InferColumnType devolve o tipo dominante entre as amostras não vazias, ou texto quando
// nenhum tipo chega à maioria.
func InferColumnType(samples []string) ValueType {
	counts := make(map[ValueType]int)
	total := 0
	for _, s := range samples {
		if strings.TrimSpace(s) == "" {
			continue
		}
		counts[ClassifyValue(s)]++
		total++
	}
	if total == 0 {
		return TypeText
	}

	best, bestCount := TypeText, 0
	for t, c := range counts {
		if c > bestCount || (c == bestCount && t < best) {
			best, bestCount = t, c
		}
	}
	if float64(bestCount)/float64(total) < majorityShare {
		return TypeText
	}
	return best
}

// compatible aceita como CPF um valor de 11 dígitos sem pontuação que caiu como telefone ou número.
func compatible(inferred, expected ValueType) bool {
	if inferred == expected {
		return true
	}
	if expected == TypeCPF && (inferred == TypeNumber || inferred == TypePhone) {
		return true
	}
	if expected == TypeNumber && inferred == TypeMoney {
		return true
	}
	return false
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
