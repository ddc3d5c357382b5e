package entity

import "strings"

// NormalizeCPF mantém só os dígitos do CPF.
func NormalizeCPF(cpf string) string {
	var b strings.Builder
	b.Grow(11)
	for _, r := range cpf {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCPF confere tamanho, dígitos repetidos e os dois dígitos verificadores (módulo 11).
func ValidateCPF(cpf string) bool {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return false
	}

	allEqual := true
	for i := 1; i < 11; i++ {
		if digits[i] != digits[0] {
			allEqual = false
			break
		}
	}
	if allEqual {
		return false
	}

	return cpfCheckDigit(digits[:9]) == int(digits[9]-'0') &&
		cpfCheckDigit(digits[:10]) == int(digits[10]-'0')
}

func cpfCheckDigit(base string) int {
	sum := 0
	weight := len(base) + 1
	for i := 0; i < len(base); i++ {
		sum += int(base[i]-'0') * weight
		weight--
	}
	rest := (sum * 10) % 11
	if rest == 10 {
		return 0
	}
	return rest
}

// FormatCPF devolve 000.000.000-00, ou a entrada intacta se não tiver 11 dígitos.
func FormatCPF(cpf string) string {
	d := NormalizeCPF(cpf)
	if len(d) != 11 {
		return cpf
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11]
}
