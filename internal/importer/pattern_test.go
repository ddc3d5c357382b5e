package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyValue(t *testing.T) {
	cases := map[string]ValueType{
		"joao@example.com":  TypeEmail,
		"(11) 98888-7777":   TypePhone,
		"+55 11 98888-7777": TypePhone,
		"15/05/1990":        TypeDate,
		"1990-05-15":        TypeDate,
		"R$ 1.234,56":       TypeMoney,
		"1.234,56":          TypeMoney,
		"42":                TypeNumber,
		"529.982.247-25":    TypeCPF,
		"Maria da Silva":    TypeText,
		"   ":               TypeText,
	}

	for value, want := range cases {
		assert.Equal(t, want, ClassifyValue(value), "value %q", value)
	}
}

func TestInferColumnType(t *testing.T) {
	assert.Equal(t, TypeEmail, InferColumnType([]string{"a@b.com", "c@d.com", "sem email"}))
	assert.Equal(t, TypeText, InferColumnType([]string{"a@b.com", "sem email"}))
	assert.Equal(t, TypeText, InferColumnType([]string{"", " "}))
	assert.Equal(t, TypeDate, InferColumnType([]string{"01/02/1990", "", "1985-12-31"}))
}

func TestCompatibleAcceptsUnformattedCPF(t *testing.T) {
	assert.True(t, compatible(TypePhone, TypeCPF))
	assert.True(t, compatible(TypeNumber, TypeCPF))
	assert.False(t, compatible(TypeEmail, TypeCPF))
}
