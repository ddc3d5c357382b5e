package entity

import "errors"

var (
	ErrNotFound       = errors.New("registro não encontrado")
	ErrDuplicate      = errors.New("registro duplicado")
	ErrInvalidCPF     = errors.New("cpf inválido")
	ErrInactiveRecord = errors.New("registro inativo")
)
