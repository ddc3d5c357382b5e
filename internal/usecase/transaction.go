package usecase

import (
	"context"
	"fmt"
	"log"
)

// Transaction é uma saga simples: cada operação pode registrar a compensação que a desfaz.
// Quando uma operação falha, as compensações das anteriores rodam em ordem reversa.
type Transaction struct {
	operations    []Operation
	compensations []Compensation
}

type Operation struct {
	Name string
	Fn   func(context.Context) error
}

type Compensation struct {
	Name string
	Fn   func(context.Context) error
}

func NewTransaction() *Transaction {
	return &Transaction{
		operations:    []Operation{},
		compensations: []Compensation{},
	}
}

// AddOperation registra um passo. A compensação de índice i desfaz a operação de índice i;
// passe nil em AddCompensation quando o passo não tem o que desfazer.
func (t *Transaction) AddOperation(name string, fn func(context.Context) error) {
	t.operations = append(t.operations, Operation{name, fn})
}

func (t *Transaction) AddCompensation(name string, fn func(context.Context) error) {
	t.compensations = append(t.compensations, Compensation{name, fn})
}

func (t *Transaction) Execute(ctx context.Context) error {
	for i, op := range t.operations {
		if err := op.Fn(ctx); err != nil {
			t.rollback(ctx, i)
			return fmt.Errorf("operation '%s' failed: %w (rolled back %d operations)", op.Name, err, i)
		}
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context, failedAtIndex int) {
	for i := failedAtIndex - 1; i >= 0; i-- {
		if i >= len(t.compensations) || t.compensations[i].Fn == nil {
			continue
		}
		comp := t.compensations[i]
		if err := comp.Fn(ctx); err != nil {
			log.Printf("⚠️ WARNING: Compensation '%s' failed: %v (inconsistency risk!)", comp.Name, err)
		}
	}
}
