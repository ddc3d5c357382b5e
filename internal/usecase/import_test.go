package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-crm/internal/entity"
)

const leadsCSV = `Nome Completo;E-mail;Celular;Origem
Ana Lima;ana@x.com;(11) 98888-7777;Instagram
Bruno;bruno@x.com;(21) 97777-6666;
;;;
Carla;carla-invalido;;site
`

func TestImportPreviewSuggestsMapping(t *testing.T) {
	uc := NewImportUseCase(new(MockLeadService), new(MockStudentService))

	preview, err := uc.Preview(context.Background(), agentActor, "lead", strings.NewReader(leadsCSV))

	require.NoError(t, err)
	assert.Equal(t, []string{"Nome Completo", "E-mail", "Celular", "Origem"}, preview.Headers)
	mapping := preview.Mapping.Mapping()
	assert.Equal(t, "name", mapping[0])
	assert.Equal(t, "email", mapping[1])
	assert.Equal(t, "phone", mapping[2])
	assert.Equal(t, "source", mapping[3])
	assert.Equal(t, 4, preview.Total)
}

func TestImportExecuteCollectsRowErrors(t *testing.T) {
	leads := new(MockLeadService)
	leads.On("CreateLead", mock.Anything, agentActor, mock.MatchedBy(func(in CreateLeadInput) bool { return in.Email == "ana@x.com" })).
		Return(&entity.Lead{ID: "l-1"}, nil)
	leads.On("CreateLead", mock.Anything, agentActor, mock.MatchedBy(func(in CreateLeadInput) bool { return in.Email == "bruno@x.com" })).
		Return(nil, conflict("lead já cadastrado com este email"))
	leads.On("CreateLead", mock.Anything, agentActor, mock.MatchedBy(func(in CreateLeadInput) bool { return in.Email == "carla-invalido" })).
		Return(nil, validationFailed([]ValidationError{{"email", "is invalid"}}))

	uc := NewImportUseCase(leads, nil)

	result, err := uc.Execute(context.Background(), agentActor, "lead", strings.NewReader(leadsCSV), map[string]string{
		"Nome Completo": "name",
		"E-mail":        "email",
		"Celular":       "phone",
		"Origem":        "source",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 5, result.Errors[0].Row)
	leads.AssertNumberOfCalls(t, "CreateLead", 3)
}

func TestImportExecuteDefaultsSource(t *testing.T) {
	leads := new(MockLeadService)
	leads.On("CreateLead", mock.Anything, mock.Anything, mock.MatchedBy(func(in CreateLeadInput) bool {
		return in.Source == "importacao" && len(in.Tags) == 2
	})).Return(&entity.Lead{}, nil)

	uc := NewImportUseCase(leads, nil)
	csv := "nome,email,tags\nAna,ana@x.com,\"vip, estetica\"\n"

	result, err := uc.Execute(context.Background(), agentActor, "lead", strings.NewReader(csv), map[string]string{
		"nome": "name", "email": "email", "tags": "tags",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestImportExecuteRejectsBadMapping(t *testing.T) {
	uc := NewImportUseCase(new(MockLeadService), new(MockStudentService))

	_, err := uc.Execute(context.Background(), agentActor, "student", strings.NewReader("nome,doc\nAna,123\n"), map[string]string{
		"nome": "name",
		"doc":  "passport",
	})

	var de *DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, CodeValidation, de.Code)
	// campo desconhecido + cpf obrigatório sem coluna
	assert.Len(t, de.Fields, 2)
}

func TestImportUnknownKind(t *testing.T) {
	uc := NewImportUseCase(nil, nil)

	_, err := uc.Preview(context.Background(), agentActor, "produto", strings.NewReader("a\n1\n"))

	assert.Equal(t, CodeValidation, DomainCode(err))
}
