package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-crm/internal/entity"
)

func TestRecordConsentWritesAudit(t *testing.T) {
	repo := new(MockComplianceRepository)
	repo.On("SaveConsent", mock.Anything, mock.MatchedBy(func(c *entity.Consent) bool {
		return c.SubjectID == "lead-1" && c.Granted && c.Version == "v1" && c.OrganizationID == testOrg
	})).Return(nil)
	repo.On("WriteAudit", mock.Anything, mock.MatchedBy(func(a *entity.AuditLog) bool {
		return a.Action == "consent.recorded" && a.EntityID == "lead-1" && a.Metadata != "{}"
	})).Return(nil)

	uc := NewComplianceUseCase(repo, nil, nil, nil)

	c, err := uc.RecordConsent(context.Background(), agentActor, RecordConsentInput{
		SubjectType: entity.SubjectLead,
		SubjectID:   "lead-1",
		Purpose:     entity.PurposeMarketing,
		Granted:     true,
	})

	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	repo.AssertExpectations(t)
}

func TestRecordConsentValidatesPurpose(t *testing.T) {
	uc := NewComplianceUseCase(new(MockComplianceRepository), nil, nil, nil)

	_, err := uc.RecordConsent(context.Background(), agentActor, RecordConsentInput{
		SubjectType: entity.SubjectLead,
		SubjectID:   "lead-1",
		Purpose:     "telemarketing",
	})

	assert.Equal(t, CodeValidation, DomainCode(err))
}

func TestHasConsent(t *testing.T) {
	revoked := time.Now()
	cases := []struct {
		name    string
		latest  *entity.Consent
		err     error
		want    bool
		wantErr bool
	}{
		{"concedido", &entity.Consent{Granted: true}, nil, true, false},
		{"negado", &entity.Consent{Granted: false}, nil, false, false},
		{"revogado", &entity.Consent{Granted: true, RevokedAt: &revoked}, nil, false, false},
		{"inexistente", nil, entity.ErrNotFound, false, false},
		{"erro de banco", nil, errors.New("boom"), false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(MockComplianceRepository)
			repo.On("LatestConsent", mock.Anything, testOrg, entity.SubjectLead, "lead-1", entity.PurposeMarketing).Return(tc.latest, tc.err)
			uc := NewComplianceUseCase(repo, nil, nil, nil)

			got, err := uc.HasConsent(context.Background(), testOrg, entity.SubjectLead, "lead-1", entity.PurposeMarketing)

			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantErr, err != nil)
		})
	}
}

func TestAuditSwallowsRepositoryErrors(t *testing.T) {
	repo := new(MockComplianceRepository)
	repo.On("WriteAudit", mock.Anything, mock.Anything).Return(errors.New("disk full"))
	uc := NewComplianceUseCase(repo, nil, nil, nil)

	assert.NotPanics(t, func() {
		uc.Audit(context.Background(), agentActor, "lead.created", entity.SubjectLead, "lead-1", map[string]any{"x": 1})
	})
}

func TestExportSubjectData(t *testing.T) {
	ctx := context.Background()
	student := &entity.Student{ID: "stu-1", OrganizationID: testOrg, Name: "João"}

	students := new(MockStudentRepository)
	students.On("FindByID", mock.Anything, testOrg, "stu-1").Return(student, nil)
	enrollments := new(MockEnrollmentRepository)
	enrollments.On("ListByStudent", mock.Anything, testOrg, "stu-1").Return([]*entity.Enrollment{{ID: "enr-1"}}, nil)
	payments := new(MockPaymentRepository)
	payments.On("ListByStudent", mock.Anything, testOrg, "stu-1").Return([]*entity.Payment{{ID: "pay_1"}}, nil)
	repo := new(MockComplianceRepository)
	repo.On("ListConsents", mock.Anything, testOrg, entity.SubjectStudent, "stu-1").Return([]*entity.Consent{{ID: "c-1"}}, nil)
	repo.On("ListAudit", mock.Anything, testOrg, entity.SubjectStudent, "stu-1", 500).Return([]*entity.AuditLog{}, nil)
	repo.On("WriteAudit", mock.Anything, mock.MatchedBy(func(a *entity.AuditLog) bool { return a.Action == "student.exported" })).Return(nil)

	uc := NewComplianceUseCase(repo, students, enrollments, payments)

	export, err := uc.ExportSubjectData(ctx, adminActor, "stu-1")

	require.NoError(t, err)
	assert.Equal(t, student, export.Student)
	assert.Len(t, export.Enrollments, 1)
	assert.Len(t, export.Payments, 1)
	assert.Len(t, export.Consents, 1)
	repo.AssertExpectations(t)
}

func TestListAuditLogsForbiddenForAgent(t *testing.T) {
	uc := NewComplianceUseCase(new(MockComplianceRepository), nil, nil, nil)

	_, err := uc.ListAuditLogs(context.Background(), agentActor, "lead", "lead-1", 10)

	assert.Equal(t, CodeForbidden, DomainCode(err))
}
