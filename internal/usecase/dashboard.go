package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type Dashboard struct {
	LeadsByStage          map[entity.LeadStage]int `json:"leads_by_stage"`
	TotalLeads            int                      `json:"total_leads"`
	LeadsLast30Days       int                      `json:"leads_last_30_days"`
	ConversionRate        float64                  `json:"conversion_rate"`
	ActiveStudents        int                      `json:"active_students"`
	ReceivedThisMonthCent int                      `json:"received_this_month_cents"`
	OverduePayments       int                      `json:"overdue_payments"`
	GeneratedAt           time.Time                `json:"generated_at"`
}

type DashboardUseCase struct {
	Leads    entity.LeadRepositoryInterface
	Students entity.StudentRepositoryInterface
	Payments entity.PaymentRepositoryInterface
	Now      func() time.Time
}

func NewDashboardUseCase(leads entity.LeadRepositoryInterface, students entity.StudentRepositoryInterface, payments entity.PaymentRepositoryInterface) *DashboardUseCase {
	return &DashboardUseCase{Leads: leads, Students: students, Payments: payments, Now: time.Now}
}

func (uc *DashboardUseCase) GetDashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	org := actor.OrganizationID
	now := uc.Now()

	byStage, err := uc.Leads.CountByStage(ctx, org)
	if err != nil {
		return nil, dbError("failed to count leads", err)
	}
	d := &Dashboard{LeadsByStage: make(map[entity.LeadStage]int, len(entity.LeadStages)), GeneratedAt: now}
	for _, st := range entity.LeadStages {
		d.LeadsByStage[st] = byStage[st]
		d.TotalLeads += byStage[st]
	}
	d.ConversionRate = ConversionRate(byStage)

	if d.LeadsLast30Days, err = uc.Leads.CountCreatedSince(ctx, org, now.AddDate(0, 0, -30)); err != nil {
		return nil, dbError("failed to count recent leads", err)
	}
	if d.ActiveStudents, err = uc.Students.CountActive(ctx, org); err != nil {
		return nil, dbError("failed to count students", err)
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if d.ReceivedThisMonthCent, err = uc.Payments.SumReceivedBetween(ctx, org, monthStart, now); err != nil {
		return nil, dbError("failed to sum payments", err)
	}
	if d.OverduePayments, err = uc.Payments.CountOverdue(ctx, org); err != nil {
		return nil, dbError("failed to count overdue payments", err)
	}
	return d, nil
}

// ConversionRate = ganhos / (ganhos + perdidos); leads ainda em aberto não entram na conta.
func ConversionRate(byStage map[entity.LeadStage]int) float64 {
	won := byStage[entity.LeadStageWon]
	closed := won + byStage[entity.LeadStageLost]
	if closed == 0 {
		return 0
	}
	return float64(won) / float64(closed)
}
