package application

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/stockroom/internal/domain"
	"github.com/bnema/stockroom/internal/ports"
)

type ReportService struct {
	reports  ports.ReportQueries
	clock    ports.Clock
	location *time.Location
}

func NewReportService(reports ports.ReportQueries, clock ports.Clock, location *time.Location) *ReportService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if location == nil {
		location = time.UTC
	}

	return &ReportService{reports: reports, clock: clock, location: location}
}

func (s *ReportService) Stock(ctx context.Context, actor domain.Actor) ([]domain.TypeCount, error) {
	if err := actor.Require(domain.CapabilityReport); err != nil {
		return nil, err
	}

	counts, err := s.reports.FreeByType(ctx)
	if err != nil {
		return nil, fmt.Errorf("free stock: %w", err)
	}
	return counts, nil
}

// Daily aggregates the calendar day containing day, in the report
// location. A zero day means today.
func (s *ReportService) Daily(ctx context.Context, actor domain.Actor, day time.Time) (domain.DailyReport, error) {
	if err := actor.Require(domain.CapabilityReport); err != nil {
		return domain.DailyReport{}, err
	}
	if day.IsZero() {
		day = s.clock.Now()
	}
	window := domain.DayWindow(day.In(s.location))

	report := domain.DailyReport{Window: window}
	var err error
	if report.Totals, err = s.reports.ResourceTotals(ctx, window); err != nil {
		return domain.DailyReport{}, fmt.Errorf("resource totals: %w", err)
	}
	if report.Purchases, err = s.reports.PurchaseTotals(ctx, window); err != nil {
		return domain.DailyReport{}, fmt.Errorf("purchase totals: %w", err)
	}
	if report.IssuedByType, err = s.reports.IssuedByType(ctx, window); err != nil {
		return domain.DailyReport{}, fmt.Errorf("issued by type: %w", err)
	}
	if report.FreeByType, err = s.reports.FreeByType(ctx); err != nil {
		return domain.DailyReport{}, fmt.Errorf("free stock: %w", err)
	}
	return report, nil
}
