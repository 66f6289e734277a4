package sales

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vendimia/forecast-backend/internal/timeseries"
)

// DailySummary is one day of the recent sales report.
type DailySummary struct {
	Date      time.Time
	Count     int
	Total     float64
	AvgTicket float64
}

// RecentSales summarizes the tenant's most recent days of activity: sale
// count, total, and average ticket per day, oldest first. Days with no sales
// do not appear; the report reflects recorded activity only.
func (e *Extractor) RecentSales(ctx context.Context, tenantID string, days int) ([]DailySummary, error) {
	tenant, ok := e.parseTenantID(ctx, tenantID)
	if !ok {
		return nil, nil
	}

	records, err := e.repo.FindSales(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	type accum struct {
		count int
		total decimal.Decimal
	}
	byDay := make(map[time.Time]*accum)
	for _, sale := range records {
		if sale.CreatedAt.IsZero() {
			continue
		}
		day := timeseries.Day(sale.CreatedAt)
		if byDay[day] == nil {
			byDay[day] = &accum{}
		}
		byDay[day].count++
		byDay[day].total = byDay[day].total.Add(sale.Total)
	}

	summaries := make([]DailySummary, 0, len(byDay))
	for day, a := range byDay {
		ticket := a.total.Div(decimal.NewFromInt(int64(a.count))).Round(2)
		summaries = append(summaries, DailySummary{
			Date:      day,
			Count:     a.count,
			Total:     a.total.InexactFloat64(),
			AvgTicket: ticket.InexactFloat64(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].Date.Before(summaries[j].Date) })
	if days > 0 && len(summaries) > days {
		summaries = summaries[len(summaries)-days:]
	}
	return summaries, nil
}
