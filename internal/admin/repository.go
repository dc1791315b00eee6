// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/cvms-ng/cvms-backend/internal/core"
)

// Overview is the registry-wide picture an operator sees first.
type Overview struct {
	TotalAccounts      int         `json:"total_accounts"`
	AccountsByRole     []RoleCount `json:"accounts_by_role"`
	LockedAccounts     int         `json:"locked_accounts"`
	PendingCACRequests int         `json:"pending_cac_requests"`
	DutyFiles          int         `json:"duty_files"`
	Certificates       int         `json:"certificates"`
}

type RoleCount struct {
	Role  string `json:"role" db:"role"`
	Count int    `json:"count" db:"count"`
}

type StatsRepository interface {
	Overview(ctx context.Context) (*Overview, error)
}

type statsRepository struct {
	db core.DBTX
}

func NewStatsRepository(db core.DBTX) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Overview(ctx context.Context) (*Overview, error) {
	var overview Overview

	counts := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM accounts`, &overview.TotalAccounts},
		{`SELECT COUNT(*) FROM accounts WHERE status = 'locked'`, &overview.LockedAccounts},
		{`SELECT COUNT(*) FROM cac_requests WHERE status = 'pending'`, &overview.PendingCACRequests},
		{`SELECT COUNT(*) FROM duty_files`, &overview.DutyFiles},
		{`SELECT COUNT(*) FROM vin_search_histories`, &overview.Certificates},
	}

	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dest, c.query); err != nil {
			return nil, fmt.Errorf("collect overview: %w", err)
		}
	}

	byRole := []RoleCount{}
	query := `SELECT role, COUNT(*) AS count FROM accounts GROUP BY role ORDER BY role`
	if err := r.db.SelectContext(ctx, &byRole, query); err != nil {
		return nil, fmt.Errorf("collect role counts: %w", err)
	}
	overview.AccountsByRole = byRole

	return &overview, nil
}
