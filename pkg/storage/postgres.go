package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store interface using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore opens the database, checks connectivity and applies the schema
func NewPostgresStore(ctx context.Context, cfg Config, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	store := &PostgresStore{db: db, logger: logger}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate applies every embedded schema file in name order
func (s *PostgresStore) migrate(ctx context.Context) error {
	entries, err := postgresFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, entry := range entries {
		schema, err := postgresFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", entry.Name(), err)
		}
		s.logger.Debug("applied migration", "file", entry.Name())
	}
	return nil
}

// SavePlan saves a plan and its moves in one transaction
func (s *PostgresStore) SavePlan(ctx context.Context, plan *models.ConsolidationPlan) (string, error) {
	plan = stamp(plan)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	planQuery := `
		INSERT INTO plans (
			id, scenario, currency, notes, powered_down_nodes,
			estimated_watts_saved, estimated_monthly_savings, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.ExecContext(ctx, planQuery,
		plan.ID, plan.Scenario, plan.Currency, plan.Notes, pq.Array(nonNil(plan.PoweredDownNodes)),
		plan.EstimatedWattsSaved, plan.EstimatedMonthlySavings, plan.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert plan: %w", err)
	}

	moveQuery := `
		INSERT INTO plan_moves (
			plan_id, seq, workload_name, workload_type, vcpus, memory_gb,
			source_node, target_node
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, row := range moveRows(plan) {
		_, err := tx.ExecContext(ctx, moveQuery,
			plan.ID, i, row.WorkloadName, row.WorkloadType, row.VCPUs, row.MemoryGB,
			row.SourceNode, row.TargetNode,
		)
		if err != nil {
			return "", fmt.Errorf("failed to insert move %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit plan: %w", err)
	}
	return plan.ID, nil
}

// GetPlan retrieves a plan with its moves by ID
func (s *PostgresStore) GetPlan(ctx context.Context, id string) (*models.ConsolidationPlan, error) {
	query := `
		SELECT id, scenario, currency, notes, powered_down_nodes,
			estimated_watts_saved, estimated_monthly_savings, created_at
		FROM plans
		WHERE id = $1
	`

	var plan models.ConsolidationPlan
	var notes sql.NullString
	var poweredDown pq.StringArray

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&plan.ID, &plan.Scenario, &plan.Currency, &notes, &poweredDown,
		&plan.EstimatedWattsSaved, &plan.EstimatedMonthlySavings, &plan.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	plan.Notes = notes.String
	plan.PoweredDownNodes = nonNil([]string(poweredDown))

	moves, err := s.getMoves(ctx, id)
	if err != nil {
		return nil, err
	}
	plan.Moves = moves

	return &plan, nil
}

func (s *PostgresStore) getMoves(ctx context.Context, planID string) ([]models.ConsolidationMove, error) {
	query := `
		SELECT workload_name, workload_type, vcpus, memory_gb, source_node, target_node
		FROM plan_moves
		WHERE plan_id = $1
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []moveRow
	for rows.Next() {
		var row moveRow
		err := rows.Scan(&row.WorkloadName, &row.WorkloadType, &row.VCPUs, &row.MemoryGB, &row.SourceNode, &row.TargetNode)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movesFromRows(out), nil
}

// ListPlans retrieves plan summaries, newest first
func (s *PostgresStore) ListPlans(ctx context.Context, scenario string, limit int) ([]*models.PlanSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT p.id, p.scenario, p.currency, p.powered_down_nodes,
			p.estimated_watts_saved, p.estimated_monthly_savings, p.created_at,
			(SELECT COUNT(*) FROM plan_moves m WHERE m.plan_id = p.id)
		FROM plans p
		WHERE $1 = '' OR p.scenario = $1
		ORDER BY p.created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, scenario, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*models.PlanSummary
	for rows.Next() {
		var summary models.PlanSummary
		var poweredDown pq.StringArray

		err := rows.Scan(
			&summary.ID, &summary.Scenario, &summary.Currency, &poweredDown,
			&summary.EstimatedWattsSaved, &summary.EstimatedMonthlySavings, &summary.CreatedAt,
			&summary.MoveCount,
		)
		if err != nil {
			return nil, err
		}
		summary.PoweredDownNodes = nonNil([]string(poweredDown))
		summaries = append(summaries, &summary)
	}

	return summaries, rows.Err()
}

// Ping checks database connectivity
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

var _ Store = (*PostgresStore)(nil)
