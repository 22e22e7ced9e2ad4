package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asklokesh/FireLater-sub015/pkg/domain/request"
	"github.com/asklokesh/FireLater-sub015/pkg/domain/shared"
)

// RequestRepository implements request.Repository against one schema per
// tenant. Approval decisions use conditional UPDATEs under repeatable read;
// see ApplyDecision.
type RequestRepository struct {
	db *DB
}

// NewRequestRepository creates a new RequestRepository.
func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create persists a request and its approval chain in one transaction.
func (r *RequestRepository) Create(ctx context.Context, tenantSlug string, req *request.ServiceRequest, approvals []*request.Approval) error {
	schema := schemaFor(tenantSlug)

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := fmt.Sprintf(`
			INSERT INTO %s.requests (id, requester_id, title, description, status, created_at, updated_at, approved_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, schema)
		_, err := tx.ExecContext(ctx, query,
			req.ID.String(), req.RequesterID.String(), req.Title, nullString(req.Description),
			req.Status.String(), req.CreatedAt, req.UpdatedAt, nullTime(req.ApprovedAt))
		if err != nil {
			return fmt.Errorf("failed to insert request: %w", err)
		}

		for _, a := range approvals {
			query := fmt.Sprintf(`
				INSERT INTO %s.approvals (id, request_id, step_number, approver_kind, approver_id, status, comment, decided_by, decided_at, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			`, schema)
			_, err := tx.ExecContext(ctx, query,
				a.ID.String(), a.RequestID.String(), a.StepNumber, string(a.ApproverKind),
				a.ApproverID.String(), a.Status.String(), nullString(a.Comment),
				nullID(a.DecidedBy), nullTime(a.DecidedAt), a.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert approval step %d: %w", a.StepNumber, err)
			}
		}
		return nil
	})
}

// GetByID retrieves one request.
func (r *RequestRepository) GetByID(ctx context.Context, tenantSlug string, id shared.ID) (*request.ServiceRequest, error) {
	schema := schemaFor(tenantSlug)
	query := fmt.Sprintf(`
		SELECT id, requester_id, title, description, status, created_at, updated_at, approved_at
		FROM %s.requests WHERE id = $1
	`, schema)
	return r.scanRequest(tenantSlug, r.db.QueryRowContext(ctx, query, id.String()))
}

// ListApprovals returns the approval chain ordered by step.
func (r *RequestRepository) ListApprovals(ctx context.Context, tenantSlug string, requestID shared.ID) ([]*request.Approval, error) {
	schema := schemaFor(tenantSlug)
	query := fmt.Sprintf(`
		SELECT id, request_id, step_number, approver_kind, approver_id, status, comment, decided_by, decided_at, created_at
		FROM %s.approvals WHERE request_id = $1 ORDER BY step_number
	`, schema)

	rows, err := r.db.QueryContext(ctx, query, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list approvals: %w", err)
	}
	defer rows.Close()
	return scanApprovals(rows)
}

// ListStatusHistory returns the aggregate transitions, oldest first.
func (r *RequestRepository) ListStatusHistory(ctx context.Context, tenantSlug string, requestID shared.ID) ([]*request.StatusHistory, error) {
	schema := schemaFor(tenantSlug)
	query := fmt.Sprintf(`
		SELECT id, request_id, from_status, to_status, actor_id, created_at
		FROM %s.status_history WHERE request_id = $1 ORDER BY created_at
	`, schema)

	rows, err := r.db.QueryContext(ctx, query, requestID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	var out []*request.StatusHistory
	for rows.Next() {
		var h request.StatusHistory
		var id, reqID, from, to, actor string
		if err := rows.Scan(&id, &reqID, &from, &to, &actor, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history: %w", err)
		}
		h.ID, _ = shared.IDFromString(id)
		h.RequestID, _ = shared.IDFromString(reqID)
		h.FromStatus = request.Status(from)
		h.ToStatus = request.Status(to)
		h.ActorID, _ = shared.IDFromString(actor)
		out = append(out, &h)
	}
	return out, rows.Err()
}

// ApplyDecision resolves one approval step atomically. The whole dance runs
// under repeatable read:
//
//  1. conditional UPDATE moves the approval out of pending; zero rows means
//     another decision already landed and the caller gets ErrAlreadyProcessed,
//  2. all approval rows are re-read and the aggregate recomputed,
//  3. if the aggregate changed, a conditional UPDATE moves the request row
//     and exactly one history row is inserted.
//
// Two concurrent losers of the same race produce a serialization failure,
// which the connection layer retries once; the retry then observes the
// decided row and returns ErrAlreadyProcessed cleanly.
func (r *RequestRepository) ApplyDecision(ctx context.Context, tenantSlug string, requestID, approvalID shared.ID, d request.Decision) (*request.DecisionOutcome, error) {
	schema := schemaFor(tenantSlug)
	var outcome *request.DecisionOutcome

	err := r.db.RepeatableRead(ctx, func(tx *sql.Tx) error {
		outcome = nil
		now := time.Now()

		var res sql.Result
		var err error
		if d.Status == request.ApprovalStatusDelegated {
			// Delegation re-targets the step without deciding it.
			query := fmt.Sprintf(`
				UPDATE %s.approvals
				SET approver_id = $2
				WHERE id = $1 AND status = 'pending'
			`, schema)
			res, err = tx.ExecContext(ctx, query, approvalID.String(), d.DelegateTo.String())
		} else {
			query := fmt.Sprintf(`
				UPDATE %s.approvals
				SET status = $2, comment = $3, decided_by = $4, decided_at = $5
				WHERE id = $1 AND status = 'pending'
			`, schema)
			res, err = tx.ExecContext(ctx, query,
				approvalID.String(), d.Status.String(), nullString(d.Comment), d.ActorID.String(), now)
		}
		if err != nil {
			return fmt.Errorf("failed to update approval: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			// Either decided already or the id is unknown; distinguish.
			var exists bool
			check := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s.approvals WHERE id = $1)", schema)
			if err := tx.QueryRowContext(ctx, check, approvalID.String()).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check approval existence: %w", err)
			}
			if !exists {
				return shared.ErrNotFound
			}
			return shared.ErrAlreadyProcessed
		}

		// Re-read the chain and recompute the aggregate.
		listQuery := fmt.Sprintf(`
			SELECT id, request_id, step_number, approver_kind, approver_id, status, comment, decided_by, decided_at, created_at
			FROM %s.approvals WHERE request_id = $1 ORDER BY step_number
		`, schema)
		rows, err := tx.QueryContext(ctx, listQuery, requestID.String())
		if err != nil {
			return fmt.Errorf("failed to re-read approvals: %w", err)
		}
		approvals, err := scanApprovals(rows)
		rows.Close()
		if err != nil {
			return err
		}

		var decided *request.Approval
		for _, a := range approvals {
			if a.ID == approvalID {
				decided = a
				break
			}
		}
		if decided == nil {
			return shared.ErrNotFound
		}

		var previous string
		getStatus := fmt.Sprintf("SELECT status FROM %s.requests WHERE id = $1", schema)
		if err := tx.QueryRowContext(ctx, getStatus, requestID.String()).Scan(&previous); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return shared.ErrNotFound
			}
			return fmt.Errorf("failed to read request status: %w", err)
		}

		previousStatus := request.Status(previous)
		nextStatus := request.ComputeAggregateStatus(approvals)

		changed := false
		if nextStatus != previousStatus && !previousStatus.IsTerminal() {
			var approvedAt sql.NullTime
			if nextStatus == request.StatusApproved {
				approvedAt = sql.NullTime{Time: now, Valid: true}
			}
			updateReq := fmt.Sprintf(`
				UPDATE %s.requests
				SET status = $2, updated_at = $3, approved_at = COALESCE($4, approved_at)
				WHERE id = $1 AND status = $5
			`, schema)
			res, err := tx.ExecContext(ctx, updateReq,
				requestID.String(), nextStatus.String(), now, approvedAt, previousStatus.String())
			if err != nil {
				return fmt.Errorf("failed to update request status: %w", err)
			}
			if n, _ := res.RowsAffected(); n == 1 {
				insertHist := fmt.Sprintf(`
					INSERT INTO %s.status_history (id, request_id, from_status, to_status, actor_id, created_at)
					VALUES ($1, $2, $3, $4, $5, $6)
				`, schema)
				_, err := tx.ExecContext(ctx, insertHist,
					shared.NewID().String(), requestID.String(),
					previousStatus.String(), nextStatus.String(), d.ActorID.String(), now)
				if err != nil {
					return fmt.Errorf("failed to insert status history: %w", err)
				}
				changed = true
			}
		}

		finalStatus := previousStatus
		if changed {
			finalStatus = nextStatus
		}
		outcome = &request.DecisionOutcome{
			Approval:       decided,
			PreviousStatus: previousStatus,
			NewStatus:      finalStatus,
			StatusChanged:  changed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func (r *RequestRepository) scanRequest(tenantSlug string, row rowScanner) (*request.ServiceRequest, error) {
	var req request.ServiceRequest
	var id, requester, status string
	var description sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(&id, &requester, &req.Title, &description, &status, &req.CreatedAt, &req.UpdatedAt, &approvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}

	req.ID, _ = shared.IDFromString(id)
	req.RequesterID, _ = shared.IDFromString(requester)
	req.TenantSlug = tenantSlug
	req.Description = nullStringValue(description)
	req.Status = request.Status(status)
	req.ApprovedAt = nullTimeValue(approvedAt)
	return &req, nil
}

func scanApprovals(rows *sql.Rows) ([]*request.Approval, error) {
	var out []*request.Approval
	for rows.Next() {
		var a request.Approval
		var id, reqID, kind, approver, status string
		var comment sql.NullString
		var decidedBy sql.NullString
		var decidedAt sql.NullTime

		err := rows.Scan(&id, &reqID, &a.StepNumber, &kind, &approver, &status,
			&comment, &decidedBy, &decidedAt, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval: %w", err)
		}

		a.ID, _ = shared.IDFromString(id)
		a.RequestID, _ = shared.IDFromString(reqID)
		a.ApproverKind = request.ApproverKind(kind)
		a.ApproverID, _ = shared.IDFromString(approver)
		a.Status = request.ApprovalStatus(status)
		a.Comment = nullStringValue(comment)
		a.DecidedBy = parseNullID(decidedBy)
		a.DecidedAt = nullTimeValue(decidedAt)
		out = append(out, &a)
	}
	return out, rows.Err()
}

// DeleteStatusHistoryOlderThan reaps aged history rows for retention.
func (r *RequestRepository) DeleteStatusHistoryOlderThan(ctx context.Context, tenantSlug string, days int) (int64, error) {
	schema := schemaFor(tenantSlug)
	query := fmt.Sprintf(`
		DELETE FROM %s.status_history
		WHERE created_at < now() - make_interval(days => $1)
	`, schema)
	res, err := r.db.ExecContext(ctx, query, days)
	if err != nil {
		return 0, fmt.Errorf("failed to prune status history: %w", err)
	}
	return res.RowsAffected()
}
