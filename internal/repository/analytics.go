package repository

import (
	"context"
	"fmt"
	"time"

	"tribe-notify.io/notify/internal/domain"
)

const analyticsSQL = `
SELECT status, delivery_method, COUNT(*)
  FROM notification_jobs
 WHERE group_id = $1 AND created_at >= $2
 GROUP BY status, delivery_method`

// JobCounts aggregates job rows for a group created at or after since,
// grouped by status and channel. Errors propagate: analytics callers
// want a visible failure, not a silently defaulted zero report.
func (s *Store) JobCounts(ctx context.Context, groupID string, since time.Time) (map[domain.JobStatus]int, map[domain.Channel]int, error) {
	rows, err := s.pool.Query(ctx, analyticsSQL, groupID, since)
	if err != nil {
		return nil, nil, fmt.Errorf("query job counts: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[domain.JobStatus]int)
	byChannel := make(map[domain.Channel]int)
	for rows.Next() {
		var status, channel string
		var count int
		if err := rows.Scan(&status, &channel, &count); err != nil {
			return nil, nil, fmt.Errorf("scan job counts: %w", err)
		}
		byStatus[domain.JobStatus(status)] += count
		byChannel[domain.Channel(channel)] += count
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return byStatus, byChannel, nil
}
