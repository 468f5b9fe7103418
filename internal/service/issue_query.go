package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MattewMattew/ManagmentBoard/internal/repository"
)

type IssueQueryService struct {
	Repo repository.IssueRepository
}

type IssueView struct {
	ID        uint64     `json:"id"`
	RemoteID  int64      `json:"remote_id"`
	Payload   any        `json:"payload"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// ListIssues returns stored issues ordered by remote id with the payload
// decoded. Limit <= 0 returns everything.
func (s *IssueQueryService) ListIssues(ctx context.Context, limit, offset int) ([]IssueView, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, fmt.Errorf("issue repository is nil")
	}
	items, err := s.Repo.ListIssues(ctx, repository.ListIssuesParams{Limit: limit, Offset: offset})
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountIssues(ctx)
	if err != nil {
		return nil, 0, err
	}
	out := make([]IssueView, 0, len(items))
	for _, item := range items {
		var payload any
		if len(item.Payload) > 0 {
			if err := json.Unmarshal(item.Payload, &payload); err != nil {
				return nil, 0, fmt.Errorf("decode payload of issue %d: %w", item.RemoteID, err)
			}
		}
		out = append(out, IssueView{
			ID:        item.ID,
			RemoteID:  item.RemoteID,
			Payload:   payload,
			CreatedAt: item.CreatedAt,
			UpdatedAt: item.UpdatedAt,
		})
	}
	return out, total, nil
}
