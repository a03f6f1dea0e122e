// audit/service.go
package audit

import (
	"context"
	"time"
)

type Service interface {
	LogDecision(ctx context.Context, log DecisionLog) error
	LogPolicyChange(ctx context.Context, log PolicyChangeLog) error
	QueryDecisions(ctx context.Context, from, to time.Time, subjectID, resourceType string) ([]DecisionLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogDecision(ctx context.Context, log DecisionLog) error {
	return s.repo.IndexDecision(ctx, log)
}

func (s *service) LogPolicyChange(ctx context.Context, log PolicyChangeLog) error {
	return s.repo.IndexPolicyChange(ctx, log)
}

func (s *service) QueryDecisions(ctx context.Context, from, to time.Time, subjectID, resourceType string) ([]DecisionLog, error) {
	return s.repo.QueryDecisions(ctx, from, to, subjectID, resourceType)
}
