package http

import (
	"context"

	"navcli/internal/operations"
)

// OperationServiceInterface starts pipeline runs and reports their state
type OperationServiceInterface interface {
	StartRecompute(ctx context.Context, params map[string]interface{}) (string, error)
	GetStatus(ctx context.Context, id string) (*operations.OperationSnapshot, error)
	ListOperations(ctx context.Context) []*operations.OperationSnapshot
	CancelOperation(ctx context.Context, id string) error
}
