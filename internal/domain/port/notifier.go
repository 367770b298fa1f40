package port

import "context"

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, email string, runID string, video string, errorMsg string) error
}
