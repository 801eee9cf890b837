package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
	"github.com/hazama-dev/mediaforge/internal/domain/repository"
)

// mockMediaRepository implements repository.MediaRepository for testing.
type mockMediaRepository struct {
	getByIDFunc func(ctx context.Context, id uuid.UUID) (*model.MediaDescriptor, error)
	searchFunc  func(ctx context.Context, criteria repository.Criteria) ([]*model.MediaDescriptor, error)
}

func (m *mockMediaRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.MediaDescriptor, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, repository.ErrMediaNotFound
}

func (m *mockMediaRepository) Search(ctx context.Context, criteria repository.Criteria) ([]*model.MediaDescriptor, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, criteria)
	}
	return nil, nil
}

// mockOrchestrator implements Orchestrator for testing.
type mockOrchestrator struct {
	generateThumbnailsFunc     func(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome
	generateTranscodeFunc      func(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome
	generateThumbnailsBulkFunc func(ctx context.Context, media []*model.MediaDescriptor, req model.DerivativeRequest, runID string, cancel repository.CancelSignal) model.BulkCounts
	toolsAvailableFunc         func() bool
}

func (m *mockOrchestrator) GenerateThumbnails(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome {
	if m.generateThumbnailsFunc != nil {
		return m.generateThumbnailsFunc(ctx, md, req)
	}
	return model.Outcome{State: model.StateReady}
}

func (m *mockOrchestrator) GenerateTranscode(ctx context.Context, md *model.MediaDescriptor, req model.DerivativeRequest) model.Outcome {
	if m.generateTranscodeFunc != nil {
		return m.generateTranscodeFunc(ctx, md, req)
	}
	return model.Outcome{State: model.StateReady}
}

func (m *mockOrchestrator) GenerateThumbnailsBulk(ctx context.Context, media []*model.MediaDescriptor, req model.DerivativeRequest, runID string, cancel repository.CancelSignal) model.BulkCounts {
	if m.generateThumbnailsBulkFunc != nil {
		return m.generateThumbnailsBulkFunc(ctx, media, req, runID, cancel)
	}
	return model.BulkCounts{}
}

func (m *mockOrchestrator) ToolsAvailable() bool {
	if m.toolsAvailableFunc != nil {
		return m.toolsAvailableFunc()
	}
	return true
}

// mockMessageQueue implements repository.MessageQueue for testing.
type mockMessageQueue struct {
	publishFunc func(ctx context.Context, task repository.DerivativeTask) error
	consumeFunc func(ctx context.Context, handler func(task repository.DerivativeTask) error) error
	closeFunc   func() error
}

func (m *mockMessageQueue) PublishDerivativeTask(ctx context.Context, task repository.DerivativeTask) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, task)
	}
	return nil
}

func (m *mockMessageQueue) ConsumeDerivativeTasks(ctx context.Context, handler func(task repository.DerivativeTask) error) error {
	if m.consumeFunc != nil {
		return m.consumeFunc(ctx, handler)
	}
	return nil
}

func (m *mockMessageQueue) Close() error {
	if m.closeFunc != nil {
		return m.closeFunc()
	}
	return nil
}

var _ repository.MediaRepository = (*mockMediaRepository)(nil)
var _ Orchestrator = (*mockOrchestrator)(nil)
var _ repository.MessageQueue = (*mockMessageQueue)(nil)
