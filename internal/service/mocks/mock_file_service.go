package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ideafiles/internal/model"
	"ideafiles/internal/service"
)

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) AddFile(ctx context.Context, ideaID int64, upload service.FileUpload, credential string) (*model.FileRecord, error) {
	args := m.Called(ctx, ideaID, upload, credential)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileService) GetFileListByIdeaID(ctx context.Context, ideaID int64) ([]model.FileRecord, error) {
	args := m.Called(ctx, ideaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FileRecord), args.Error(1)
}

func (m *MockFileService) GetByFileID(ctx context.Context, id int64) (*model.FileRecord, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.FileRecord), args.Bool(1), args.Error(2)
}

func (m *MockFileService) GetFileWithBodyByID(ctx context.Context, id int64) (*model.FileRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FileRecord), args.Error(1)
}

func (m *MockFileService) RemoveFile(ctx context.Context, id int64, credential string) error {
	args := m.Called(ctx, id, credential)
	return args.Error(0)
}
