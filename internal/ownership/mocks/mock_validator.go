package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) IsOwner(ctx context.Context, ideaID int64, credential string) (bool, error) {
	args := m.Called(ctx, ideaID, credential)
	return args.Bool(0), args.Error(1)
}
