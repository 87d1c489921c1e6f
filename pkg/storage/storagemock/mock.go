package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/sunnyrelay/sunnyrelay/pkg/storage"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) EnsureObject(ctx context.Context, obj types.StateObject) error {
	args := m.Called(ctx, obj)
	return args.Error(0)
}

func (m *MockDatabase) SetState(ctx context.Context, id string, state types.State) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockDatabase) GetState(ctx context.Context, id string) (types.State, error) {
	args := m.Called(ctx, id)
	if len(args) > 0 {
		return args.Get(0).(types.State), args.Error(1)
	}
	return types.State{}, storage.ErrStateNotFound
}

func (m *MockDatabase) ListStates(ctx context.Context, prefix string) ([]types.StateEntry, error) {
	args := m.Called(ctx, prefix)
	if len(args) > 0 {
		return args.Get(0).([]types.StateEntry), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
