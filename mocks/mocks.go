/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/thayfamily/checklive/internal/workflow"
)

// MockSheetStore is a mock implementation of checklive.SheetStore
type MockSheetStore struct {
	mock.Mock
}

func (m *MockSheetStore) Rows(ctx context.Context, table string) ([][]string, error) {
	args := m.Called(ctx, table)
	rows, _ := args.Get(0).([][]string)
	return rows, args.Error(1)
}

func (m *MockSheetStore) UpdateCell(ctx context.Context, table, cell, value string) error {
	args := m.Called(ctx, table, cell, value)
	return args.Error(0)
}

// MockTransferRunner is a mock implementation of checklive.TransferRunner
type MockTransferRunner struct {
	mock.Mock
}

func (m *MockTransferRunner) Transfer(ctx context.Context, req workflow.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}
