// Package mocks provides mock implementations for testing the jobshop
// repository interfaces.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks
// for the ports defined in internal/core. To regenerate after interface
// changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockRepo := mocks.NewMockJobRepository(ctrl)
//	mockRepo.EXPECT().GetByID(gomock.Any(), jobID).Return(job, nil)
package mocks

// Generate mock for JobRepository: Create, GetByID, List, Delete, ApplyDelta.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=job_repository_mock.go github.com/fabworks/jobshop/internal/core JobRepository

// Generate mock for EventRepository: GetByChangeID, ListByJob, CountNewerActive, HasCompensation.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=event_repository_mock.go github.com/fabworks/jobshop/internal/core EventRepository

// Generate mock for RejectionRepository: Record, ListByJob, PruneOlderThan.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=rejection_repository_mock.go github.com/fabworks/jobshop/internal/core RejectionRepository

// Generate mock for VersionCache: GetVersion, SetVersion, Invalidate.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=version_cache_mock.go github.com/fabworks/jobshop/internal/core VersionCache
