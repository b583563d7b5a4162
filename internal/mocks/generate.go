package mocks

//go:generate mockery --name EventStore --srcpkg github.com/aevon-lab/telemetry-rollup/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
//go:generate mockery --name AggregateStore --srcpkg github.com/aevon-lab/telemetry-rollup/internal/core/storage --output ./storage --outpkg storagemocks --with-expecter
