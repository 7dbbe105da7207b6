package mocks

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name Repository --dir ../domain/pick --output domain/pick --outpkg pickmock --filename repository_mock.go
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name SnapshotStore --dir ../domain/pick --output domain/pick --outpkg pickmock --filename snapshot_store_mock.go
