//go:build wireinject

//go:generate wire

package api

import (
	"github.com/chainapsis/oko-sub000/internal/config"
	"github.com/google/wire"
)

// INJECTORS - https://github.com/google/wire/blob/main/docs/guide.md#injectors

// serviceSet groups the default set of providers that are required for initing a server
var serviceSet = wire.NewSet(
	newServerWithComponents,
	NewDB,
	NewClock,
	NewStageDataCipher,
	NewStore,
	NewRedisClient,
	NewSessionStore,
	NewStageStore,
	NewEngine,
	NewTSSService,
)

// InitNewServer initializes a new Server with components created by the providers of the serviceSet
func InitNewServer(cfg config.Server) (*Server, error) {
	wire.Build(serviceSet)
	return nil, nil
}
