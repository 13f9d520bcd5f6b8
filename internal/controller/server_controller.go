package controller

import (
	"context"

	"contractiq/internal/cache"
	"contractiq/internal/database"
	"contractiq/internal/queue"
	"contractiq/internal/storage"
)

type ServerController interface {
	Health(ctx context.Context) map[string]string
	Online() string
}

type serverController struct {
	db     database.Database
	cache  cache.Cache
	broker queue.Client
	store  storage.DocumentStore
}

func NewServer(db database.Database, statusCache cache.Cache, broker queue.Client, store storage.DocumentStore) ServerController {
	return &serverController{
		db:     db,
		cache:  statusCache,
		broker: broker,
		store:  store,
	}
}

func (sc *serverController) Online() string {
	return "Online"
}

// Health reports per-dependency status so a degraded component is visible
// without tailing logs.
func (sc *serverController) Health(ctx context.Context) map[string]string {
	health := make(map[string]string, 4)

	health["mongodb"] = statusString(sc.db.Health())
	health["redis"] = statusString(sc.cache.Ping(ctx))
	health["rabbitmq"] = statusString(sc.broker.Health())
	health["storage"] = statusString(sc.store.TestConnection(ctx))

	return health
}

func statusString(err error) string {
	if err != nil {
		return "unhealthy: " + err.Error()
	}
	return "healthy"
}
