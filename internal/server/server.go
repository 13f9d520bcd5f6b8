package server

import (
	"fmt"
	"net/http"
	"time"

	"contractiq/internal/cache"
	"contractiq/internal/config"
	"contractiq/internal/controller"
	"contractiq/internal/database"
	"contractiq/internal/queue"
	"contractiq/internal/storage"
)

type Server struct {
	sc     controller.ServerController
	cc     controller.ContractController
	config config.Config
}

func New(cfg config.Config, db database.Database, statusCache cache.Cache,
	broker queue.Client, jobs queue.JobQueue, store storage.DocumentStore) *http.Server {
	sc := controller.NewServer(db, statusCache, broker, store)
	cc := controller.NewContractController(db, store, jobs, statusCache, cfg.Processing)

	server := Server{
		sc:     sc,
		cc:     cc,
		config: cfg,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%v", cfg.Port),
		Handler:      server.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
}
