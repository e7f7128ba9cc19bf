package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ideafiles/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: parse, call the file service, map the error kind.
// /metrics is mounted only when gatherer is non-nil.
func RegisterRoutes(app *fiber.App, db *sql.DB, fileSvc service.FileService, gatherer prometheus.Gatherer) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	if gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	ideas := app.Group("/ideas/:ideaId")
	ideas.Post("/files", AddFile(fileSvc))
	ideas.Get("/files", ListFiles(fileSvc))

	files := app.Group("/files")
	files.Get("/:id", GetFile(fileSvc))
	files.Get("/:id/download", DownloadFile(fileSvc))
	files.Delete("/:id", RemoveFile(fileSvc))
}
