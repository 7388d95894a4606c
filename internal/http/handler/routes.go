package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers
// stay free of business logic; everything interesting happens in the
// service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	app.Get("/documents", ListDocuments(docSvc))
	app.Post("/documents", UploadDocument(docSvc))
	app.Get("/documents/:id", GetDocument(docSvc))
	app.Put("/documents/:id", UpdateDocument(docSvc))
	app.Delete("/documents/:id", DeleteDocument(docSvc))
	app.Get("/documents/:id/presign", PresignDownload(docSvc))

	// Masked download entry points referenced by document representations.
	app.Get("/file/:id", DownloadFile(docSvc))
	app.Get("/thumbnail/:id", DownloadThumbnail(docSvc))
}
