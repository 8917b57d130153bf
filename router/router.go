package router

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"oldb/config"
	"oldb/internal/backup"
	"oldb/internal/corpus"
	"oldb/internal/form"
	"oldb/internal/formsearch"
	"oldb/internal/syncat"
	"oldb/internal/tag"
	"oldb/internal/user"
	"oldb/middleware"
	"oldb/socket"
)

// Setup wires repositories, services and handlers and returns the HTTP
// handler for the whole API. Reads are open to any authenticated user;
// writes require the administrator or contributor role.
func Setup(cfg *config.Config, db *sql.DB, hub *socket.Hub) http.Handler {
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	tagRepo := tag.NewRepository(db)
	tagHandler := tag.NewHandler(tagRepo)

	syncatRepo := syncat.NewRepository(db)
	syncatHandler := syncat.NewHandler(syncatRepo)

	formRepo := form.NewRepository(db)
	formHandler := form.NewHandler(formRepo)

	formSearchRepo := formsearch.NewRepository(db)
	formSearchHandler := formsearch.NewHandler(formSearchRepo)

	corpusRepo := corpus.NewRepository(db)
	corpusService := corpus.NewService(corpusRepo, userRepo, tagRepo, formSearchRepo, hub, cfg.ExportsDir)
	corpusHandler := corpus.NewHandler(corpusService)

	backupRepo := backup.NewRepository(db)
	backupHandler := backup.NewHandler(backupRepo)

	writer := middleware.RequireRole(user.RoleAdministrator, user.RoleContributor)

	r := chi.NewRouter()
	r.Use(middleware.CORS, middleware.Logging)

	r.Post("/api/v1/login", userHandler.Login)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))

		r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
			claims := middleware.GetUser(req.Context())
			socket.ServeWs(hub, w, req, claims.UserID)
		})

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/users", userHandler.Index)

			r.Get("/tags", tagHandler.Index)
			r.Get("/tags/{id}", tagHandler.Show)
			r.With(writer).Post("/tags", tagHandler.Create)
			r.With(writer).Put("/tags/{id}", tagHandler.Update)
			r.With(writer).Delete("/tags/{id}", tagHandler.Delete)

			r.Get("/syntacticcategories", syncatHandler.Index)
			r.Get("/syntacticcategories/{id}", syncatHandler.Show)
			r.With(writer).Post("/syntacticcategories", syncatHandler.Create)
			r.With(writer).Put("/syntacticcategories/{id}", syncatHandler.Update)
			r.With(writer).Delete("/syntacticcategories/{id}", syncatHandler.Delete)

			r.Get("/forms", formHandler.Index)
			r.Post("/forms/search", formHandler.Search)
			r.Get("/forms/{id}", formHandler.Show)
			r.With(writer).Post("/forms", formHandler.Create)
			r.With(writer).Put("/forms/{id}", formHandler.Update)
			r.With(writer).Delete("/forms/{id}", formHandler.Delete)

			r.Get("/formsearches", formSearchHandler.Index)
			r.Get("/formsearches/{id}", formSearchHandler.Show)
			r.With(writer).Post("/formsearches", formSearchHandler.Create)
			r.With(writer).Put("/formsearches/{id}", formSearchHandler.Update)
			r.With(writer).Delete("/formsearches/{id}", formSearchHandler.Delete)

			r.Get("/corpora", corpusHandler.Index)
			r.Post("/corpora/search", corpusHandler.Search)
			r.With(writer).Get("/corpora/new", corpusHandler.New)
			r.Get("/corpora/{id:[0-9]+}", corpusHandler.Show)
			r.Get("/corpora/{id}/history", corpusHandler.History)
			r.With(writer).Get("/corpora/{id:[0-9]+}/edit", corpusHandler.Edit)
			r.With(writer).Post("/corpora", corpusHandler.Create)
			r.With(writer).Put("/corpora/{id:[0-9]+}", corpusHandler.Update)
			r.With(writer).Delete("/corpora/{id:[0-9]+}", corpusHandler.Delete)
			r.With(writer).Put("/corpora/{id:[0-9]+}/writetofile", corpusHandler.WriteToFile)
			r.Get("/corpora/{id:[0-9]+}/servefile/{fileId:[0-9]+}", corpusHandler.ServeFile)

			r.Get("/corpusbackups", backupHandler.Index)
			r.Get("/corpusbackups/new", backupHandler.ReadOnly)
			r.Get("/corpusbackups/{id:[0-9]+}", backupHandler.Show)
			r.Get("/corpusbackups/{id}/edit", backupHandler.ReadOnly)
			r.Post("/corpusbackups", backupHandler.ReadOnly)
			r.Put("/corpusbackups/{id}", backupHandler.ReadOnly)
			r.Delete("/corpusbackups/{id}", backupHandler.ReadOnly)
		})
	})

	return r
}
