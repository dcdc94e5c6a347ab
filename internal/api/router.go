package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"cm-admin/internal/metrics"
	"cm-admin/internal/middleware"
)

// RouterConfig holds the pieces of the router that come from outside the
// handler.
type RouterConfig struct {
	Auth         func(http.Handler) http.Handler // required on every data route
	RateLimit    func(http.Handler) http.Handler // optional, all routes
	LoginLimit   func(http.Handler) http.Handler // optional, /auth/login only
	CORSOrigins  []string
	Spec         *openapi3.T // served on /openapi.json when set
	MetricsRoute http.Handler
}

// NewRouter wires the REST API onto a chi router.
func NewRouter(h *Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if cfg.RateLimit != nil {
		r.Use(cfg.RateLimit)
	}

	r.Get("/healthz", h.Healthz)
	if cfg.MetricsRoute != nil {
		r.Handle("/metrics", cfg.MetricsRoute)
	}
	if cfg.Spec != nil {
		r.Get("/openapi.json", serveSpec(cfg.Spec))
		r.Get("/docs", serveDocs)
	}

	r.Route("/auth", func(r chi.Router) {
		login := http.Handler(http.HandlerFunc(h.Login))
		if cfg.LoginLimit != nil {
			login = cfg.LoginLimit(login)
		}
		r.Method(http.MethodPost, "/login", login)
		r.Post("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(cfg.Auth)

		r.Route("/upload", func(r chi.Router) {
			r.Post("/getDataLoadersConf", h.GetDataLoadersConf)
			r.Post("/uploadExcelFile", h.UploadExcelFile)
			r.Post("/uploadData", h.UploadData)
			r.Post("/uploadFile", h.UploadFile)
			r.Post("/updateData", h.UpdateData)
			r.Post("/getImsiDonorData", h.GetImsiDonorData)
			r.Post("/updateTitle", h.UpdateTitle)
		})

		r.Route("/data", func(r chi.Router) {
			r.Get("/tables", h.ListReferenceTables)
			r.Get("/tables/{table}", h.ListReferenceRows)
			r.Post("/tables/{table}", h.InsertReferenceRow)
			r.Put("/tables/{table}/{id}", h.UpdateReferenceRow)
			r.Delete("/tables/{table}/{id}", h.DeleteReferenceRow)

			r.Post("/getNbIotData", h.GetNbIotData)
			r.Post("/getCatMData", h.GetCatMData)
			r.Post("/getMasterListData", h.GetMasterListData)
			r.Post("/getBapData", h.GetBapData)
			r.Get("/getPriceZoneList/{tcp}", h.GetPriceZoneList)
			r.Get("/getPriceZoneListEprofile/{profile}", h.GetPriceZoneListEprofile)
			r.Get("/getIotLaunchesAndSteeringData", h.GetIotLaunchesAndSteeringData)
		})

		r.Route("/conf", func(r chi.Router) {
			r.Get("/getTcpList", h.GetTCPList)
			r.Post("/getPzCutOffPoints", h.GetPzCutOffPoints)
		})

		r.Get("/screens/getScreenConfig", h.GetScreenConfig)

		r.Route("/master", func(r chi.Router) {
			r.Get("/getSavedVersions", h.GetSavedVersions)
			r.Post("/getSavedVersionById", h.GetSavedVersionByID)
			r.Post("/saveVersion", h.SaveVersion)
		})
	})

	return r
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func serveSpec(doc *openapi3.T) http.HandlerFunc {
	body, err := json.Marshal(doc)
	return func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

func serveDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head>
    <title>cm-admin API</title>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/@scalar/api-reference@1.44.16/dist/style.min.css" />
</head>
<body>
    <script id="api-reference" data-url="/openapi.json"></script>
    <script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference@1.44.16/dist/browser/standalone.min.js"></script>
</body>
</html>`)
}
