package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/courserate-sg/server/internal/api/handlers"
	"github.com/courserate-sg/server/internal/api/middleware"
	"github.com/courserate-sg/server/internal/api/problem"
	"github.com/courserate-sg/server/internal/audit"
	"github.com/courserate-sg/server/internal/auth"
	"github.com/courserate-sg/server/internal/config"
	"github.com/courserate-sg/server/internal/domain/courses"
	"github.com/courserate-sg/server/internal/domain/professors"
	"github.com/courserate-sg/server/internal/domain/reviews"
	"github.com/courserate-sg/server/internal/domain/search"
	"github.com/courserate-sg/server/internal/domain/universities"
	"github.com/courserate-sg/server/internal/metrics"
	"github.com/courserate-sg/server/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Services are the domain services the HTTP layer dispatches to.
type Services struct {
	Reviews      handlers.ReviewService
	Courses      handlers.CourseService
	Professors   handlers.ProfessorService
	Universities handlers.UniversityService
	Search       handlers.SearchService
}

// NewServices builds every domain service on top of repo. refresher receives
// review-count refreshes after writes; it may be nil.
func NewServices(repo storage.Repository, refresher reviews.CountRefresher) Services {
	reviewRepo := repo.Reviews()
	courseRepo := repo.Courses()
	professorRepo := repo.Professors()
	return Services{
		Reviews:      reviews.NewService(reviewRepo, refresher),
		Courses:      courses.NewService(courseRepo, reviewRepo),
		Professors:   professors.NewService(professorRepo, reviewRepo),
		Universities: universities.NewService(repo.Universities()),
		Search:       search.NewService(professorRepo, courseRepo, repo.Catalog()),
	}
}

type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

type Dependencies struct {
	Config   config.Config
	Logger   zerolog.Logger
	Services Services
	Verifier auth.Verifier
	Database handlers.DatabasePinger
	Build    BuildInfo
}

// Router is the assembled HTTP handler plus the background state it owns.
type Router struct {
	Handler http.Handler
	limiter *middleware.RateLimiter
}

// Close stops the rate limiter's cleanup goroutine.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Stop()
	}
}

func NewRouter(deps Dependencies) *Router {
	cfg := deps.Config
	env := cfg.Environment
	base := cfg.Server.APIBasePath()
	limiter := middleware.NewRateLimiter(cfg.RateLimit)

	reviewsHandler := handlers.NewReviewsHandler(deps.Services.Reviews, env)
	reviewsHandler.Audit = audit.NewLoggerWithZerolog(deps.Logger)
	coursesHandler := handlers.NewCoursesHandler(deps.Services.Courses, env)
	professorsHandler := handlers.NewProfessorsHandler(deps.Services.Professors, env)
	universitiesHandler := handlers.NewUniversitiesHandler(deps.Services.Universities, env)
	searchHandler := handlers.NewSearchHandler(deps.Services.Search, env)
	health := handlers.NewHealthChecker(deps.Database)

	optionalUser := middleware.OptionalUser(deps.Verifier)
	public := func(h http.HandlerFunc) http.Handler {
		return optionalUser(middleware.UserRateLimitTier(limiter.Middleware(h)))
	}
	requireUser := middleware.RequireUser(deps.Verifier, env)
	authenticated := func(h http.HandlerFunc) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierAuthenticated)(
			limiter.Middleware(requireUser(h)),
		)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(notFoundHandler))

	mux.Handle("/health", methodMux(map[string]http.Handler{http.MethodGet: http.HandlerFunc(health.Health)}))
	mux.Handle("/health/detailed", methodMux(map[string]http.Handler{http.MethodGet: http.HandlerFunc(health.Detailed)}))
	mux.Handle("/version", VersionHandler(deps.Build.Version, deps.Build.GitCommit, deps.Build.BuildDate))
	if cfg.Metrics.Enabled {
		mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry}))
	}

	mux.Handle(base+"/ping", methodMux(map[string]http.Handler{http.MethodGet: public(health.Ping)}))
	mux.Handle(base+"/openapi.json", OpenAPIHandler())

	mux.Handle(base+"/reviews", methodMux(map[string]http.Handler{
		http.MethodGet:  public(reviewsHandler.List),
		http.MethodPost: authenticated(reviewsHandler.Create),
	}))
	mux.Handle(base+"/reviews/me", methodMux(map[string]http.Handler{http.MethodGet: authenticated(reviewsHandler.Mine)}))
	mux.Handle(base+"/reviews/stats", methodMux(map[string]http.Handler{http.MethodGet: public(reviewsHandler.Stats)}))
	mux.Handle(base+"/reviews/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    public(reviewsHandler.Get),
		http.MethodPut:    authenticated(reviewsHandler.Update),
		http.MethodDelete: authenticated(reviewsHandler.Delete),
	}))

	mux.Handle(base+"/courses", methodMux(map[string]http.Handler{http.MethodGet: public(coursesHandler.List)}))
	mux.Handle(base+"/courses/{id}", methodMux(map[string]http.Handler{http.MethodGet: public(coursesHandler.Get)}))
	mux.Handle(base+"/courses/{id}/reviews", methodMux(map[string]http.Handler{http.MethodGet: public(coursesHandler.Reviews)}))
	mux.Handle(base+"/courses/{id}/stats", methodMux(map[string]http.Handler{http.MethodGet: public(coursesHandler.Stats)}))
	mux.Handle(base+"/courses/{id}/professors", methodMux(map[string]http.Handler{http.MethodGet: public(coursesHandler.Professors)}))

	mux.Handle(base+"/professors", methodMux(map[string]http.Handler{http.MethodGet: public(professorsHandler.List)}))
	mux.Handle(base+"/professors/{id}", methodMux(map[string]http.Handler{http.MethodGet: public(professorsHandler.Get)}))
	mux.Handle(base+"/professors/{id}/reviews", methodMux(map[string]http.Handler{http.MethodGet: public(professorsHandler.Reviews)}))
	mux.Handle(base+"/professors/{id}/stats", methodMux(map[string]http.Handler{http.MethodGet: public(professorsHandler.Stats)}))

	mux.Handle(base+"/universities", methodMux(map[string]http.Handler{http.MethodGet: public(universitiesHandler.List)}))
	mux.Handle(base+"/universities/{id}", methodMux(map[string]http.Handler{http.MethodGet: public(universitiesHandler.Get)}))

	mux.Handle(base+"/search/professors", methodMux(map[string]http.Handler{http.MethodGet: public(searchHandler.Professors)}))
	mux.Handle(base+"/search/courses", methodMux(map[string]http.Handler{http.MethodGet: public(searchHandler.Courses)}))
	mux.Handle(base+"/search/global", methodMux(map[string]http.Handler{http.MethodGet: public(searchHandler.Global)}))
	mux.Handle(base+"/search/stats", methodMux(map[string]http.Handler{http.MethodGet: public(searchHandler.Stats)}))

	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodySize
	}

	// Outermost first.
	chain := []func(http.Handler) http.Handler{
		middleware.CorrelationID(deps.Logger),
		middleware.Tracing,
		metrics.HTTPMiddleware,
		middleware.RequestLogging(deps.Logger),
		middleware.Recoverer(env),
		middleware.SecurityHeaders(cfg.IsProduction()),
		middleware.CORS(cfg.CORS, deps.Logger),
		middleware.RequestSize(maxBody),
	}
	var handler http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}

	return &Router{Handler: handler, limiter: limiter}
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	problem.Status(w, r, http.StatusNotFound, "Not Found")
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodHead {
			if handler, ok := handlers[http.MethodGet]; ok {
				handler.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		problem.Status(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
