package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"github.com/rahul4469/visionai/internal/config"
	"github.com/rahul4469/visionai/internal/controllers"
	"github.com/rahul4469/visionai/internal/middleware"
	"github.com/rahul4469/visionai/internal/models"
	"github.com/rahul4469/visionai/internal/services"
	"github.com/rahul4469/visionai/internal/views"
	"github.com/rahul4469/visionai/templates"
)

func run(ctx context.Context, cfg *config.Config) error {
	// Setup Services ---------------
	if cfg.Inference.APIKey == "" || cfg.Inference.BaseURL == "" {
		log.Println("Warning: inference credentials are not set, analyses will fail until they are")
	}
	inference := services.NewInferenceClient(
		cfg.Inference.APIKey,
		cfg.Inference.BaseURL,
		cfg.Inference.Model,
		cfg.Inference.Timeout,
	)
	analyzer := services.NewMealAnalyzer(inference)
	sessionService := models.NewSessionService(cfg.Security.SessionDuration)

	// Setup Templates ---------------
	views.TemplateFS = templates.FS
	analyzeCtrl := controllers.NewAnalyzeController(
		sessionService,
		analyzer,
		controllers.AnalyzeTemplates{
			Input:   views.MustParseFS("pages/input.gohtml"),
			Results: views.MustParseFS("pages/results.gohtml"),
		},
		cfg.Limits.MaxUploadBytes,
		cfg.IsDevelopment(),
	)

	r := newRouter(cfg, sessionService, analyzeCtrl)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go pruneSessions(ctx, sessionService, time.Hour)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server at %s (%s, model %s)...", srv.Addr, cfg.Server.Environment, cfg.Inference.Model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func newRouter(cfg *config.Config, sessionService *models.SessionService, analyzeCtrl *controllers.AnalyzeController) chi.Router {
	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
	smw := middleware.NewSessionMiddleware(sessionService, cfg.Security.SessionCookieName, cfg.Security.SecureCookies)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", controllers.HealthCheck)

	r.Group(func(r chi.Router) {
		if !cfg.Security.SecureCookies {
			r.Use(plaintextHTTP)
		}
		r.Use(smw.SetSession)
		// the body cap has to apply before csrf reads the form
		r.Use(middleware.LimitUpload(cfg.Limits.MaxUploadBytes, http.HandlerFunc(analyzeCtrl.RejectTooLarge)))
		r.Use(csrfMw)

		r.Get("/", analyzeCtrl.GetHome)
		r.Post("/analyze", analyzeCtrl.PostAnalyze)
		r.Post("/reset", analyzeCtrl.PostReset)
	})

	return r
}

// plaintextHTTP tells the CSRF middleware the app is served over plain HTTP,
// so it skips the HTTPS-only Referer check.
func plaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	log.Printf("CSRF check failed: %v", csrf.FailureReason(r))
	http.Error(w, "Your form expired, please reload the page", http.StatusForbidden)
}

func pruneSessions(ctx context.Context, sessionService *models.SessionService, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := sessionService.Prune(now); n > 0 {
				log.Printf("Pruned %d expired sessions", n)
			}
		}
	}
}
