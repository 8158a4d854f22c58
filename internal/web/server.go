// Package web serves the operator's control page: a login, one toggle
// button and the current poller status.
package web

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/domain/appointment"
	"github.com/Pairs34/CerrahPasaRandevu/internal/logger"
	"github.com/Pairs34/CerrahPasaRandevu/internal/notify"
	"github.com/Pairs34/CerrahPasaRandevu/internal/poller"
)

//go:embed templates/*.html
var fs embed.FS

// Controller is the part of the poller the page drives.
type Controller interface {
	Toggle() poller.State
	State() poller.State
	RunID() string
}

type Server struct {
	Auth     *Auth
	Poller   Controller
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger

	mu      sync.Mutex
	message string
	slot    appointment.TimeSlot
}

type tmplData struct {
	Title    string
	Operator string

	Flash  string
	Status Status
}

// Status is the body of GET /status.
type Status struct {
	State   string `json:"state"`
	Label   string `json:"label"`
	RunID   string `json:"run_id,omitempty"`
	Message string `json:"message,omitempty"`
	Slot    string `json:"slot,omitempty"`
}

// Booked records the success message for the page. Wire it to the poller's
// OnBooked hook.
func (s *Server) Booked(slot appointment.TimeSlot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = notify.SuccessMessage
	s.slot = slot
}

func (s *Server) status() Status {
	st := s.Poller.State()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:   st.String(),
		Label:   st.Label(),
		RunID:   s.Poller.RunID(),
		Message: s.message,
		Slot:    s.slot.String(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Get("/login", s.handleLogin)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.RequireAuth)
		r.Get("/", s.handleHome)
		r.Post("/toggle", s.handleToggle)
		r.Get("/status", s.handleStatus)
	})
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	log := logger.OrNop(s.Logger).Named("web")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	st := s.status()
	s.render(w, "templates/home.html", tmplData{
		Title:    "Randevu",
		Operator: OperatorFromContext(r.Context()),
		Flash:    st.Message,
		Status:   st,
	})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	if s.Poller.Toggle() == poller.Polling {
		s.mu.Lock()
		s.message, s.slot = "", appointment.TimeSlot{}
		s.mu.Unlock()
	}
	if wantsJSON(r) {
		s.writeStatus(w)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeStatus(w)
}

func (s *Server) writeStatus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s.render(w, "templates/login.html", tmplData{Title: "Giriş"})
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	username := strings.TrimSpace(r.FormValue("username"))
	if !s.Auth.Authenticate(username, r.FormValue("password")) {
		s.render(w, "templates/login.html", tmplData{Title: "Giriş", Flash: "Kullanıcı adı veya şifre hatalı"})
		return
	}
	if err := s.Auth.SetSession(w, r); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// Start serves h until ctx is done, then shuts down gracefully.
func Start(ctx context.Context, addr string, h http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.OrNop(log).Info("listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
