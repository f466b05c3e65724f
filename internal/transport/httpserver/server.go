package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Deepnarayan70/ai-stock-trading-simulator/config"
	"github.com/Deepnarayan70/ai-stock-trading-simulator/internal/transport/httpserver/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

type Server struct {
	cfg     *config.Config
	httpSrv *http.Server
}

func NewServer(cfg *config.Config, ctrl *Controller) *Server {
	router := mux.NewRouter()
	router.Use(middleware.Logger)

	router.HandleFunc("/health", ctrl.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/register", ctrl.Register).Methods(http.MethodPost)
	api.HandleFunc("/login", ctrl.Login).Methods(http.MethodPost)
	api.HandleFunc("/logout", ctrl.Logout).Methods(http.MethodPost)
	api.HandleFunc("/quotes/{symbol}", ctrl.Quote).Methods(http.MethodGet)

	authed := api.NewRoute().Subrouter()
	authed.Use(ctrl.Auth)
	authed.HandleFunc("/buy", ctrl.Buy).Methods(http.MethodPost)
	authed.HandleFunc("/sell", ctrl.Sell).Methods(http.MethodPost)
	authed.HandleFunc("/portfolio", ctrl.Portfolio).Methods(http.MethodGet)
	authed.HandleFunc("/transactions", ctrl.Transactions).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/export", ctrl.ExportTransactions).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return &Server{
		cfg: cfg,
		httpSrv: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
			Handler:      c.Handler(router),
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
		},
	}
}

func (s *Server) Start() {
	go func() {
		slog.Info("http server starting", slog.String("addr", s.httpSrv.Addr))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server failed", slog.String("err", err.Error()))
			panic(err)
		}
	}()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := s.httpSrv.Shutdown(ctx); err != nil {
		slog.Error("http server shutdown failed", slog.String("err", err.Error()))
		return
	}
	slog.Info("http server stopped")
}
