package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atrium/config"
	"atrium/internal/api"
	"atrium/internal/auth"
	"atrium/internal/authapi"
	"atrium/internal/db"
	"atrium/internal/health"
	"atrium/internal/logs"
	"atrium/internal/mailer"
	"atrium/internal/middleware"
	"atrium/internal/models"
	"atrium/internal/repo"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type App struct {
	cfg        *config.Config
	db         *gorm.DB
	Router     *mux.Router
	httpServer *http.Server

	ctx    context.Context
	cancel context.CancelFunc
}

func (a *App) Initialize(cfg *config.Config) {
	a.cfg = cfg

	/* 1) Логи */
	logs.Init(logs.Options{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		File:   a.cfg.Logging.File,
	})

	/* 2) DB */
	d, err := db.Open(a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	a.db = d

	if err := a.db.AutoMigrate(
		&models.User{},
		&models.UserProfile{},
		&models.Department{},
		&models.Role{},
		&models.MagicToken{},
		&models.RevokedToken{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.TaskAttachment{},
	); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	/* 3) Сторы и сервисы */
	users := repo.NewUserStore(a.db)
	tokens := repo.NewTokenStore(a.db)
	depts := repo.NewDepartmentStore(a.db)
	roles := repo.NewRoleStore(a.db)
	projects := repo.NewProjectStore(a.db)
	tasks := repo.NewTaskStore(a.db)
	atts := repo.NewAttachmentStore(a.db)

	ts := auth.NewTokenService(
		a.cfg.Auth.SecretKey,
		time.Duration(a.cfg.Auth.AccessTTLMin)*time.Minute,
		time.Duration(a.cfg.Auth.RefreshTTLDays)*24*time.Hour,
	)

	magic := auth.NewMagicService(users, tokens, a.buildMailer(),
		time.Duration(a.cfg.Auth.MagicLinkTTLMin)*time.Minute,
		a.cfg.Auth.FrontendURL,
	)

	google := auth.NewGoogleProvider(
		a.cfg.Google.ClientID,
		a.cfg.Google.ClientSecret,
		a.cfg.Google.RedirectURL,
	)

	/* 4) Router + middleware */
	a.Router = mux.NewRouter().StrictSlash(true)
	a.Router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.LoggerMW,
	)

	/* 5) Health */
	health.RegisterRoutesWithDB(a.Router, a.db) // /healthz, /readyz

	/* 6) Auth + enterprise API */
	authMW := auth.Middleware(ts, users)
	authapi.RegisterRoutes(a.Router, authapi.NewHandler(users, tokens, ts, magic, google), authMW)
	api.RegisterRoutes(a.Router, api.NewHandler(users, depts, roles, projects, tasks, atts), authMW)

	/* (необязательно) вывести известные маршруты в лог при старте */
	_ = a.Router.Walk(func(rt *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, _ := rt.GetPathTemplate()
		methods, _ := rt.GetMethods()
		if len(methods) == 0 {
			methods = []string{"ANY"}
		}
		log.Printf("route: %-6v %s", methods, path)
		return nil
	})
}

// buildMailer собирает SMTP-отправителя; без настроенного SMTP письма
// уходят в лог (режим разработки).
func (a *App) buildMailer() auth.Mailer {
	if a.cfg.SMTP.Host == "" {
		logs.Logger.Warn("smtp.host is empty, magic links will be logged instead of emailed")
		return devMailer{}
	}
	m, err := mailer.New(mailer.Options{
		Host:     a.cfg.SMTP.Host,
		Port:     a.cfg.SMTP.Port,
		Username: a.cfg.SMTP.Username,
		Password: a.cfg.SMTP.Password,
		From:     a.cfg.SMTP.From,
		FromName: a.cfg.SMTP.FromName,
		TLS:      a.cfg.SMTP.TLS,
	})
	if err != nil {
		log.Fatalf("mailer init failed: %v", err)
	}
	return m
}

func (a *App) Run() error {
	if a.Router == nil || a.cfg == nil {
		return fmt.Errorf("server not initialized")
	}

	bind := net.JoinHostPort(a.cfg.Server.Address, a.cfg.Server.HTTPPort)

	a.ctx, a.cancel = context.WithCancel(context.Background())
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		logs.Logger.Infof("shutdown signal: %s", s)
		a.cancel()
	}()

	// Жёсткие таймауты — это важно для production
	a.httpServer = &http.Server{
		Addr:              bind,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logs.Logger.Infof("HTTP listening on %s", bind)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logs.Logger.Fatalf("http server error: %v", err)
		}
	}()

	<-a.ctx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logs.Logger.Errorf("http shutdown: %v", err)
	}
	return nil
}
