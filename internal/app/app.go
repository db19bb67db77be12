package app

import (
	"context"
	"reflect"

	"cleanbook/config"
	"cleanbook/internal/controllers"
	"cleanbook/internal/database"
	"cleanbook/internal/events"
	"cleanbook/internal/handlers/middleware"
	"cleanbook/internal/jobs"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"
	"cleanbook/internal/websockets"

	logger "github.com/Bparsons0904/goLogger"
)

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
	EventBus    *events.EventBus
	Config      config.Config
	Services    services.Service
	Repos       repositories.Repository
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	eventBus := events.New(db.Cache.Events)
	repos := repositories.New(db)

	services, err := services.New(db, config, repos)
	if err != nil {
		return &App{}, log.Err("failed to create services", err)
	}

	controllers := controllers.New(services, repos, eventBus, db)

	websocket, err := websockets.New(eventBus, config, controllers.Auth)
	if err != nil {
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	middleware := middleware.New(db, config, controllers.Auth)

	if err := jobs.RegisterAllJobs(services.Scheduler, config, controllers.Admin); err != nil {
		return &App{}, log.Err("failed to register jobs", err)
	}
	if err := services.Scheduler.Start(context.Background()); err != nil {
		return &App{}, log.Err("failed to start scheduler", err)
	}

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware,
		Websocket:   websocket,
		EventBus:    eventBus,
		Services:    services,
		Repos:       repos,
		Controllers: controllers,
	}

	if err := app.validate(); err != nil {
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")
	if a.Database.SQL == nil {
		return log.ErrMsg("database is nil")
	}

	if a.Config == (config.Config{}) {
		return log.ErrMsg("config is nil")
	}

	nilChecks := map[string]any{
		"websocket":            a.Websocket,
		"eventBus":             a.EventBus,
		"transactionService":   a.Services.Transaction,
		"schedulerService":     a.Services.Scheduler,
		"paymentService":       a.Services.Payment,
		"pricingService":       a.Services.Pricing,
		"authController":       a.Controllers.Auth,
		"jobsController":       a.Controllers.Jobs,
		"cleanersController":   a.Controllers.Cleaners,
		"propertiesController": a.Controllers.Properties,
		"adminController":      a.Controllers.Admin,
	}

	for name, check := range nilChecks {
		if check == nil || (reflect.ValueOf(check).Kind() == reflect.Ptr && reflect.ValueOf(check).IsNil()) {
			return log.Error("nil check failed", "component", name)
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
