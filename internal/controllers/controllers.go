package controllers

import (
	"cleanbook/internal/database"
	"cleanbook/internal/events"
	"cleanbook/internal/repositories"
	"cleanbook/internal/services"

	adminController "cleanbook/internal/controllers/admin"
	authController "cleanbook/internal/controllers/auth"
	cleanersController "cleanbook/internal/controllers/cleaners"
	jobsController "cleanbook/internal/controllers/jobs"
	lookupController "cleanbook/internal/controllers/lookup"
	paymentsController "cleanbook/internal/controllers/payments"
	propertiesController "cleanbook/internal/controllers/properties"
	userController "cleanbook/internal/controllers/users"
)

type Controllers struct {
	User       userController.UserControllerInterface
	Auth       authController.AuthControllerInterface
	Properties propertiesController.PropertiesControllerInterface
	Jobs       jobsController.JobsControllerInterface
	Cleaners   cleanersController.CleanersControllerInterface
	Payments   paymentsController.PaymentsControllerInterface
	Lookup     lookupController.LookupControllerInterface
	Admin      adminController.AdminControllerInterface
}

func New(
	services services.Service,
	repos repositories.Repository,
	publisher events.Publisher,
	db database.DB,
) Controllers {
	return Controllers{
		User:       userController.New(repos, services, db),
		Auth:       authController.New(services.Clerk, repos.User, db),
		Properties: propertiesController.New(repos, db),
		Jobs:       jobsController.New(repos, services, publisher, db),
		Cleaners:   cleanersController.New(repos, services, db),
		Payments:   paymentsController.New(services),
		Lookup:     lookupController.New(services),
		Admin:      adminController.New(repos, services, db),
	}
}
