package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/edufi/backend/apps/api/echo"
	"github.com/edufi/backend/core"
	"github.com/edufi/backend/core/lesson"
	"github.com/edufi/backend/core/user"
	logsvc "github.com/edufi/backend/services/logger"
	"github.com/edufi/backend/storage/database"
	sqlxrepos "github.com/edufi/backend/storage/database/sqlx"
)

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)
	if err := run(std); err != nil {
		std.Fatalf("%+v", err)
	}
}

func run(std *log.Logger) error {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(std, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer db.Close()
	if err = database.WaitForDB(db); err != nil {
		return err
	}
	if err = database.Migrate(db); err != nil {
		return err
	}
	xdb := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(xdb))
	lessonSvc := lesson.NewService(sqlxrepos.NewLessonRepository(xdb))

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	app := echoapi.NewServer(&echoapi.Options{
		Address:   conf.Server.Address(),
		Conf:      conf,
		Logger:    logger,
		UserSvc:   usrSvc,
		LessonSvc: lessonSvc,
		SignalShutdown: func() {
			shutdown <- syscall.SIGTERM
		},
	})

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("server listening on " + conf.Server.Address())
		serverErrors <- app.Start()
	}()

	select {
	case err := <-serverErrors:
		return errors.Wrap(err, "server error")
	case sig := <-shutdown:
		logger.Info("shutdown started", map[string]interface{}{"signal": sig.String()})
		defer logger.Info("shutdown complete")

		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Stop(ctx); err != nil {
			return errors.Wrap(err, "stopping server gracefully")
		}
	}
	return nil
}
