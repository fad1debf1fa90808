package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	echoapi "github.com/eacna/portal/apps/api/echo"
	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/event"
	"github.com/eacna/portal/core/livelist"
	"github.com/eacna/portal/core/member"
	"github.com/eacna/portal/core/payment"
	"github.com/eacna/portal/core/query"
	"github.com/eacna/portal/core/specialist"
	emailsvc "github.com/eacna/portal/services/email"
	feedsvc "github.com/eacna/portal/services/feed"
	logsvc "github.com/eacna/portal/services/logger"
	"github.com/eacna/portal/storage/database"
	sqlxrepos "github.com/eacna/portal/storage/database/sqlx"
	"github.com/eacna/portal/storage/object"
	miniostore "github.com/eacna/portal/storage/object/minio"
)

const shutdownTimeout = 20 * time.Second

func main() {
	conf := core.Conf

	// set up logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	var logger core.Logger
	if conf.Rollbar.Token != "" {
		rl := logsvc.NewRollbarLogger(std, conf)
		rl.Enable(!conf.Debug)
		logger = rl
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	defer func() { _ = db.Close() }()
	if err = database.Migrate(db.DB); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	// set up change feed
	var feed core.ChangeFeed
	var redisFeed *feedsvc.RedisFeed
	if conf.Redis.Addr != "" {
		redisFeed, err = feedsvc.NewRedisFeed(conf.Redis)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
		}
		defer func() { _ = redisFeed.Close() }()
		feed = redisFeed
	}

	// set up object store
	var objects object.Store
	if conf.ObjectStore.Endpoint != "" {
		objects, err = miniostore.New(context.Background(), conf.ObjectStore)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to object store: %v", err), err)
		}
	}

	// set up mail
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	// set up validation
	validate, translator := core.NewValidator()
	member.RegisterValidators(validate, translator)
	event.RegisterValidators(validate, translator)
	query.RegisterValidators(validate, translator)

	// set up services
	memberRepo := sqlxrepos.NewMemberRepository(db)
	payRepo := sqlxrepos.NewPaymentRepository(db)
	memberSvc := member.NewService(memberRepo, payRepo, mailSvc, feed, logger)
	paymentSvc := payment.NewService(payRepo, sqlxrepos.NewDonationRepository(db), feed, logger)
	specialistSvc := specialist.NewService(sqlxrepos.NewSpecialistRepository(db), objects, feed, logger)
	eventSvc := event.NewService(sqlxrepos.NewEventRepository(db), feed, logger)
	querySvc := query.NewService(sqlxrepos.NewQueryRepository(db), mailSvc, feed, logger)

	// keep the admin live events view current across processes: admin
	// writes land here through the redis feed, not a request-time query
	var eventList *livelist.List[event.Event]
	if redisFeed != nil {
		src := feedsvc.NewSource(redisFeed, core.FeedEvents, func(ctx context.Context) ([]event.Event, error) {
			return eventSvc.Query(ctx, nil)
		})
		eventList, err = livelist.Open(context.Background(), livelist.Options[event.Event]{
			Source: src,
			Less:   func(a, b event.Event) bool { return a.Date.Before(b.Date) },
			ID:     func(evt event.Event) string { return evt.ID },
		})
		if err != nil {
			logger.Fatal(fmt.Sprintf("opening events live list: %v", err), err)
		}
		defer func() { _ = eventList.Close() }()
	}

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// start API server
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:       conf.Server.Addr,
		MemberSvc:     memberSvc,
		PaymentSvc:    paymentSvc,
		SpecialistSvc: specialistSvc,
		EventSvc:      eventSvc,
		QuerySvc:      querySvc,
		EventList:     eventList,
		Validate:      validate,
		Translator:    translator,
		Logger:        logger,
		ShutdownSignal: func() {
			shutdown <- syscall.SIGTERM
		},
	})
	go server.Start()

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}
