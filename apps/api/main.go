package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/ujuzi/apps/api/echo"
	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/challenge"
	"github.com/trezcool/ujuzi/core/community"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/learning"
	"github.com/trezcool/ujuzi/core/user"
	emailsvc "github.com/trezcool/ujuzi/services/email"
	logsvc "github.com/trezcool/ujuzi/services/logger"
	"github.com/trezcool/ujuzi/storage/cache"
	"github.com/trezcool/ujuzi/storage/database"
	"github.com/trezcool/ujuzi/storage/database/sqlxrepos"
	"github.com/trezcool/ujuzi/storage/dummy"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up the leaderboard cache; fall back to in-memory when Redis is not configured
	var lbCache gamify.LeaderboardCache
	if conf.Redis.Address != "" {
		redisCache, err := cache.NewLeaderboardCache(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up redis: %v", err), err)
		}
		defer redisCache.Close()
		lbCache = redisCache
	} else {
		logger.Warn("redis not configured; using in-memory leaderboard cache")
		lbCache = dummy.NewLeaderboardCache()
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	usersRepo := sqlxrepos.NewUserRepository(db)
	gameRepo := sqlxrepos.NewGamifyRepository(db)
	learnRepo := sqlxrepos.NewLearningRepository(db)
	commRepo := sqlxrepos.NewCommunityRepository(db)
	chalRepo := sqlxrepos.NewChallengeRepository(db)

	usrSvc := user.NewService(usersRepo, mailSvc, conf)
	gameSvc := gamify.NewService(db, gameRepo, usersRepo, lbCache, gamify.DefaultRules(), logger)
	learnSvc := learning.NewService(db, learnRepo, gameSvc, logger)
	commSvc := community.NewService(db, commRepo)
	chalSvc := challenge.NewService(db, chalRepo, gameSvc, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			UserSvc:      usrSvc,
			GameSvc:      gameSvc,
			LearnSvc:     learnSvc,
			CommunitySvc: commSvc,
			ChallengeSvc: chalSvc,
			Validate:     validate,
			Translator:   translator,
		},
	)

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*database.DB, error) {
	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
