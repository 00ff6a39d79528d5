package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ujuzi/core"
	"github.com/trezcool/ujuzi/core/challenge"
	"github.com/trezcool/ujuzi/core/community"
	"github.com/trezcool/ujuzi/core/gamify"
	"github.com/trezcool/ujuzi/core/learning"
	"github.com/trezcool/ujuzi/core/user"
	emailsvc "github.com/trezcool/ujuzi/services/email"
	"github.com/trezcool/ujuzi/storage/dummy"
)

type testApp struct {
	server *Server

	usersRepo *dummy.UserRepository
	gameRepo  *dummy.GamifyRepository
	learnRepo *dummy.LearningRepository
	commRepo  *dummy.CommunityRepository
	chalRepo  *dummy.ChallengeRepository

	usrSvc   user.Service
	gameSvc  gamify.Service
	learnSvc learning.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := dummy.NewDB()
	usersRepo := dummy.NewUserRepository()
	gameRepo := dummy.NewGamifyRepository(usersRepo)
	learnRepo := dummy.NewLearningRepository(gameRepo)
	commRepo := dummy.NewCommunityRepository(usersRepo)
	chalRepo := dummy.NewChallengeRepository(usersRepo)

	mailSvc := emailsvc.NewConsoleService(conf)
	usrSvc := user.NewService(usersRepo, mailSvc, conf)
	gameSvc := gamify.NewService(db, gameRepo, usersRepo, dummy.NewLeaderboardCache(), gamify.DefaultRules(), dummy.Logger{})
	learnSvc := learning.NewService(db, learnRepo, gameSvc, dummy.Logger{})
	commSvc := community.NewService(db, commRepo)
	chalSvc := challenge.NewService(db, chalRepo, gameSvc, dummy.Logger{})

	server := NewServer(ServerDeps{
		Conf:         conf,
		Logger:       dummy.Logger{},
		UserSvc:      usrSvc,
		GameSvc:      gameSvc,
		LearnSvc:     learnSvc,
		CommunitySvc: commSvc,
		ChallengeSvc: chalSvc,
		Validate:     validate,
		Translator:   translator,
	})

	return &testApp{
		server:    server,
		usersRepo: usersRepo,
		gameRepo:  gameRepo,
		learnRepo: learnRepo,
		commRepo:  commRepo,
		chalRepo:  chalRepo,
		usrSvc:    usrSvc,
		gameSvc:   gameSvc,
		learnSvc:  learnSvc,
	}
}

func (app *testApp) createUser(t *testing.T, name, uname, email, role string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, usr.SetPassword("Str0ngPassw0rd!"))

	usr, err := app.usersRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func newAuthRequest(t *testing.T, method, path, token string, body interface{}) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	return req
}

func newRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	return newAuthRequest(t, method, path, "", body)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()

	token, err := GenerateToken(GetUserClaims(usr))
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}
