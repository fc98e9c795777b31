package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/app"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/config"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/store"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/tests/testutil"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const testSecret = "test_secret_key_12345"

type testServer struct {
	app *app.App
	mr  *miniredis.Miniredis
}

func setupServer(t *testing.T, users ...string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewDB(t)
	mr, rdb := testutil.NewRedis(t)
	testutil.SeedUsers(t, db, users...)

	cfg := &config.Config{
		JWTSecret:   testSecret,
		FrontendURL: "http://localhost:5173",
		OpTimeout:   time.Second,
	}
	return &testServer{app: app.New(cfg, db, store.NewGormMessageStore(db), rdb), mr: mr}
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	tok, err := utils.GenerateToken(userID, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) connect(t *testing.T, userID string) *testutil.FakeConn {
	t.Helper()
	conn := testutil.NewConn(userID + "-" + time.Now().Format("150405.000000000"))
	_, err := s.app.Hub.Connect(context.Background(), conn, tokenFor(t, userID))
	require.NoError(t, err)
	return conn
}

func performRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var bodyReader *strings.Reader
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		bodyReader = strings.NewReader(string(jsonBytes))
	} else {
		bodyReader = strings.NewReader("")
	}

	req, _ := http.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
