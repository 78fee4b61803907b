package server

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mediadrop/internal/logging"
	"github.com/dmitrijs2005/mediadrop/internal/server/config"
	"github.com/dmitrijs2005/mediadrop/internal/server/events"
	grpcserver "github.com/dmitrijs2005/mediadrop/internal/server/grpc"
	"github.com/dmitrijs2005/mediadrop/internal/server/httpapi"
)

func TestNewApp_InvalidDSN(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.LogLevel = "error"
	c.DatabaseDSN = "postgres://%zz"

	app, err := NewApp(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, app)
	assert.Contains(t, err.Error(), "db init error")
}

func newTestApp(t *testing.T, grpcAddr string) (*App, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	app := &App{
		logger:    logging.Nop,
		db:        db,
		publisher: events.NopPublisher{},
		server:    httpapi.NewHTTPServer("127.0.0.1:0", logging.Nop, nil, nil, db.PingContext, time.Second),
		health:    grpcserver.NewGRPCServer(grpcAddr, logging.Nop, db.PingContext, time.Hour),
	}
	return app, mock
}

func TestRun_StopsBothServersOnCancel(t *testing.T) {
	app, mock := newTestApp(t, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_GRPCFailureStopsHTTP(t *testing.T) {
	app, mock := newTestApp(t, "127.0.0.1:99999")

	done := make(chan error, 1)
	go func() { done <- app.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "grpc server")
	case <-time.After(5 * time.Second):
		t.Fatal("app kept running after the gRPC listener failed")
	}
	require.NoError(t, mock.ExpectationsWereMet(), "database released")
}
