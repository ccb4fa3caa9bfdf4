// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

func newTestServer(t *testing.T, allowedOrigins ...string) *server {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = listener.Close()
	})

	s, err := New(
		log.NewNoOpLogger(),
		listener,
		allowedOrigins,
		time.Second,
		metric.NewRegistry(),
		DefaultHTTPConfig,
	)
	require.NoError(t, err)
	return s.(*server)
}

func TestAddRoute(t *testing.T) {
	require := require.New(t)

	s := newTestServer(t)
	teapot := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	require.NoError(s.AddRoute(teapot, "namevm", ""))

	err := s.AddRoute(teapot, "namevm", "")
	require.ErrorIs(err, errDuplicateRoute)

	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ext/namevm", nil))
	require.Equal(http.StatusTeapot, w.Code)

	w = httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ext/unknown", nil))
	require.Equal(http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	require := require.New(t)

	s := newTestServer(t, "http://example.com")
	require.NoError(s.AddRoute(http.NotFoundHandler(), "namevm", ""))

	req := httptest.NewRequest(http.MethodOptions, "/ext/namevm", nil)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(w, req)
	require.Equal("http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestDispatchAndShutdown(t *testing.T) {
	require := require.New(t)

	s := newTestServer(t)
	errs := make(chan error, 1)
	go func() {
		errs <- s.Dispatch()
	}()

	require.NoError(s.Shutdown())
	require.ErrorIs(<-errs, http.ErrServerClosed)
}
