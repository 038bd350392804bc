package editor

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/denismitr/heroic/internal/activity"
	"github.com/denismitr/heroic/internal/media/manipulator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ImageEditor runs one edit, *manipulator.Manipulator is the production implementation
type ImageEditor interface {
	Edit(ctx context.Context, source io.Reader, dst io.Writer, s manipulator.EditState) (*manipulator.Result, error)
}

type Server struct {
	cfg          Config
	logger       *logrus.Logger
	e            *echo.Echo
	httpServer   *http.Server
	metrics      *metrics
	editor       ImageEditor
	identifier   Identifier
	entitlements Entitlements
	activity     activity.Store
}

// Option swaps one of the collaborators of the server
type Option func(*Server)

func WithIdentifier(i Identifier) Option {
	return func(s *Server) { s.identifier = i }
}

func WithEntitlements(en Entitlements) Option {
	return func(s *Server) { s.entitlements = en }
}

func WithActivityStore(store activity.Store) Option {
	return func(s *Server) { s.activity = store }
}

func NewServer(cfg Config, logger *logrus.Logger, editor ImageEditor, opts ...Option) *Server {
	cfg = cfg.withDefaults()

	s := &Server{
		cfg:          cfg,
		logger:       logger,
		e:            echo.New(),
		metrics:      newMetrics(),
		editor:       editor,
		identifier:   HeaderIdentifier{},
		entitlements: NewStaticEntitlements(),
		activity:     activity.NewMemoryStore(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.e.HideBanner = true
	s.e.HidePort = true
	s.e.HTTPErrorHandler = makeErrorHandler(logger)

	s.e.Use(requestLogger(logger))
	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	s.e.Use(s.metrics.withHTTPMetrics)

	s.e.GET("/healthz", s.healthz)
	s.e.GET("/metrics", echo.WrapHandler(s.metrics.metricsHandler()))
	s.e.GET("/api/image-editor/presets", s.listPresets)
	s.e.GET("/api/activity", s.recentActivity)
	s.e.POST("/api/image-editor", s.editImage, middleware.BodyLimit(cfg.MaxUploadSize))

	s.httpServer = &http.Server{
		Addr:              cfg.Port,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		Handler:           s.e,
		ReadHeaderTimeout: 2 * time.Second,
	}

	return s
}

// Handler exposes the routes without starting a listener
func (s *Server) Handler() http.Handler {
	return s.e
}

// Run the server
func (s *Server) Run(stopCh <-chan os.Signal, shutDownTime time.Duration) error {
	s.logger.Println("Image editor server : Starting on " + s.cfg.Port)

	serverError := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverError <- errors.Wrap(err, "http server error")
		}
	}()

	s.logger.Println("Image editor server : Started")

	select {
	case err := <-serverError:
		return err
	case <-stopCh:
		s.logger.Println("Image editor server : Received stop signal")

		ctx, cancel := context.WithTimeout(context.Background(), shutDownTime)
		defer cancel()

		if stopErr := s.httpServer.Shutdown(ctx); stopErr != nil {
			closeErr := s.httpServer.Close()
			return errors.Wrap(stopErr, "graceful shutdown failed, close: "+errString(closeErr))
		}

		return nil
	}
}

func errString(err error) string {
	if err == nil {
		return "ok"
	}

	return err.Error()
}

func requestLogger(lg *logrus.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			lg.WithFields(logrus.Fields{
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}).Info("request")

			return nil
		},
	})
}
