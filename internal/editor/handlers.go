package editor

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/denismitr/heroic/internal/activity"
	"github.com/denismitr/heroic/internal/media/manipulator"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// recording an activity never holds the response for longer than this
const activityTimeout = 2 * time.Second

const maxActivityLimit = 100

func (s *Server) editImage(c echo.Context) error {
	ctx := c.Request().Context()
	user := s.identifier.Identify(c.Request())

	if err := s.authorizeEdit(ctx, user); err != nil {
		return err
	}

	file, err := c.FormFile("file")
	if err != nil {
		return &httpError{statusCode: http.StatusBadRequest, message: msgNoImage, cause: err}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return &httpError{statusCode: http.StatusBadRequest, message: msgNoImage, cause: err}
	}

	state := manipulator.NormalizeForm(form)

	source, err := file.Open()
	if err != nil {
		return editorFailed(err)
	}
	defer source.Close()

	if s.cfg.EditTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.EditTimeout)
		defer cancel()
	}

	buf := &bytes.Buffer{}
	start := time.Now()
	result, err := s.editor.Edit(ctx, source, buf, state)
	s.metrics.observeEdit(result, err, time.Since(start))
	if err != nil {
		return editorFailed(err)
	}

	s.logger.WithFields(logrus.Fields{
		"file":   file.Filename,
		"format": result.SourceFormat,
		"width":  result.Width,
		"height": result.Height,
		"size":   result.Size,
		"steps":  result.Steps,
	}).Debugln("image edited")

	if user != nil {
		s.recordActivity(user, file.Filename)
	}

	h := c.Response().Header()
	h.Set("Cache-Control", "no-store")
	// Disable Content-Type sniffing
	h.Set("X-Content-Type-Options", "nosniff")

	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}

func (s *Server) authorizeEdit(ctx context.Context, user *User) error {
	if !s.cfg.RequireSubscription {
		return nil
	}

	if user == nil {
		return &httpError{statusCode: http.StatusPaymentRequired, message: msgSubscriptionRequired}
	}

	ok, err := s.entitlements.HasActiveSubscription(ctx, user.ID)
	if err != nil {
		return toHTTPError(err)
	}

	if !ok {
		return &httpError{statusCode: http.StatusPaymentRequired, message: msgSubscriptionRequired}
	}

	return nil
}

// recordActivity is best effort, the edit already succeeded
func (s *Server) recordActivity(user *User, filename string) {
	ctx, cancel := context.WithTimeout(context.Background(), activityTimeout)
	defer cancel()

	if _, err := s.activity.Record(ctx, activity.EditedImageTitle(filename), activity.KindImageEditor, user.ID); err != nil {
		s.metrics.activityFailed.Inc()
		s.logger.WithError(err).WithField("user", user.ID).Errorln("could not record image editor activity")
	}
}

type presetsResponse struct {
	Presets []manipulator.Preset `json:"presets"`
}

func (s *Server) listPresets(c echo.Context) error {
	return c.JSON(http.StatusOK, presetsResponse{Presets: manipulator.Presets()})
}

type activityResponse struct {
	Activity []activity.Entry `json:"activity"`
}

func (s *Server) recentActivity(c echo.Context) error {
	user := s.identifier.Identify(c.Request())
	if user == nil {
		return &httpError{statusCode: http.StatusUnauthorized, message: msgUnauthorized}
	}

	limit, err := intFromQueryStringOrDefault(c.QueryParam("limit"), DefaultActivityLimit)
	if err != nil || limit < 1 || limit > maxActivityLimit {
		return &httpError{
			statusCode: http.StatusUnprocessableEntity,
			message:    msgInvalidData,
			details:    map[string]string{"limit": "must be an integer between 1 and " + strconv.Itoa(maxActivityLimit)},
		}
	}

	entries, err := s.activity.Recent(c.Request().Context(), user.ID, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, activityResponse{Activity: entries})
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func intFromQueryStringOrDefault(input string, def int) (int, error) {
	if input == "" {
		return def, nil
	}

	v, err := strconv.Atoi(input)
	if err != nil {
		return 0, err
	}

	return v, nil
}
