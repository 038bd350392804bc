package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/denismitr/heroic/internal/media"
	"github.com/denismitr/heroic/internal/media/manipulator"
	"github.com/pkg/errors"
)

var ErrSourceTooLarge = errors.New("image is larger than the editor accepts")
var ErrUnexpectedResponse = errors.New("unexpected response from the image editor")

const (
	editPath    = "/api/image-editor"
	presetsPath = "/api/image-editor/presets"
	userHeader  = "X-User-ID"
)

// APIError is a non 2xx answer of the image editor
type APIError struct {
	StatusCode int
	Message    string
	Details    string
	Fields     map[string]string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("image editor responded %d: %s: %s", e.StatusCode, e.Message, e.Details)
	}

	return fmt.Sprintf("image editor responded %d: %s", e.StatusCode, e.Message)
}

type Config struct {
	// BaseURL of the editor service, e.g. http://localhost:3000
	BaseURL string
	// UserID is sent along so edits show up in the user's activity
	UserID string
	// MaxUploadSize such as 25M, sources above it are rejected before sending
	MaxUploadSize string
	Timeout       time.Duration
}

// Client talks to the image editor service
type Client struct {
	baseURL   string
	userID    string
	maxUpload uint64
	http      *http.Client
}

func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("image editor base url is required")
	}

	var maxUpload uint64
	if cfg.MaxUploadSize != "" {
		v, err := bytefmt.ToBytes(cfg.MaxUploadSize)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid max upload size %q", cfg.MaxUploadSize)
		}
		maxUpload = v
	}

	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userID:    cfg.UserID,
		maxUpload: maxUpload,
		http:      httpClient,
	}, nil
}

// Render sends the source and every field of the state to the editor and returns the png it produced
func (c *Client) Render(ctx context.Context, source media.Source, s manipulator.EditState) ([]byte, error) {
	if c.maxUpload > 0 && uint64(source.Size()) > c.maxUpload {
		return nil, errors.Wrapf(
			ErrSourceTooLarge, "%s is %s, limit is %s",
			source.Filename, bytefmt.ByteSize(uint64(source.Size())), bytefmt.ByteSize(c.maxUpload))
	}

	body, contentType, err := encodeForm(source, s)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+editPath, body)
	if err != nil {
		return nil, errors.Wrap(err, "could not build edit request")
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "image/png")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "could not read edited image")
	}

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "image/png") {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "content type %q", ct)
	}

	return out, nil
}

// Presets fetches the presets the editor knows about
func (c *Client) Presets(ctx context.Context) ([]manipulator.Preset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+presetsPath, nil)
	if err != nil {
		return nil, errors.Wrap(err, "could not build presets request")
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Presets []manipulator.Preset `json:"presets"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrapf(ErrUnexpectedResponse, "could not decode presets: %v", err)
	}

	return payload.Presets, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.userID != "" {
		req.Header.Set(userHeader, c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	return resp, nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	var payload struct {
		Error   string            `json:"error"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || json.Unmarshal(data, &payload) != nil {
		return apiErr
	}

	if payload.Error != "" {
		apiErr.Message = payload.Error
	}

	apiErr.Details = payload.Message
	apiErr.Fields = payload.Details

	return apiErr
}

func encodeForm(source media.Source, s manipulator.EditState) (io.Reader, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := s.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, "", errors.Wrapf(err, "could not write field %s", k)
		}
	}

	filename := source.Filename
	if filename == "" {
		filename = "image"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(filename)))
	h.Set("Content-Type", source.Mime())

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", errors.Wrap(err, "could not create file part")
	}

	if _, err := part.Write(source.Content); err != nil {
		return nil, "", errors.Wrap(err, "could not write file part")
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "could not close multipart body")
	}

	return body, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
