package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/denismitr/heroic/cmd/initialize"
	"github.com/denismitr/heroic/internal/client"
	"github.com/denismitr/heroic/internal/media"
	"github.com/denismitr/heroic/internal/media/manipulator"
	"github.com/denismitr/heroic/internal/session"
	"github.com/denismitr/heroic/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	presetName   string
	fields       []string
	steps        []string
	serverURL    string
	userID       string
	undoCount    int
	outPath      string
	bucket       string
	prefix       string
	local        bool
	historyLimit int
	timeout      time.Duration
)

var log *logrus.Logger

var rootCmd = &cobra.Command{
	Use:   "edit <image | s3://bucket/key>",
	Short: "Edit an image with the Heroic image editor",
	Long: `Load an image, apply a preset and field edits through the image editor
and write the result as png.

Every --then adds one more apply with its own comma separated edits.

The history keeps every applied state. --undo pops them newest first and
makes the popped one the live state, so the first undo restores the state
of the last apply and each further undo goes one apply further back.`,
	Example: `  edit photo.jpg --preset vivid --set rotation=90
  edit photo.jpg --set scale=0.5 --then grayscale=true,blur=2 --undo 2 --out small.png
  edit s3://uploads/cat.png --preset "black & white" --bucket edits`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runEdit,
}

func init() {
	rootCmd.Flags().StringVar(&presetName, "preset", "", "preset merged into the first apply: "+presetNames())
	rootCmd.Flags().StringArrayVar(&fields, "set", nil, "field=value edit for the first apply, repeatable")
	rootCmd.Flags().StringArrayVar(&steps, "then", nil, "comma separated field=value edits applied afterwards, repeatable")
	rootCmd.Flags().StringVar(&serverURL, "server", "", "image editor url, defaults to $EDITOR_URL or http://localhost:3000")
	rootCmd.Flags().StringVar(&userID, "user", "", "user id sent to the editor, defaults to $EDITOR_USER_ID")
	rootCmd.Flags().IntVar(&undoCount, "undo", 0, "applied states to pop from the history before writing, the first one is the state of the last apply")
	rootCmd.Flags().StringVar(&outPath, "out", "", "output file, defaults to <name>-edited.png")
	rootCmd.Flags().StringVar(&bucket, "bucket", "", "also export the result to this s3 bucket")
	rootCmd.Flags().StringVar(&prefix, "prefix", "", "key prefix of the s3 export")
	rootCmd.Flags().BoolVar(&local, "local", false, "render in process instead of calling the editor")
	rootCmd.Flags().IntVar(&historyLimit, "history", 0, "undo history limit, 0 keeps everything")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall time limit")
}

func main() {
	initialize.DotEnv()
	log = initialize.Logger()

	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Errorln("edit failed")
		os.Exit(1)
	}
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var remote storage.Storage
	if storage.IsLocation(args[0]) || bucket != "" {
		remote = initialize.S3StorageFromEnv()
	}

	src, err := loadSource(ctx, remote, args[0])
	if err != nil {
		return err
	}

	renderer, err := newRenderer()
	if err != nil {
		return err
	}

	s := session.New(
		renderer,
		session.WithPreviewer(manipulator.New(initialize.ManipulatorConfig())),
		session.WithHistoryLimit(historyLimit),
	)
	s.Load(src)

	if presetName != "" {
		if err := s.ApplyPreset(presetName); err != nil {
			return err
		}
	}

	if err := setFields(s, fields); err != nil {
		return err
	}

	if err := apply(ctx, s); err != nil {
		return err
	}

	for _, step := range steps {
		if err := setFields(s, strings.Split(step, ",")); err != nil {
			return err
		}

		if err := apply(ctx, s); err != nil {
			return err
		}
	}

	for i := 0; i < undoCount; i++ {
		state, ok := s.Undo()
		if !ok {
			log.Warnf("nothing left to undo after %d step(s)", i)
			break
		}
		log.WithFields(toFields(state)).Infoln("undone")
	}

	preview, exact := s.Preview()
	if !exact {
		log.Warnln("preview is the original image, the restored state was not rendered")
	}

	return write(ctx, remote, src, preview)
}

func loadSource(ctx context.Context, remote storage.Storage, location string) (media.Source, error) {
	if storage.IsLocation(location) {
		return storage.Fetch(ctx, remote, location)
	}

	content, err := os.ReadFile(location)
	if err != nil {
		return media.Source{}, errors.Wrapf(err, "could not read %s", location)
	}

	return media.Source{Filename: filepath.Base(location), Content: content}, nil
}

func newRenderer() (session.Renderer, error) {
	if local {
		return manipulator.New(initialize.ManipulatorConfig()), nil
	}

	if serverURL == "" {
		serverURL = envOrDefault("EDITOR_URL", "http://localhost:3000")
	}

	if userID == "" {
		userID = os.Getenv("EDITOR_USER_ID")
	}

	c, err := client.New(client.Config{
		BaseURL:       serverURL,
		UserID:        userID,
		MaxUploadSize: envOrDefault("EDITOR_MAX_UPLOAD", "25M"),
	}, nil)
	if err != nil {
		return nil, err
	}

	return c, nil
}

func setFields(s *session.Session, pairs []string) error {
	for _, pair := range pairs {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}

		field, value, ok := strings.Cut(pair, "=")
		if !ok {
			return errors.Errorf("edit %q must look like field=value", pair)
		}

		if err := s.SetField(strings.TrimSpace(field), value); err != nil {
			return err
		}
	}

	return nil
}

func apply(ctx context.Context, s *session.Session) error {
	start := time.Now()
	if err := s.Apply(ctx); err != nil {
		return err
	}

	preview, _ := s.Preview()
	log.WithFields(logrus.Fields{
		"size":    bytefmt.ByteSize(uint64(len(preview))),
		"elapsed": time.Since(start).Round(time.Millisecond).String(),
		"history": len(s.History()),
	}).Infoln("applied")

	return nil
}

func write(ctx context.Context, remote storage.Storage, src media.Source, preview []byte) error {
	if outPath == "" && bucket == "" {
		outPath = media.EditedFilename(src.Filename)
	}

	if outPath != "" {
		if err := os.WriteFile(outPath, preview, 0o644); err != nil {
			return errors.Wrapf(err, "could not write %s", outPath)
		}
		log.Infof("written %s (%s)", outPath, bytefmt.ByteSize(uint64(len(preview))))
	}

	if bucket != "" {
		exporter := &storage.Exporter{S: remote, Namespace: bucket, Prefix: prefix}
		item, err := exporter.Export(ctx, src, preview)
		if err != nil {
			return err
		}
		log.WithField("url", item.URL).Infof("exported %s", item.Path)
	}

	return nil
}

func toFields(s manipulator.EditState) logrus.Fields {
	out := make(logrus.Fields)
	for k, v := range s.Fields() {
		out[k] = v
	}
	return out
}

func presetNames() string {
	var names []string
	for _, p := range manipulator.Presets() {
		names = append(names, strconv.Quote(p.Name))
	}
	return strings.Join(names, ", ")
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}

	return def
}
