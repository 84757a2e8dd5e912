package dataset

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"salestrainerdev/httpmiddleware"
	"salestrainerdev/logger"
)

// DEFAULT_DATASET is the call-center speech dataset used for reference
// recordings. Any "owner/name" Kaggle slug works.
const DEFAULT_DATASET = "axondata/call-center-speech-dataset"

type EnsureDatasetProps struct {
	Logger *logger.LogMiddleware
	Slug   string
	Dir    string
}

// EnsureDataset downloads and unpacks the Kaggle dataset into the data
// directory unless it is already there. Credentials come from
// KAGGLE_USERNAME and KAGGLE_KEY; without them (or on any download failure)
// it returns an error and the caller runs without the dataset. Never fatal.
func EnsureDataset(ctx context.Context, args EnsureDatasetProps) (string, error) {
	tracer := otel.Tracer("dataset/EnsureDataset")
	ctx, span := tracer.Start(ctx, "EnsureDataset")
	defer span.End()

	slug := args.Slug
	if slug == "" {
		slug = DEFAULT_DATASET
	}
	dir := args.Dir
	if dir == "" {
		dir = "data"
	}

	span.SetAttributes(
		attribute.String("dataset.slug", slug),
		attribute.String("dataset.dir", dir),
	)

	target := filepath.Join(dir, filepath.Base(slug))
	if entries, err := os.ReadDir(target); err == nil && len(entries) > 0 {
		args.Logger.Logger(ctx).Info("[Dataset] Dataset already present", zap.String("path", target))
		span.AddEvent("Dataset already present")
		return target, nil
	}

	username := os.Getenv("KAGGLE_USERNAME")
	key := os.Getenv("KAGGLE_KEY")
	if username == "" || key == "" {
		return "", fmt.Errorf("KAGGLE_USERNAME / KAGGLE_KEY not set, skipping dataset download")
	}

	if err := os.MkdirAll(target, 0o755); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not create dataset dir: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(username + ":" + key))
	body, err := httpmiddleware.HttpRequest(httpmiddleware.HttpRequestStruct{
		Method: "GET",
		Url:    "https://www.kaggle.com/api/v1/datasets/download/" + slug,
		Headers: map[string]string{
			"Authorization": "Basic " + auth,
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("kaggle dataset download failed: %w", err)
	}

	span.SetAttributes(attribute.Int("download.size", len(body)))

	if err := unzipInto(target, body); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("could not unpack dataset: %w", err)
	}

	args.Logger.Logger(ctx).Info("[Dataset] Downloaded dataset",
		zap.String("slug", slug),
		zap.String("path", target),
		zap.Int("archive_bytes", len(body)),
	)

	return target, nil
}

func unzipInto(dir string, archive []byte) error {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return err
	}

	for _, f := range reader.File {
		// Reject entries escaping the target dir.
		name := filepath.Clean(f.Name)
		if strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
			return fmt.Errorf("unsafe archive entry: %q", f.Name)
		}
		dest := filepath.Join(dir, name)

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}

		src, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.Create(dest)
		if err != nil {
			src.Close()
			return err
		}
		_, err = io.Copy(out, src)
		src.Close()
		out.Close()
		if err != nil {
			return err
		}
	}

	return nil
}
