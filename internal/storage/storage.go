package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/model"
)

const archivePrefix = "scheduler"

// Storage archives scheduler documents the device accepted.
type Storage interface {
	Archive(ctx context.Context, state model.SchedulerState, at time.Time) (string, error)
	Read(ctx context.Context, key string) (model.SchedulerState, error)
}

type LocalStorage struct {
	dir string
}

type SpacesStorage struct {
	client   *s3.S3
	bucket   string
	cdnURL   string
	endpoint string
}

func NewLocalStorage(dir string) *LocalStorage {
	return &LocalStorage{dir: dir}
}

func NewSpacesStorage(endpoint, region, bucket, cdnURL, accessKey, secretKey string) (*SpacesStorage, error) {
	config := &aws.Config{
		Credentials:      credentials.NewStaticCredentials(accessKey, secretKey, ""),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(region),
		S3ForcePathStyle: aws.Bool(false),
	}

	sess, err := session.NewSession(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &SpacesStorage{
		client:   s3.New(sess),
		bucket:   bucket,
		cdnURL:   cdnURL,
		endpoint: endpoint,
	}, nil
}

// archiveKey names a snapshot by the UTC time it was saved.
func archiveKey(at time.Time) string {
	return path.Join(archivePrefix, fmt.Sprintf("state_%s.json", at.UTC().Format("20060102_150405.000")))
}

func encode(state model.SchedulerState) ([]byte, error) {
	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode scheduler state: %w", err)
	}
	return b, nil
}

func decode(r io.Reader) (model.SchedulerState, error) {
	var st model.SchedulerState
	if err := json.NewDecoder(r).Decode(&st); err != nil {
		return st, fmt.Errorf("decode archived state: %w", err)
	}
	return st, nil
}

func (ls *LocalStorage) Archive(_ context.Context, state model.SchedulerState, at time.Time) (string, error) {
	key := archiveKey(at)
	b, err := encode(state)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(ls.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := os.WriteFile(dst, b, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	log.Debug().Str("key", key).Int("schedules", len(state.Schedules)).Msg("scheduler state archived")
	return key, nil
}

func (ls *LocalStorage) Read(_ context.Context, key string) (model.SchedulerState, error) {
	f, err := os.Open(filepath.Join(ls.dir, filepath.FromSlash(path.Clean("/" + key))))
	if err != nil {
		return model.SchedulerState{}, fmt.Errorf("open archive %q: %w", key, err)
	}
	defer f.Close()
	return decode(f)
}

func (ss *SpacesStorage) Archive(ctx context.Context, state model.SchedulerState, at time.Time) (string, error) {
	key := archiveKey(at)
	b, err := encode(state)
	if err != nil {
		return "", err
	}

	_, err = ss.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ss.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(b),
		ContentType: aws.String("application/json"),
		ACL:         aws.String("private"),
	})
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("Failed to upload archive to Spaces")
		return "", fmt.Errorf("failed to upload to Spaces: %w", err)
	}
	return key, nil
}

func (ss *SpacesStorage) Read(ctx context.Context, key string) (model.SchedulerState, error) {
	out, err := ss.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ss.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return model.SchedulerState{}, fmt.Errorf("failed to fetch %q from Spaces: %w", key, err)
	}
	defer out.Body.Close()
	return decode(out.Body)
}
