// Package backup writes encrypted snapshots of the vault to S3-compatible
// object storage. Entries leave the process exactly as they are stored, so
// a backup is useless without the master password.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/kaplunov-alex/PWMgr/internal/logging"
	sc "github.com/kaplunov-alex/PWMgr/internal/server/config"
	"github.com/kaplunov-alex/PWMgr/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in, optFns...)
	}
)

// Snapshotter yields a consistent copy of all stored entries.
type Snapshotter interface {
	Snapshot(ctx context.Context) ([]*models.Entry, error)
}

// Document is the JSON body of one backup object.
type Document struct {
	CreatedAt time.Time       `json:"created_at"`
	Entries   []*models.Entry `json:"entries"`
}

// Result describes an uploaded backup.
type Result struct {
	Key     string `json:"key"`
	Entries int    `json:"entries"`
}

type Service struct {
	source Snapshotter
	config *sc.Config
	logger logging.Logger
	now    func() time.Time
}

func NewService(source Snapshotter, config *sc.Config, logger logging.Logger) *Service {
	return &Service{
		source: source,
		config: config,
		logger: logger.With("module", "backup"),
		now:    time.Now,
	}
}

// StorageKey returns a fresh object key under backups/YYYY/M/D/.
func StorageKey(d time.Time) string {
	return fmt.Sprintf("backups/%d/%d/%d/%v.json", d.Year(), d.Month(), d.Day(), uuid.New())
}

func (s *Service) client(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// Run snapshots the vault and uploads it as a single JSON object.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	list, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if list == nil {
		list = []*models.Entry{}
	}

	now := s.now().UTC()
	body, err := json.Marshal(Document{CreatedAt: now, Entries: list})
	if err != nil {
		return nil, err
	}

	client, err := s.client(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := StorageKey(now)

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info(ctx, "backup uploaded", "key", key, "entries", len(list))
	return &Result{Key: key, Entries: len(list)}, nil
}
