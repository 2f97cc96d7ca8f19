// Package archive exports each day's audit log to S3-compatible object
// storage as JSON lines.
package archive

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
	"github.com/dmitrijs2005/unicore/internal/logging"
	sc "github.com/dmitrijs2005/unicore/internal/server/config"
	"github.com/dmitrijs2005/unicore/internal/server/models"
	"github.com/google/uuid"
)

// Uploader is the subset of *s3.Client used by the archiver.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Source lists audit entries created in [from, to).
type Source interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]*models.HistoryEntry, error)
}

type Archiver struct {
	source   Source
	uploader Uploader
	bucket   string
	now      func() time.Time
	logger   logging.Logger
}

func NewArchiver(source Source, uploader Uploader, bucket string, l logging.Logger) *Archiver {
	return &Archiver{
		source:   source,
		uploader: uploader,
		bucket:   bucket,
		now:      time.Now,
		logger:   l.With("module", "archive"),
	}
}

// NewS3Client builds a client for the configured S3-compatible endpoint.
func NewS3Client(ctx context.Context, c *sc.Config) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		o.UsePathStyle = true
	}), nil
}

// ObjectKey returns the object key of day's archive.
func ObjectKey(day time.Time) string {
	d := day.UTC()
	return fmt.Sprintf("history/%04d/%02d/%02d.jsonl", d.Year(), int(d.Month()), d.Day())
}

type line struct {
	ID        int64                 `json:"id"`
	UserID    uuid.UUID             `json:"user_id"`
	IP        string                `json:"ip"`
	Kind      models.HistoryKind    `json:"kind"`
	CreatedAt time.Time             `json:"created_at"`
	Payload   models.HistoryPayload `json:"payload"`
}

// ArchiveDay uploads the entries of the UTC day containing day and returns
// how many were written. Days without entries are skipped.
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) (int, error) {
	d := day.UTC()
	from := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	entries, err := a.source.ListBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list history: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(line{
			ID:        e.ID,
			UserID:    e.UserID,
			IP:        e.IP,
			Kind:      e.Payload.Kind(),
			CreatedAt: e.CreatedAt,
			Payload:   e.Payload,
		}); err != nil {
			return 0, fmt.Errorf("encode entry %d: %w", e.ID, err)
		}
	}

	key := ObjectKey(from)
	_, err = a.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return 0, fmt.Errorf("upload %s: %w", key, err)
	}

	a.logger.Info(ctx, "History archived", "key", key, "entries", len(entries))
	return len(entries), nil
}

// ArchiveYesterday archives the previous UTC day.
func (a *Archiver) ArchiveYesterday(ctx context.Context) error {
	_, err := a.ArchiveDay(ctx, a.now().UTC().AddDate(0, 0, -1))
	return err
}
