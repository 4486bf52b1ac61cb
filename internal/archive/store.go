package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ErrNotFound is returned by Get when no payload was archived under the key.
var ErrNotFound = errors.New("archive: payload not found")

// Record is one webhook delivery as received, after scrubbing.
type Record struct {
	Endpoint   string          `json:"endpoint"`
	RequestID  string          `json:"request_id,omitempty"`
	Outcome    string          `json:"outcome"`
	ReceivedAt time.Time       `json:"received_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Store keeps raw webhook payloads in S3 so disputed bookings can be replayed.
type Store struct {
	bucket string
	s3     S3API
	logger *logging.Logger
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3: client, logger: logger}
}

// Enabled returns true if archival is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3 != nil
}

// Key is where a record lands: partitioned by endpoint and UTC day.
func Key(endpoint, id string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("webhooks/retell/%s/%d/%02d/%02d/%s.json", endpoint, at.Year(), at.Month(), at.Day(), id)
}

// Put scrubs and writes a record under id, returning the object key.
func (s *Store) Put(ctx context.Context, id string, rec Record) (string, error) {
	if !s.Enabled() {
		return "", nil
	}
	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now().UTC()
	}
	rec.Payload = ScrubPayload(rec.Payload)

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("archive: marshal record: %w", err)
	}
	key := Key(rec.Endpoint, id, rec.ReceivedAt)
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"outcome": rec.Outcome},
	})
	if err != nil {
		return "", fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	s.logger.Debug("archived webhook payload", "s3_key", key, "outcome", rec.Outcome)
	return key, nil
}

// Get reads an archived record back.
func (s *Store) Get(ctx context.Context, key string) (*Record, error) {
	if !s.Enabled() {
		return nil, ErrNotFound
	}
	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", key, err)
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", key, err)
	}
	return &rec, nil
}
