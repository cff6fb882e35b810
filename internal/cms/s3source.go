package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"github.com/alberthiggs/folio/internal/xerrors"
)

// ObjectGetter is the part of *s3.Client the mirror source uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Config struct {
	Client ObjectGetter
	Bucket string
	// Prefix is joined as {prefix}/{section}.json.
	Prefix string
	// MaxObjectBytes caps each section object, default 4 MiB.
	MaxObjectBytes int64
	// Concurrency bounds FetchAll, default one per section.
	Concurrency int
}

// S3Source reads a JSON export of the same section payloads the CMS serves.
type S3Source struct {
	client  ObjectGetter
	bucket  string
	prefix  string
	maxSize int64
	workers int
}

func NewS3Source(cfg S3Config) (*S3Source, error) {
	if cfg.Client == nil {
		return nil, xerrors.New("cms: s3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, xerrors.New("cms: s3 bucket is required")
	}
	maxSize := cfg.MaxObjectBytes
	if maxSize <= 0 {
		maxSize = defaultMaxBodyBytes
	}
	workers := cfg.Concurrency
	if workers <= 0 {
		workers = len(Sections)
	}
	return &S3Source{
		client:  cfg.Client,
		bucket:  cfg.Bucket,
		prefix:  strings.Trim(cfg.Prefix, "/"),
		maxSize: maxSize,
		workers: workers,
	}, nil
}

func (s *S3Source) key(sec Section) string {
	if s.prefix == "" {
		return string(sec) + ".json"
	}
	return fmt.Sprintf("%s/%s.json", s.prefix, sec)
}

func (s *S3Source) FetchSection(ctx context.Context, sec Section) (json.RawMessage, error) {
	key := s.key(sec)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			nf := notFound(sec)
			nf.Status = http.StatusNotFound
			return nil, nf
		}
		return nil, &ContentFetchError{
			Section: sec,
			Status:  responseStatus(err),
			Message: fmt.Sprintf("get s3://%s/%s", s.bucket, key),
			Err:     xerrors.WithStack(err),
		}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, s.maxSize+1))
	if err != nil {
		return nil, &ContentFetchError{Section: sec, Message: fmt.Sprintf("read s3://%s/%s", s.bucket, key), Err: xerrors.WithStack(err)}
	}
	if int64(len(data)) > s.maxSize {
		return nil, &ContentFetchError{Section: sec, Message: fmt.Sprintf("s3://%s/%s exceeds %d bytes", s.bucket, key, s.maxSize)}
	}
	if isNull(data) {
		return nil, notFound(sec)
	}
	return json.RawMessage(data), nil
}

// FetchAll reads every known section object. Per-section failures land in
// the returned map; the error is reserved for a cancelled context.
func (s *S3Source) FetchAll(ctx context.Context) (map[Section]Result, error) {
	results := make([]Result, len(Sections))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, sec := range Sections {
		g.Go(func() error {
			raw, err := s.FetchSection(ctx, sec)
			results[i] = Result{Raw: raw, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, xerrors.Wrap(err, "fetch s3 sections")
	}

	out := make(map[Section]Result, len(Sections))
	for i, sec := range Sections {
		if errors.Is(results[i].Err, ErrSectionNotFound) {
			continue
		}
		out[sec] = results[i]
	}
	return out, nil
}

func responseStatus(err error) int {
	var re *awshttp.ResponseError
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}
