// internal/app/system/media/media.go

// Package media turns stored profile image references into URLs a client
// can load. Records hold either an absolute URL or an object key in the
// configured bucket; keys are presigned for a limited time.
package media

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dalemusser/collegehub/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultExpiry applies when S3Config.Expiry is zero.
const DefaultExpiry = 15 * time.Minute

// S3Config locates the bucket holding profile images. Endpoint is optional
// and points the client at S3-compatible storage (R2, MinIO).
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Expiry    time.Duration
}

// Resolver rewrites image references. A nil *Resolver passes every
// reference through unchanged.
type Resolver struct {
	presigner *s3.PresignClient
	bucket    string
	expiry    time.Duration
	log       *zap.Logger
}

// NewS3 builds a Resolver backed by static credentials.
func NewS3(cfg S3Config, logger *zap.Logger) *Resolver {
	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.Endpoint != ""
	})
	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Resolver{
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.Bucket,
		expiry:    expiry,
		log:       logger,
	}
}

// URL returns ref unchanged when it is empty or already absolute, and a
// presigned GET URL for object keys.
func (r *Resolver) URL(ctx context.Context, ref string) (string, error) {
	if r == nil || ref == "" || isAbsolute(ref) {
		return ref, nil
	}
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(strings.TrimPrefix(ref, "/")),
	}, s3.WithPresignExpires(r.expiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", ref, err)
	}
	return req.URL, nil
}

// Resolve returns copies of recs with imageUrl replaced by a loadable URL.
// A reference that cannot be presigned is dropped from that copy.
func (r *Resolver) Resolve(ctx context.Context, recs []models.RoleRecord) []models.RoleRecord {
	out := make([]models.RoleRecord, len(recs))
	for i, rec := range recs {
		ref := rec.Fields.String(models.FieldImageURL)
		if r == nil || ref == "" || isAbsolute(ref) {
			out[i] = rec
			continue
		}
		rec = rec.Clone()
		u, err := r.URL(ctx, ref)
		if err != nil {
			r.log.Warn("image presign failed",
				zap.String("record_id", rec.RecordID),
				zap.Error(err))
			delete(rec.Fields, models.FieldImageURL)
		} else {
			rec.Fields[models.FieldImageURL] = u
		}
		out[i] = rec
	}
	return out
}

func isAbsolute(ref string) bool {
	l := strings.ToLower(ref)
	return strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "http://")
}
