// Package storage is the object store gateway. Every artifact is written
// with a temporary tag that is removed only once the owning task commits,
// so an external bucket-lifecycle sweep can reap leftovers of crashed
// pipelines.
package storage

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/tags"
	"go.uber.org/zap"

	"msfiles/apperr"
	"msfiles/config"
)

type PutResult struct {
	Objectname string
	Bucket     string
	Size       int64
	Metadata   map[string]string
}

type SaveOptions struct {
	Filename string
	Bucket   string
	// Temporary marks the object reapable until its task commits.
	// Pipelines always save with Temporary=true.
	Temporary   bool
	ContentType string
}

type Gateway struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

func NewGateway(cfg *config.Config, logger *zap.Logger) (*Gateway, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	return &Gateway{client: client, bucket: cfg.MinioBucket, logger: logger}, nil
}

// Bucket is the default artifact bucket.
func (g *Gateway) Bucket() string { return g.bucket }

func (g *Gateway) resolveBucket(bucket string) string {
	if bucket == "" {
		return g.bucket
	}
	return bucket
}

// Save uploads a local file under a caller-unique name. An existing object
// with the same name is a caller bug and fails the save.
func (g *Gateway) Save(ctx context.Context, filepath string, opts SaveOptions) (*PutResult, error) {
	bucket := g.resolveBucket(opts.Bucket)

	g.logger.Info("Start upload object",
		zap.String("objectname", opts.Filename),
		zap.String("bucket", bucket),
	)

	if _, err := g.client.StatObject(ctx, bucket, opts.Filename, minio.StatObjectOptions{}); err == nil {
		return nil, apperr.Storage("object ["+opts.Filename+"] already exists", nil)
	}

	putOpts := minio.PutObjectOptions{ContentType: opts.ContentType}

	info, err := g.client.FPutObject(ctx, bucket, opts.Filename, filepath, putOpts)
	if err != nil {
		return nil, apperr.Storage("object upload failed", err)
	}

	if opts.Temporary {
		if ok := g.SetTemporaryTag(ctx, opts.Filename, bucket); !ok {
			return nil, apperr.Storage("failed to tag uploaded object ["+opts.Filename+"]", nil)
		}
	}

	stat, err := g.client.StatObject(ctx, bucket, opts.Filename, minio.StatObjectOptions{})
	if err != nil {
		return nil, apperr.Storage("stat uploaded object failed", err)
	}

	g.logger.Info("Finish upload object",
		zap.String("objectname", opts.Filename),
		zap.Int64("size", info.Size),
	)

	return &PutResult{
		Objectname: opts.Filename,
		Bucket:     bucket,
		Size:       stat.Size,
		Metadata:   stat.UserMetadata,
	}, nil
}

// SetTemporaryTag marks the object reapable. Failure is reported, not
// returned, matching the fire-and-forget tag protocol.
func (g *Gateway) SetTemporaryTag(ctx context.Context, objectname, bucket string) bool {
	bucket = g.resolveBucket(bucket)

	tagSet, err := tags.NewTags(map[string]string{"Temp": "true"}, true)
	if err != nil {
		g.logger.Error("Failed to build temporary tag", zap.Error(err))
		return false
	}

	if err := g.client.PutObjectTagging(ctx, bucket, objectname, tagSet, minio.PutObjectTaggingOptions{}); err != nil {
		g.logger.Error("Failed to set temporary tag",
			zap.String("objectname", objectname),
			zap.Error(err),
		)
		return false
	}

	g.logger.Info("Set temporary tag", zap.String("objectname", objectname))

	return true
}

func (g *Gateway) RemoveTemporaryTag(ctx context.Context, objectname, bucket string) bool {
	bucket = g.resolveBucket(bucket)

	if err := g.client.RemoveObjectTagging(ctx, bucket, objectname, minio.RemoveObjectTaggingOptions{}); err != nil {
		g.logger.Error("Failed to remove temporary tag",
			zap.String("objectname", objectname),
			zap.Error(err),
		)
		return false
	}

	return true
}

// Delete removes a validated single-bucket batch.
func (g *Gateway) Delete(ctx context.Context, batch Batch) error {
	if len(batch.Objectnames) == 0 {
		g.logger.Info("Nothing to delete, skip deletion")
		return nil
	}

	bucket := g.resolveBucket(batch.Bucket)

	var failed []string
	for _, name := range batch.Objectnames {
		if err := g.client.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{}); err != nil {
			g.logger.Error("Failed to delete object",
				zap.String("objectname", name),
				zap.Error(err),
			)
			failed = append(failed, name)
		}
	}

	if len(failed) > 0 {
		return apperr.Storage("failed to delete some objects", nil)
	}

	g.logger.Info("Deleted objects",
		zap.Strings("objectnames", batch.Objectnames),
		zap.String("bucket", bucket),
	)

	return nil
}

// URL returns a presigned download link valid for one hour.
func (g *Gateway) URL(ctx context.Context, objectname, bucket string) (string, error) {
	bucket = g.resolveBucket(bucket)

	if _, err := g.client.StatObject(ctx, bucket, objectname, minio.StatObjectOptions{}); err != nil {
		return "", apperr.Storage("object ["+objectname+"] does not exist", err)
	}

	u, err := g.client.PresignedGetObject(ctx, bucket, objectname, time.Hour, nil)
	if err != nil {
		return "", apperr.Storage("failed to presign object url", err)
	}

	return u.String(), nil
}
