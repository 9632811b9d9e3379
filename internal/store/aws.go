package store

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/samber/do"

	"imagen/internal/log"
)

type S3Uploader struct {
	Client *s3.Client
	Bucket string
}

func NewS3Uploader(i *do.Injector) (*S3Uploader, error) {
	return &S3Uploader{
		Client: do.MustInvoke[*s3.Client](i),
		Bucket: do.MustInvokeNamed[string](i, "bucket"),
	}, nil
}

func (u *S3Uploader) Upload(ctx context.Context, params UploadParams) error {
	log := log.FromContextOrDiscard(ctx).WithGroup("store").With(
		"key", params.Name,
		"content-type", params.ContentType,
		"bucket", u.Bucket,
	)
	log.Debug("uploading to s3")

	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(u.Bucket),
		Key:          aws.String(params.Name),
		ContentType:  aws.String(params.ContentType),
		Body:         bytes.NewReader(params.Data),
		Metadata:     params.Metadata,
		StorageClass: s3types.StorageClassIntelligentTiering,
	})
	return err
}
