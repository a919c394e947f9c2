package blob

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	sc "github.com/avern/mediavault/internal/server/config"
)

// uploadURLExpiry is how long a presigned PUT stays signable. Deliberately
// longer than the upload ticket TTL: the ticket, not the URL, is what
// bounds an upload attempt.
const uploadURLExpiry = 15 * time.Minute

// Function seams so tests can stub the AWS SDK without a live endpoint.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in)
	}
	deleteObject = func(c *s3.Client, ctx context.Context, in *s3.DeleteObjectInput) (*s3.DeleteObjectOutput, error) {
		return c.DeleteObject(ctx, in)
	}
)

// S3Gateway talks to an S3-compatible backend (MinIO in development)
// using static credentials and a custom base endpoint.
type S3Gateway struct {
	config *sc.Config
}

// NewS3Gateway constructs a Gateway backed by the configured bucket.
func NewS3Gateway(config *sc.Config) *S3Gateway {
	return &S3Gateway{config: config}
}

func (g *S3Gateway) getClient(ctx context.Context) (*s3.Client, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(g.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			g.config.S3RootUser,
			g.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(g.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return client, nil
}

func (g *S3Gateway) CreateSignedUploadURL(ctx context.Context, path string) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := g.config.S3Bucket
	req, err := presignPutObject(newS3PresignClient(client), ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &path,
	}, s3.WithPresignExpires(uploadURLExpiry))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (g *S3Gateway) CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := g.config.S3Bucket
	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &path,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}

func (g *S3Gateway) ReadObject(ctx context.Context, path string) ([]byte, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := g.config.S3Bucket
	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &path,
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()

	return io.ReadAll(out.Body)
}

func (g *S3Gateway) Remove(ctx context.Context, path string) error {
	client, err := g.getClient(ctx)
	if err != nil {
		return err
	}

	bucket := g.config.S3Bucket
	_, err = deleteObject(client, ctx, &s3.DeleteObjectInput{
		Bucket: &bucket,
		Key:    &path,
	})
	return err
}
