package winewizard

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Mirror downloads artifacts from s3://bucket/key mirrors, including
// S3-compatible stores such as R2 when an endpoint is configured.
type S3Mirror struct {
	Client *s3.Client
}

// NewS3Mirror builds the client from settings. Without static keys the
// default AWS credential chain is used.
func NewS3Mirror(ctx context.Context, s S3Settings, debug bool) (*S3Mirror, error) {
	options := []func(*config.LoadOptions) error{
		config.WithRegion(s.Region),
	}
	if s.AccessKeyID != "" && s.SecretAccessKey != "" {
		options = append(options, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, "")))
	}
	if debug {
		options = append(options, config.WithClientLogMode(aws.LogRetries|aws.LogRequest|aws.LogResponse))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Mirror{Client: client}, nil
}

// parseS3URL splits s3://bucket/key.
func parseS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 url: %s", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 url %s has no object key", raw)
	}
	return u.Host, key, nil
}

// Download streams the object at raw into w and returns its size.
func (m *S3Mirror) Download(ctx context.Context, raw string, w io.Writer) (int64, error) {
	bucket, key, err := parseS3URL(raw)
	if err != nil {
		return 0, err
	}
	out, err := m.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("s3 get %s: %w", raw, err)
	}
	defer out.Body.Close()
	return io.Copy(w, out.Body)
}
