package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"qvcs-go/internal/qvcs"
)

// versionMetaKey is the user metadata key holding a snapshot's version.
const versionMetaKey = "qvcs-version"

// S3Options configures an S3Vault.
type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint selects an S3-compatible store. Path-style addressing is
	// used when it is set.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Vault stores snapshots as objects under
// <prefix>/snapshots/<serverID>/<name>, with the version in object metadata.
type S3Vault struct {
	name     string
	bucket   string
	prefix   string
	client   *s3.Client
	uploader *manager.Uploader
}

// NewS3Vault creates a vault backed by an S3 bucket. Credentials come from
// opts when both keys are set and from the default AWS chain otherwise.
func NewS3Vault(ctx context.Context, name string, opts S3Options) (*S3Vault, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 vault requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
			// S3-compatible stores commonly reject the flexible checksum headers.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
			o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
		}
	})
	return newS3Vault(name, opts.Bucket, opts.Prefix, client), nil
}

func newS3Vault(name, bucket, prefix string, client *s3.Client) *S3Vault {
	return &S3Vault{
		name:     name,
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: manager.NewUploader(client),
	}
}

func (v *S3Vault) key(serverID, name string) string {
	return path.Join(v.prefix, "snapshots", serverID, name)
}

// PutSnapshot uploads a named snapshot for a server. Large snapshots are
// uploaded in parts.
func (v *S3Vault) PutSnapshot(ctx context.Context, serverID, name string, r io.Reader, size int64, version int64) error {
	key := v.key(serverID, name)
	body := &countingReader{r: r}
	_, err := v.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(v.bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: map[string]string{versionMetaKey: strconv.FormatInt(version, 10)},
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	if body.n != size {
		// The object is already visible; remove it so a short read is not mistaken for a snapshot.
		if _, derr := v.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(v.bucket),
			Key:    aws.String(key),
		}); derr != nil {
			return errors.Join(fmt.Errorf("size mismatch: expected %d bytes, got %d", size, body.n), derr)
		}
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, body.n)
	}
	return nil
}

// SnapshotVersion returns the version recorded on a server's snapshot,
// or 0 if the object does not exist.
func (v *S3Vault) SnapshotVersion(ctx context.Context, serverID, name string) (int64, error) {
	key := v.key(serverID, name)
	out, err := v.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading %s: %w", key, err)
	}
	raw, ok := out.Metadata[versionMetaKey]
	if !ok {
		return 0, fmt.Errorf("%s has no %s metadata", key, versionMetaKey)
	}
	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// GetSnapshot downloads a server's named snapshot into w.
func (v *S3Vault) GetSnapshot(ctx context.Context, serverID, name string, w io.Writer) error {
	key := v.key(serverID, name)
	out, err := v.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(v.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s/%s: %w", serverID, name, qvcs.ErrSnapshotNotFound)
		}
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", key, err)
	}
	return nil
}

// ValidateSetup verifies that the bucket exists and is reachable.
func (v *S3Vault) ValidateSetup(ctx context.Context) error {
	if _, err := v.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(v.bucket)}); err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", v.bucket, err)
	}
	return nil
}

// isNotFound matches the error codes S3 uses for a missing key. HEAD
// responses carry no body, so they surface as a bare "NotFound".
func isNotFound(err error) bool {
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

var _ qvcs.Vault = (*S3Vault)(nil)
