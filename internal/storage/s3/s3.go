// Package s3 implements storage.Backend against AWS S3 (and
// S3-compatible endpoints) using aws-sdk-go-v2, with multipart upload for
// large dump artifacts and the SDK's own credential-chain resolution.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

// multipartThreshold is the object size above which uploads switch from a
// single PutObject to the manager's concurrent multipart uploader.
const multipartThreshold = 16 * 1024 * 1024

func init() {
	storage.Register("s3", func(rawURL string) (storage.Backend, error) {
		bucket, prefix, err := parseURL(rawURL)
		if err != nil {
			return nil, err
		}
		return Open(context.Background(), bucket, prefix, Options{})
	})
}

func parseURL(rawURL string) (bucket, prefix string, err error) {
	u, perr := url.Parse(rawURL)
	if perr != nil {
		return "", "", shellerr.Wrap(shellerr.ArgumentError, "parsing s3 URL", perr)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Options overrides the SDK's default credential-chain precedence: an
// explicit AccessKeyID/SecretAccessKey pair takes priority over the shared
// config/credential files, credential_process, and instance-role defaults
// the SDK falls back to. The s3:// URL opener passes empty Options.
type Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Backend addresses objects under Bucket/Prefix.
type Backend struct {
	client *s3.Client
	bucket string
	prefix string
	retry  storage.RetryPolicy
}

// Open resolves credentials per Options and the SDK's own chain, then
// returns a Backend rooted at bucket/prefix.
func Open(ctx context.Context, bucket, prefix string, opts Options) (*Backend, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, opts.SessionToken)))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "loading AWS config", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return &Backend{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), retry: storage.DefaultRetryPolicy}, nil
}

func (b *Backend) key(name string) string {
	if b.prefix == "" {
		return name
	}
	return b.prefix + "/" + name
}

func (b *Backend) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	var out *s3.GetObjectOutput
	err := b.retry.Do(ctx, isRetriable, func() error {
		var gerr error
		out, gerr = b.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(name)),
		})
		return gerr
	})
	if err != nil {
		return nil, wrapAWSErr("getting "+name, err)
	}
	return out.Body, nil
}

func (b *Backend) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	pr, pw := io.Pipe()
	done := make(chan error, 1)
	uploader := manager.NewUploader(b.client, func(u *manager.Uploader) {
		u.PartSize = multipartThreshold
	})
	go func() {
		_, err := uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.key(name)),
			Body:   pr,
		})
		pr.CloseWithError(err)
		done <- err
	}()
	return &pipeWriter{w: pw, done: done}, nil
}

type pipeWriter struct {
	w    *io.PipeWriter
	done chan error
}

func (p *pipeWriter) Write(buf []byte) (int, error) { return p.w.Write(buf) }

func (p *pipeWriter) Close() error {
	if err := p.w.Close(); err != nil {
		return err
	}
	if err := <-p.done; err != nil {
		return wrapAWSErr("uploading", err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.key(prefix)),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapAWSErr("listing "+prefix, err)
		}
		for _, obj := range page.Contents {
			out = append(out, storage.ObjectInfo{
				Name:         strings.TrimPrefix(aws.ToString(obj.Key), b.prefix+"/"),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return out, nil
}

func (b *Backend) Stat(ctx context.Context, name string) (storage.ObjectInfo, error) {
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return storage.ObjectInfo{}, wrapAWSErr("statting "+name, err)
	}
	return storage.ObjectInfo{Name: name, Size: aws.ToInt64(out.ContentLength), LastModified: aws.ToTime(out.LastModified)}, nil
}

func (b *Backend) Remove(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return wrapAWSErr("removing "+name, err)
	}
	return nil
}

func (b *Backend) SupportsRandomRead() bool { return false }

// CredentialExpiration returns the time the backend's resolved
// credentials expire, so callers can proactively refresh ahead of a
// long-running dump. Returns false if the credential provider does not
// expose expiry (e.g. static keys).
func (b *Backend) CredentialExpiration(ctx context.Context) (time.Time, bool, error) {
	creds, err := b.client.Options().Credentials.Retrieve(ctx)
	if err != nil {
		return time.Time{}, false, wrapAWSErr("retrieving credentials", err)
	}
	if !creds.CanExpire {
		return time.Time{}, false, nil
	}
	return creds.Expires, true, nil
}

// isRetriable defers to the retry.Do loop for anything other than context
// cancellation; the SDK's own retryer already absorbs most transient AWS
// errors (throttling, 5xx) before a call returns here at all.
func isRetriable(err error) bool {
	return err != context.Canceled && err != context.DeadlineExceeded
}

func wrapAWSErr(action string, err error) error {
	msg := fmt.Sprintf("s3: %s", action)
	return shellerr.Wrap(shellerr.TransientIO, msg, err)
}
