// Package oci implements storage.Backend against Oracle Cloud
// Infrastructure Object Storage, including pre-authenticated request (PAR)
// generation for the PAR manifest dump writes when ociParManifest is set.
package oci

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

func init() {
	storage.Register("oci", func(rawURL string) (storage.Backend, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, shellerr.Wrap(shellerr.ArgumentError, "parsing oci URL", err)
		}
		return Open(context.Background(), u.Host, strings.Trim(u.Path, "/"), Options{})
	})
}

// Options carries the namespace and config-profile overrides; when
// Namespace is empty it is resolved from the tenancy via GetNamespace.
type Options struct {
	Namespace     string
	ConfigProfile string
}

// Backend addresses objects within BucketName under the resolved
// namespace.
type Backend struct {
	client     objectstorage.ObjectStorageClient
	namespace  string
	bucketName string
	retry      storage.RetryPolicy
}

// Open builds a client from the default OCI config provider (or the named
// ConfigProfile), resolves the namespace if unset, and returns a Backend
// rooted at bucketName.
func Open(ctx context.Context, bucketName, _ string, opts Options) (*Backend, error) {
	provider := common.DefaultConfigProvider()
	if opts.ConfigProfile != "" {
		provider = common.CustomProfileConfigProvider("", opts.ConfigProfile)
	}

	client, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(provider)
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "oci: building client", err)
	}

	namespace := opts.Namespace
	if namespace == "" {
		resp, err := client.GetNamespace(ctx, objectstorage.GetNamespaceRequest{})
		if err != nil {
			return nil, shellerr.Wrap(shellerr.PreconditionError, "oci: resolving namespace", err)
		}
		namespace = *resp.Value
	}

	return &Backend{client: client, namespace: namespace, bucketName: bucketName, retry: storage.DefaultRetryPolicy}, nil
}

func (b *Backend) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := b.client.GetObject(ctx, objectstorage.GetObjectRequest{
		NamespaceName: &b.namespace,
		BucketName:    &b.bucketName,
		ObjectName:    &name,
	})
	if err != nil {
		return nil, wrapOCIErr("getting "+name, err)
	}
	return resp.Content, nil
}

func (b *Backend) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	return &objectWriter{ctx: ctx, backend: b, name: name}, nil
}

type objectWriter struct {
	ctx     context.Context
	backend *Backend
	name    string
	buf     []byte
}

func (w *objectWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *objectWriter) Close() error {
	size := int64(len(w.buf))
	_, err := w.backend.client.PutObject(w.ctx, objectstorage.PutObjectRequest{
		NamespaceName: &w.backend.namespace,
		BucketName:    &w.backend.bucketName,
		ObjectName:    &w.name,
		ContentLength: &size,
		PutObjectBody: io.NopCloser(newByteReader(w.buf)),
	})
	if err != nil {
		return wrapOCIErr("putting "+w.name, err)
	}
	return nil
}

func newByteReader(b []byte) io.Reader { return &byteReader{b: b} }

type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.b) {
		return 0, io.EOF
	}
	n := copy(p, r.b[r.pos:])
	r.pos += n
	return n, nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	var start *string
	for {
		resp, err := b.client.ListObjects(ctx, objectstorage.ListObjectsRequest{
			NamespaceName: &b.namespace,
			BucketName:    &b.bucketName,
			Prefix:        &prefix,
			Start:         start,
			Fields:        common.String("name,size,timeModified"),
		})
		if err != nil {
			return nil, wrapOCIErr("listing "+prefix, err)
		}
		for _, o := range resp.Objects {
			info := storage.ObjectInfo{Name: *o.Name}
			if o.Size != nil {
				info.Size = *o.Size
			}
			if o.TimeModified != nil {
				info.LastModified = o.TimeModified.Time
			}
			out = append(out, info)
		}
		if resp.NextStartWith == nil {
			break
		}
		start = resp.NextStartWith
	}
	return out, nil
}

func (b *Backend) Stat(ctx context.Context, name string) (storage.ObjectInfo, error) {
	resp, err := b.client.HeadObject(ctx, objectstorage.HeadObjectRequest{
		NamespaceName: &b.namespace,
		BucketName:    &b.bucketName,
		ObjectName:    &name,
	})
	if err != nil {
		return storage.ObjectInfo{}, wrapOCIErr("statting "+name, err)
	}
	info := storage.ObjectInfo{Name: name}
	if resp.ContentLength != nil {
		info.Size = *resp.ContentLength
	}
	if resp.LastModified != nil {
		info.LastModified = resp.LastModified.Time
	}
	return info, nil
}

func (b *Backend) Remove(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, objectstorage.DeleteObjectRequest{
		NamespaceName: &b.namespace,
		BucketName:    &b.bucketName,
		ObjectName:    &name,
	})
	if err != nil {
		return wrapOCIErr("removing "+name, err)
	}
	return nil
}

func (b *Backend) SupportsRandomRead() bool { return false }

// CreatePAR generates a pre-authenticated request for name, valid until
// expires, used when ociParManifest is set to populate the PAR manifest
// (internal/manifest).
func (b *Backend) CreatePAR(ctx context.Context, name string, expires time.Time) (string, error) {
	accessType := objectstorage.CreatePreauthenticatedRequestDetailsAccessTypeObjectReadWrite
	resp, err := b.client.CreatePreauthenticatedRequest(ctx, objectstorage.CreatePreauthenticatedRequestRequest{
		NamespaceName: &b.namespace,
		BucketName:    &b.bucketName,
		CreatePreauthenticatedRequestDetails: objectstorage.CreatePreauthenticatedRequestDetails{
			Name:        &name,
			ObjectName:  &name,
			AccessType:  accessType,
			TimeExpires: &common.SDKTime{Time: expires},
		},
	})
	if err != nil {
		return "", wrapOCIErr("creating PAR for "+name, err)
	}
	return *resp.AccessUri, nil
}

func wrapOCIErr(action string, err error) error {
	msg := fmt.Sprintf("oci: %s", action)
	if svcErr, ok := common.IsServiceError(err); ok {
		if svcErr.GetHTTPStatusCode() == 429 || svcErr.GetHTTPStatusCode() >= 500 {
			return shellerr.Wrap(shellerr.TransientIO, msg, err)
		}
	}
	return shellerr.Wrap(shellerr.PersistentIO, msg, err)
}
