// Package azureblob implements storage.Backend against Azure Blob
// Storage, selecting between SAS-token, connection-string, and
// account-key authentication in that order of precedence.
package azureblob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/service"

	"github.com/DevSingh98/mysql-shell/internal/shellerr"
	"github.com/DevSingh98/mysql-shell/internal/storage"
)

func init() {
	storage.Register("azblob", func(rawURL string) (storage.Backend, error) {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, shellerr.Wrap(shellerr.ArgumentError, "parsing azblob URL", err)
		}
		return Open(Options{
			AccountURL:    "https://" + u.Host,
			ContainerName: strings.Trim(u.Path, "/"),
		})
	})
}

// Options resolves credentials in SAS > connection string > account-key
// precedence; the first non-empty field wins.
type Options struct {
	AccountURL       string
	ContainerName    string
	SASToken         string
	ConnectionString string
	AccountName      string
	AccountKey       string
}

// Backend addresses blobs within a single container.
type Backend struct {
	client    *container.Client
	retry     storage.RetryPolicy
}

// Open resolves credentials per Options' precedence and returns a Backend
// rooted at ContainerName.
func Open(opts Options) (*Backend, error) {
	var svcClient *service.Client
	var err error

	switch {
	case opts.SASToken != "":
		svcClient, err = service.NewClientWithNoCredential(opts.AccountURL+"?"+opts.SASToken, nil)
	case opts.ConnectionString != "":
		svcClient, err = service.NewClientFromConnectionString(opts.ConnectionString, nil)
	case opts.AccountName != "" && opts.AccountKey != "":
		var cred *azblob.SharedKeyCredential
		cred, err = azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
		if err == nil {
			svcClient, err = service.NewClientWithSharedKeyCredential(opts.AccountURL, cred, nil)
		}
	default:
		return nil, shellerr.New(shellerr.ArgumentError, "azblob: no credentials supplied (need SAS, connection string, or account key)")
	}
	if err != nil {
		return nil, shellerr.Wrap(shellerr.PreconditionError, "azblob: building client", err)
	}

	return &Backend{client: svcClient.NewContainerClient(opts.ContainerName), retry: storage.DefaultRetryPolicy}, nil
}

func (b *Backend) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	blobClient := b.client.NewBlobClient(name)
	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		return nil, wrapAzErr("downloading "+name, err)
	}
	return resp.Body, nil
}

func (b *Backend) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	return &blobWriter{ctx: ctx, backend: b, name: name}, nil
}

type blobWriter struct {
	ctx     context.Context
	backend *Backend
	name    string
	buf     bytes.Buffer
}

func (w *blobWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *blobWriter) Close() error {
	blockBlobClient := w.backend.client.NewBlockBlobClient(w.name)
	_, err := blockBlobClient.UploadStream(w.ctx, bytes.NewReader(w.buf.Bytes()), nil)
	if err != nil {
		return wrapAzErr("uploading "+w.name, err)
	}
	return nil
}

func (b *Backend) List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error) {
	var out []storage.ObjectInfo
	pager := b.client.NewListBlobsFlatPager(&container.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrapAzErr("listing "+prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			var size int64
			if item.Properties.ContentLength != nil {
				size = *item.Properties.ContentLength
			}
			info := storage.ObjectInfo{Name: *item.Name, Size: size}
			if item.Properties.LastModified != nil {
				info.LastModified = *item.Properties.LastModified
			}
			out = append(out, info)
		}
	}
	return out, nil
}

func (b *Backend) Stat(ctx context.Context, name string) (storage.ObjectInfo, error) {
	props, err := b.client.NewBlobClient(name).GetProperties(ctx, nil)
	if err != nil {
		return storage.ObjectInfo{}, wrapAzErr("statting "+name, err)
	}
	info := storage.ObjectInfo{Name: name}
	if props.ContentLength != nil {
		info.Size = *props.ContentLength
	}
	if props.LastModified != nil {
		info.LastModified = *props.LastModified
	}
	return info, nil
}

func (b *Backend) Remove(ctx context.Context, name string) error {
	_, err := b.client.NewBlobClient(name).Delete(ctx, nil)
	if err != nil {
		return wrapAzErr("removing "+name, err)
	}
	return nil
}

func (b *Backend) SupportsRandomRead() bool { return false }

func wrapAzErr(action string, err error) error {
	msg := fmt.Sprintf("azblob: %s", action)
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) && respErr.StatusCode >= 500 {
		return shellerr.Wrap(shellerr.TransientIO, msg, err)
	}
	return shellerr.Wrap(shellerr.PersistentIO, msg, err)
}
