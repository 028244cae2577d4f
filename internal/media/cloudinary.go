// Package media stores product images with an external provider.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, filename string) (string, error)
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(url, folder string) (*Cloudinary, error) {
	if url == "" {
		return nil, errors.New("cloudinary url is empty")
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, filename string) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:         c.folder,
		UseFilename:    boolPtr(true),
		UniqueFilename: boolPtr(true),
		Tags:           []string{"product"},
		Context:        map[string]string{"filename": filename},
	})
	if err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("upload: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

func boolPtr(b bool) *bool { return &b }
