package pages

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

//go:embed templates/*.html
var defaultTemplates embed.FS

// EmbeddedSource serves the templates compiled into the binary.
type EmbeddedSource struct{}

func (EmbeddedSource) Load(_ context.Context, name string) ([]byte, error) {
	return fs.ReadFile(defaultTemplates, path.Join("templates", path.Base(name)))
}

// DirSource reads templates from a directory on disk.
type DirSource struct {
	Dir string
}

func (d DirSource) Load(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(filepath.Join(d.Dir, filepath.Base(name)))
}

// S3GetObjectAPI is the subset of the S3 client used by S3Source.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads templates from s3://Bucket/Prefix<name>.
type S3Source struct {
	Client S3GetObjectAPI
	Bucket string
	Prefix string
}

func (s S3Source) Load(ctx context.Context, name string) ([]byte, error) {
	key := s.Prefix + path.Base(name)
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.Bucket, key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("s3 get s3://%s/%s: %w", s.Bucket, key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read s3://%s/%s: %w", s.Bucket, key, err)
	}
	return body, nil
}

// Chain tries each source in order and returns the first template found.
// Errors other than "not found" stop the search.
type Chain []Source

func (c Chain) Load(ctx context.Context, name string) ([]byte, error) {
	for _, src := range c {
		body, err := src.Load(ctx, name)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("template %s: %w", name, fs.ErrNotExist)
}
