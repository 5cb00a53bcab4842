// Package objectstore keeps uploaded part files, documents and images in an
// S3-compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrCategory   = errors.New("unknown upload category")
	ErrExtension  = errors.New("file type not allowed: only images, STL files and documents (PDF, DOC, DOCX)")
	ErrTooLarge   = errors.New("file exceeds the size limit")
	ErrEmpty      = errors.New("no file uploaded")
	ErrForeignURL = errors.New("url does not point into this store")
)

type Category struct {
	Name    string
	Folder  string
	MaxSize int64
}

const mb = 1 << 20

var categories = map[string]Category{
	"stl":      {Name: "stl", Folder: "stl-files", MaxSize: 150 * mb},
	"document": {Name: "document", Folder: "documents", MaxSize: 10 * mb},
	"image":    {Name: "image", Folder: "images", MaxSize: 5 * mb},
}

var allowedExt = map[string]bool{
	".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true,
	".stl":  true,
	".pdf":  true, ".doc": true, ".docx": true,
}

// LookupCategory resolves an upload type; empty means image.
func LookupCategory(name string) (Category, error) {
	if name == "" {
		name = "image"
	}
	c, ok := categories[strings.ToLower(name)]
	if !ok {
		return Category{}, fmt.Errorf("%w: %q", ErrCategory, name)
	}
	return c, nil
}

func (c Category) Check(filename string, size int64) error {
	if size == 0 {
		return ErrEmpty
	}
	if size > c.MaxSize {
		return fmt.Errorf("%w of %d MB", ErrTooLarge, c.MaxSize/mb)
	}
	if !allowedExt[strings.ToLower(path.Ext(filename))] {
		return ErrExtension
	}
	return nil
}

// ObjectKey builds folder/<uuid>-<unix millis><ext>.
func ObjectKey(folder, filename string, id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s/%s-%d%s", folder, id, at.UnixMilli(), strings.ToLower(path.Ext(filename)))
}

type Object struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"mimetype"`
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
	now       func() time.Time
}

// New connects to the bucket and creates it when missing.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, cfg.Bucket)
	}
	return &Store{client: client, bucket: cfg.Bucket, publicURL: strings.TrimRight(public, "/"), now: time.Now}, nil
}

func (s *Store) URL(key string) string { return s.publicURL + "/" + key }

// KeyFromURL strips the public prefix. Bare keys are accepted as is.
func (s *Store) KeyFromURL(u string) (string, error) {
	if strings.HasPrefix(u, s.publicURL+"/") {
		return strings.TrimPrefix(u, s.publicURL+"/"), nil
	}
	if strings.Contains(u, "://") || u == "" || strings.Contains(u, "..") {
		return "", ErrForeignURL
	}
	return u, nil
}

func (s *Store) Store(ctx context.Context, data []byte, category, filename string) (Object, error) {
	c, err := LookupCategory(category)
	if err != nil {
		return Object{}, err
	}
	size := int64(len(data))
	if err := c.Check(filename, size); err != nil {
		return Object{}, err
	}

	key := ObjectKey(c.Folder, filename, uuid.New(), s.now())
	ctype := mime.TypeByExtension(path.Ext(key))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), size, minio.PutObjectOptions{
		ContentType: ctype,
	})
	if err != nil {
		return Object{}, fmt.Errorf("failed to upload file: %w", err)
	}
	return Object{URL: s.URL(key), Key: key, Size: size, ContentType: ctype}, nil
}

// Fetch reads back an object previously returned by Store.
func (s *Store) Fetch(ctx context.Context, u string) ([]byte, string, error) {
	key, err := s.KeyFromURL(u)
	if err != nil {
		return nil, "", err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object: %w", err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("failed to stat object: %w", err)
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object: %w", err)
	}
	return data, info.ContentType, nil
}
