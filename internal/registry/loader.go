package registry

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"opsboard/api/internal/store"
)

// Loader fetches the registry CSV from an object-storage bucket, with a
// local file fallback for development.
type Loader struct {
	client   *minio.Client
	bucket   string
	object   string
	filePath string
}

// ObjectConfig describes where the registry CSV lives in object storage.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Object    string
}

// NewLoader creates a Loader. An empty endpoint disables object storage;
// then filePath must point at a local CSV.
func NewLoader(cfg ObjectConfig, filePath string) (*Loader, error) {
	loader := &Loader{bucket: cfg.Bucket, object: cfg.Object, filePath: filePath}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		if strings.TrimSpace(filePath) == "" {
			return nil, fmt.Errorf("registry loader needs an object-storage endpoint or a local file path")
		}
		return loader, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
	}
	loader.client = client
	return loader, nil
}

// Load fetches and parses the registry. Object storage is preferred; the
// local file is used when no client is configured.
func (l *Loader) Load(ctx context.Context) ([]store.RegistryTask, error) {
	if l.client != nil {
		obj, err := l.client.GetObject(ctx, l.bucket, l.object, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("fetch registry object %s/%s: %w", l.bucket, l.object, err)
		}
		defer obj.Close()
		tasks, err := Parse(obj)
		if err != nil {
			return nil, fmt.Errorf("parse registry object %s/%s: %w", l.bucket, l.object, err)
		}
		return tasks, nil
	}

	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w", err)
	}
	defer f.Close()
	tasks, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse registry file %s: %w", l.filePath, err)
	}
	return tasks, nil
}
