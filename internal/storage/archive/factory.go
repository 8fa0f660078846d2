package archive

import (
	"fmt"

	"github.com/newthinker/macross/internal/config"
	"github.com/newthinker/macross/internal/core"
)

// New builds the storage backend selected by the cache configuration
func New(cfg config.CacheConfig) (Storage, error) {
	switch cfg.Type {
	case "localfs", "":
		return NewLocalFS(cfg.Path)
	case "s3":
		return NewS3(S3Config{
			Bucket:    cfg.S3.Bucket,
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Prefix:    cfg.S3.Prefix,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown cache type: %s", cfg.Type))
	}
}
