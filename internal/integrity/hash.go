package integrity

import (
	"context"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/conneroisu/assetloader/internal/errors"
	"github.com/conneroisu/assetloader/internal/interfaces"
	"github.com/conneroisu/assetloader/internal/logging"
	"github.com/conneroisu/assetloader/internal/observability"
	"github.com/conneroisu/assetloader/internal/paths"
	"github.com/conneroisu/assetloader/internal/types"
)

var lower = cases.Lower(language.Und)

var algorithms = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// ParseAlgorithm normalizes an algorithm name and rejects anything SRI does
// not define.
func ParseAlgorithm(name string) (string, error) {
	algo := lower.String(strings.TrimSpace(name))
	if _, ok := algorithms[algo]; !ok {
		return "", errors.NewValidationError(errors.CodeUnknownAlgorithm,
			fmt.Sprintf("unsupported integrity algorithm '%s'", name))
	}
	return algo, nil
}

// Compute returns "<algorithm>-<base64 digest>" for the file at path, or ""
// when the algorithm is unknown or the file cannot be read.
func Compute(path, algorithm string) string {
	algo, err := ParseAlgorithm(algorithm)
	if err != nil {
		return ""
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	h := algorithms[algo]()
	if _, err := io.Copy(h, f); err != nil {
		return ""
	}

	return algo + "-" + base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Provider answers integrity lookups from the cache and computes on a miss.
type Provider struct {
	cache     interfaces.IntegrityCache
	algorithm string
	logger    logging.Logger
}

// NewProvider creates a provider hashing with algorithm, sha384 when empty.
// A nil cache disables caching.
func NewProvider(cache interfaces.IntegrityCache, algorithm string, logger logging.Logger) (*Provider, error) {
	if algorithm == "" {
		algorithm = types.DefaultHashAlgorithm
	}
	algo, err := ParseAlgorithm(algorithm)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Provider{cache: cache, algorithm: algo, logger: logger.WithComponent("integrity")}, nil
}

// Algorithm returns the configured hash algorithm.
func (p *Provider) Algorithm() string {
	return p.algorithm
}

// Integrity returns the cached hash for path when still valid, otherwise
// computes and stores it. The cache key is the canonical path. Unreadable files yield "" and are not cached.
func (p *Provider) Integrity(ctx context.Context, path string) string {
	path = paths.Canonical(path)
	if p.cache != nil {
		if value, ok := p.cache.Get(path); ok {
			return value
		}
	}

	_, span := observability.StartIntegritySpan(ctx, path, p.algorithm)
	value := Compute(path, p.algorithm)
	span.End()
	if value == "" {
		p.logger.Debug(ctx, "No integrity for unreadable file", "path", path)
		return ""
	}

	if p.cache != nil {
		p.cache.Set(path, value)
	}

	return value
}
