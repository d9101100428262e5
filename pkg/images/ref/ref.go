package ref

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	gcrname "github.com/google/go-containerregistry/pkg/name"
)

var ErrMalformedReference = errors.New("malformed algorithm image reference")

func NewErrMalformedReference(raw string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrMalformedReference, raw)
	}
	return fmt.Errorf("%w: %s: %s", ErrMalformedReference, raw, cause)
}

// Trellis registries are hosted per account and region, like
//
//	123456789012.reg.ap-northeast-1.trellis.dev
var registryPattern = regexp.MustCompile(
	`^(?P<account>[0-9]{6,})\.reg\.(?P<region>[a-z]{2}(-[a-z0-9]+)+)\.`,
)

// BaseImage is a parsed reference of a prebuilt algorithm image.
type BaseImage struct {
	// Raw is the reference as given.
	Raw string

	// Registry is the registry host.
	Registry string

	// Account and Region are derived from the registry host.
	Account string
	Region  string

	// Algorithm is the last path element of the repository,
	// like "xgboost".
	Algorithm string

	// Version is the image tag, like "1.2-2".
	Version string
}

func (b BaseImage) Equal(o BaseImage) bool {
	return b.Registry == o.Registry &&
		b.Account == o.Account &&
		b.Region == o.Region &&
		b.Algorithm == o.Algorithm &&
		b.Version == o.Version
}

func (b BaseImage) String() string {
	return b.Raw
}

// Parse reads an algorithm image reference of the documented shape
// into its components.
//
// # Args
//
// - raw: image reference, like "123456789012.reg.ap-northeast-1.trellis.dev/algorithms/xgboost:1.2-2"
//
// # Returns
//
// - BaseImage: parsed reference
//
// - error: ErrMalformedReference when raw is not shaped as expected.
func Parse(raw string) (BaseImage, error) {
	raw = strings.TrimSpace(raw)
	tag, err := gcrname.NewTag(raw, gcrname.StrictValidation)
	if err != nil {
		return BaseImage{}, NewErrMalformedReference(raw, err)
	}

	host := tag.RegistryStr()
	m := registryPattern.FindStringSubmatch(host)
	if m == nil {
		return BaseImage{}, NewErrMalformedReference(
			raw, fmt.Errorf("registry host %s does not carry account and region", host),
		)
	}
	account := m[registryPattern.SubexpIndex("account")]
	region := m[registryPattern.SubexpIndex("region")]

	repo := tag.RepositoryStr()
	algorithm := repo
	if p := strings.LastIndex(repo, "/"); 0 <= p {
		algorithm = repo[p+1:]
	}
	if algorithm == "" {
		return BaseImage{}, NewErrMalformedReference(raw, nil)
	}

	return BaseImage{
		Raw:       raw,
		Registry:  host,
		Account:   account,
		Region:    region,
		Algorithm: algorithm,
		Version:   tag.TagStr(),
	}, nil
}

// customSuffix marks images rebuilt to emit attribution values.
const customSuffix = "-explain"

// CustomRepository is the destination repository name for the customized
// image: "<namespace>/<algorithm>-explain".
func (b BaseImage) CustomRepository(namespace string) string {
	name := b.Algorithm + customSuffix
	if namespace == "" {
		return name
	}
	return strings.Trim(namespace, "/") + "/" + name
}

// CustomReference is the full reference of the customized image in the
// private registry of (account, region). It encodes account, region,
// namespace, algorithm and version.
func (b BaseImage) CustomReference(account, region, namespace string) string {
	return fmt.Sprintf(
		"%s.reg.%s.trellis.dev/%s:%s",
		account, region, b.CustomRepository(namespace), b.Version,
	)
}

// Load reads a base image reference from a handoff file.
//
// Only the first line is read; anything after it is ignored.
func Load(filepath string) (BaseImage, error) {
	content, err := os.ReadFile(filepath)
	if err != nil {
		return BaseImage{}, err
	}
	line, _, _ := strings.Cut(string(content), "\n")
	return Parse(line)
}

// Store writes a base image reference to a handoff file.
func Store(filepath string, b BaseImage) error {
	return os.WriteFile(filepath, []byte(b.Raw+"\n"), os.FileMode(0644))
}
