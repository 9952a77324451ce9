package headers

import (
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/goatd/goatforge/src/common/errors"
)

// DefaultReleaseFile is the path, relative to a header tree, of the file
// recording the exact kernel release the tree was built for.
const DefaultReleaseFile = "include/config/kernel.release"

// ReadRelease reads the release metadata file of the header tree at dir.
// releaseFile is relative to dir. The content is trimmed of trailing
// whitespace and newlines only; no other normalization is applied.
func ReadRelease(dir, releaseFile string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, releaseFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.ErrMetadataMissing.WithMessagef("no release metadata in %s", dir)
		}
		return "", apperrors.ErrMetadataUnreadable.WithMessagef("reading release metadata in %s", dir).WithCause(err)
	}
	return strings.TrimRight(string(data), " \t\r\n"), nil
}

// Matches reports whether the header tree at dir records exactly target.Full
// as its release. This is the single point of acceptance for discovery:
// every strategy, including the generated shell hook, approves candidates
// through this comparison and nothing else.
func Matches(dir, releaseFile string, target Version) bool {
	release, err := ReadRelease(dir, releaseFile)
	return err == nil && release == target.Full
}
