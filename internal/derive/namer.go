package derive

import (
	"fmt"
	"path"

	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

// Derivative paths are a pure function of the storage identifier (or
// filename stem), the derivative kind and the size or format name. No
// random or time-based components: the orchestrator and the serving
// layer agree on locations without a shared database record.

// ThumbnailPath returns the canonical relative path for one thumbnail
// size: {sizeName}/{storageId}.jpg. The storage ID is used verbatim so
// sharding sub-paths it carries (e.g. "215/abcdef123") are preserved.
// Thumbnails are always JPEG regardless of the source codec.
func ThumbnailPath(storageID, sizeName string) string {
	return path.Join(sizeName, storageID+".jpg")
}

// ExpectedThumbnailPaths enumerates every path the configured size set
// will produce for a storage ID, in spec order.
func ExpectedThumbnailPaths(storageID string, specs []model.ThumbnailSizeSpec) []string {
	paths := make([]string, len(specs))
	for i, spec := range specs {
		paths[i] = ThumbnailPath(storageID, spec.Name)
	}
	return paths
}

// TranscodePath returns the canonical relative path for a transcoded
// rendition: {formatFolder}/{filenameStem}.{extension} per the converter
// profile.
func TranscodePath(p Profile, filenameStem string) string {
	return path.Join(p.Folder, filenameStem+"."+p.Extension)
}

// PathFor maps (storage identifier or stem, kind, name) to a canonical
// relative path. An unknown kind is a programmer error.
func PathFor(storageIDOrStem string, kind model.Kind, p Profile, sizeName string) string {
	switch kind {
	case model.KindThumbnail:
		return ThumbnailPath(storageIDOrStem, sizeName)
	case model.KindTranscode:
		return TranscodePath(p, storageIDOrStem)
	default:
		panic(fmt.Sprintf("unknown derivative kind %q", kind))
	}
}

// OriginalPath resolves the original file location under the storage
// base: {basePath}/original/{storageId}, appending the original
// filename's extension when the storage ID carries none.
func OriginalPath(basePath, storageID, filename string) string {
	name := storageID
	if path.Ext(storageID) == "" {
		if ext := path.Ext(filename); ext != "" {
			name = storageID + ext
		}
	}
	return path.Join(basePath, "original", name)
}
