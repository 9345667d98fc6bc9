package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/joseph-ayodele/docintake/internal/common"
)

const macOSMetadataPrefix = "__MACOSX"

// ExpandArchive opens a ZIP held in memory and returns its file entries in
// archive order. Directory entries and macOS metadata are skipped; names are
// reduced to their base name. A corrupt archive fails as a whole.
func ExpandArchive(data []byte) ([]ArchiveEntry, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, common.InvalidArchive(err)
	}

	entries := make([]ArchiveEntry, 0, len(zr.File))
	for _, f := range zr.File {
		if skipArchiveEntry(f.Name) {
			continue
		}
		b, err := readZipFile(f)
		if err != nil {
			return nil, common.InvalidArchive(fmt.Errorf("entry %q: %w", f.Name, err))
		}
		entries = append(entries, ArchiveEntry{Name: path.Base(f.Name), Data: b})
	}
	return entries, nil
}

func skipArchiveEntry(name string) bool {
	return strings.HasSuffix(name, "/") || strings.HasPrefix(name, macOSMetadataPrefix)
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
