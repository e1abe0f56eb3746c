package filestorage

import "errors"

// ErrInvalidPath is returned for paths that escape the storage root
var ErrInvalidPath = errors.New("invalid storage path")

// ErrFileExists is returned by Save when the destination is already taken
var ErrFileExists = errors.New("file already exists")

// FileStorage defines storage for generated exchange files
// (payer accumulation files, EDI deposit files, report exports).
type FileStorage interface {
	// Save writes data under subPath/filename and returns the storage-relative
	// path. Existing files are never overwritten.
	Save(subPath, filename string, data []byte) (string, error)

	// Read returns the contents of a storage-relative path
	Read(relPath string) ([]byte, error)

	// Delete removes a file; missing files are not an error
	Delete(relPath string) error

	// GetFullPath returns the filesystem path for a storage-relative path
	GetFullPath(relPath string) (string, error)
}
