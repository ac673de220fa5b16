package services

import (
	"context"
	"fmt"

	"github.com/ofs-tools/ofs-client/internal/logging"
	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/protocol"
	"github.com/ofs-tools/ofs-client/internal/validation"
)

// FileService handles file and directory operations on the remote tree.
// Paths are absolute remote paths.
type FileService struct {
	inv    Invoker
	logger *logging.Logger
}

// NewFileService creates a new FileService.
func NewFileService(inv Invoker, logger *logging.Logger) *FileService {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &FileService{inv: inv, logger: logger.Named("file-service")}
}

// pathCall validates p and performs a call whose only parameter is the path.
func (fs *FileService) pathCall(ctx context.Context, op protocol.Operation, p string) (*protocol.Response, error) {
	if err := validation.ValidateRemotePath(p); err != nil {
		return nil, err
	}
	return invoke(ctx, fs.inv, op, protocol.Params{"path": p})
}

// List returns the children of dir, directories first then by name.
func (fs *FileService) List(ctx context.Context, dir string) ([]models.DirectoryEntry, error) {
	resp, err := fs.pathCall(ctx, protocol.OpDirList, dir)
	if err != nil {
		return nil, err
	}
	entries := []models.DirectoryEntry{}
	if resp.HasData() {
		if entries, err = decode[[]models.DirectoryEntry](protocol.OpDirList, resp); err != nil {
			return nil, err
		}
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return nil, malformed(protocol.OpDirList, err)
		}
	}
	fs.logger.Debug().Str("path", dir).Int("entries", len(entries)).Msg("listed directory")
	return models.SortEntries(entries), nil
}

// CreateDir creates an empty directory. The parent must exist.
func (fs *FileService) CreateDir(ctx context.Context, p string) error {
	_, err := fs.pathCall(ctx, protocol.OpDirCreate, p)
	return err
}

// DeleteDir removes a directory.
func (fs *FileService) DeleteDir(ctx context.Context, p string) error {
	_, err := fs.pathCall(ctx, protocol.OpDirDelete, p)
	return err
}

// DirExists reports whether p is a directory. The server answers "no" with
// an error response, so a false result carries that error.
func (fs *FileService) DirExists(ctx context.Context, p string) (bool, error) {
	if _, err := fs.pathCall(ctx, protocol.OpDirExists, p); err != nil {
		return false, err
	}
	return true, nil
}

// CreateFile creates a file with a declared initial size.
func (fs *FileService) CreateFile(ctx context.Context, p string, size int64) error {
	if err := validation.ValidateRemotePath(p); err != nil {
		return err
	}
	if size < 0 {
		return fmt.Errorf("file size cannot be negative: %d", size)
	}
	_, err := invoke(ctx, fs.inv, protocol.OpFileCreate, protocol.Params{"path": p, "size": size})
	return err
}

// CreateFileWithContent creates p sized to content and then writes content.
// The follow-up file_edit is skipped for empty content.
func (fs *FileService) CreateFileWithContent(ctx context.Context, p, content string) error {
	if err := fs.CreateFile(ctx, p, int64(len(content))); err != nil {
		return err
	}
	if content == "" {
		return nil
	}
	return fs.Edit(ctx, p, content)
}

type fileContent struct {
	Content string `json:"content"`
}

// Read returns the full content of a file.
func (fs *FileService) Read(ctx context.Context, p string) (string, error) {
	resp, err := fs.pathCall(ctx, protocol.OpFileRead, p)
	if err != nil {
		return "", err
	}
	if !resp.HasData() {
		return "", nil
	}
	fc, err := decode[fileContent](protocol.OpFileRead, resp)
	if err != nil {
		return "", err
	}
	return fc.Content, nil
}

// Edit replaces the whole content of a file.
func (fs *FileService) Edit(ctx context.Context, p, data string) error {
	if err := validation.ValidateRemotePath(p); err != nil {
		return err
	}
	_, err := invoke(ctx, fs.inv, protocol.OpFileEdit, protocol.Params{"path": p, "data": data})
	return err
}

// DeleteFile removes a file.
func (fs *FileService) DeleteFile(ctx context.Context, p string) error {
	_, err := fs.pathCall(ctx, protocol.OpFileDelete, p)
	return err
}

// FileExists reports whether p is a file. As with DirExists, false carries
// the server's error.
func (fs *FileService) FileExists(ctx context.Context, p string) (bool, error) {
	if _, err := fs.pathCall(ctx, protocol.OpFileExists, p); err != nil {
		return false, err
	}
	return true, nil
}

// Truncate empties a file.
func (fs *FileService) Truncate(ctx context.Context, p string) error {
	_, err := fs.pathCall(ctx, protocol.OpFileTruncate, p)
	return err
}

// Rename moves a file from oldPath to newPath.
func (fs *FileService) Rename(ctx context.Context, oldPath, newPath string) error {
	for _, p := range []string{oldPath, newPath} {
		if err := validation.ValidateRemotePath(p); err != nil {
			return err
		}
	}
	_, err := invoke(ctx, fs.inv, protocol.OpFileRename, protocol.Params{"old_path": oldPath, "new_path": newPath})
	return err
}

// Metadata returns the metadata record of p.
func (fs *FileService) Metadata(ctx context.Context, p string) (models.FileMetadata, error) {
	resp, err := fs.pathCall(ctx, protocol.OpGetMetadata, p)
	if err != nil {
		return models.FileMetadata{}, err
	}
	return decode[models.FileMetadata](protocol.OpGetMetadata, resp)
}

// SetPermissions sets the permission bits of p.
func (fs *FileService) SetPermissions(ctx context.Context, p string, perms uint32) error {
	if err := validation.ValidateRemotePath(p); err != nil {
		return err
	}
	if perms > 0777 {
		return validation.ErrInvalidPerms
	}
	_, err := invoke(ctx, fs.inv, protocol.OpSetPerms, protocol.Params{"path": p, "permissions": perms})
	return err
}
