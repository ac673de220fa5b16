package protocol

import (
	"fmt"
	"sort"
)

// Operation is the name of a remote procedure in the OFS catalog.
type Operation string

const (
	OpUserLogin    Operation = "user_login"
	OpUserLogout   Operation = "user_logout"
	OpUserList     Operation = "user_list"
	OpUserCreate   Operation = "user_create"
	OpUserDelete   Operation = "user_delete"
	OpDirList      Operation = "dir_list"
	OpDirCreate    Operation = "dir_create"
	OpDirDelete    Operation = "dir_delete"
	OpDirExists    Operation = "dir_exists"
	OpFileCreate   Operation = "file_create"
	OpFileRead     Operation = "file_read"
	OpFileEdit     Operation = "file_edit"
	OpFileDelete   Operation = "file_delete"
	OpFileExists   Operation = "file_exists"
	OpFileTruncate Operation = "file_truncate"
	OpFileRename   Operation = "file_rename"
	OpGetMetadata  Operation = "get_metadata"
	OpSetPerms     Operation = "set_permissions"
	OpGetStats     Operation = "get_stats"
	OpGetErrorMsg  Operation = "get_error_message"
)

// OperationSpec describes the contract of one catalog entry.
type OperationSpec struct {
	Name   Operation
	Params []string
	// AdminOnly operations are hidden from non-admin sessions. The server
	// remains the authority on enforcement.
	AdminOnly bool
	// Mutating operations change the remote tree; the current directory is
	// re-listed after them.
	Mutating bool
	// Anonymous operations may be issued without a session.
	Anonymous bool
}

var catalog = map[Operation]OperationSpec{
	OpUserLogin:    {Name: OpUserLogin, Params: []string{"username", "password"}, Anonymous: true},
	OpUserLogout:   {Name: OpUserLogout},
	OpUserList:     {Name: OpUserList, AdminOnly: true},
	OpUserCreate:   {Name: OpUserCreate, Params: []string{"username", "password", "role"}, AdminOnly: true},
	OpUserDelete:   {Name: OpUserDelete, Params: []string{"username"}, AdminOnly: true},
	OpDirList:      {Name: OpDirList, Params: []string{"path"}},
	OpDirCreate:    {Name: OpDirCreate, Params: []string{"path"}, Mutating: true},
	OpDirDelete:    {Name: OpDirDelete, Params: []string{"path"}, Mutating: true},
	OpDirExists:    {Name: OpDirExists, Params: []string{"path"}},
	OpFileCreate:   {Name: OpFileCreate, Params: []string{"path", "size"}, Mutating: true},
	OpFileRead:     {Name: OpFileRead, Params: []string{"path"}},
	OpFileEdit:     {Name: OpFileEdit, Params: []string{"path", "data"}, Mutating: true},
	OpFileDelete:   {Name: OpFileDelete, Params: []string{"path"}, Mutating: true},
	OpFileExists:   {Name: OpFileExists, Params: []string{"path"}},
	OpFileTruncate: {Name: OpFileTruncate, Params: []string{"path"}, Mutating: true},
	OpFileRename:   {Name: OpFileRename, Params: []string{"old_path", "new_path"}, Mutating: true},
	OpGetMetadata:  {Name: OpGetMetadata, Params: []string{"path"}},
	OpSetPerms:     {Name: OpSetPerms, Params: []string{"path", "permissions"}, Mutating: true},
	OpGetStats:     {Name: OpGetStats, AdminOnly: true},
	OpGetErrorMsg:  {Name: OpGetErrorMsg, Params: []string{"error_code"}, Anonymous: true},
}

// Lookup returns the catalog entry for op.
func Lookup(op Operation) (OperationSpec, bool) {
	s, ok := catalog[op]
	return s, ok
}

// Operations returns every catalog operation sorted by name.
func Operations() []Operation {
	ops := make([]Operation, 0, len(catalog))
	for op := range catalog {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Validate checks that op is known and that every declared parameter is
// present in params.
func Validate(op Operation, params Params) error {
	s, ok := catalog[op]
	if !ok {
		return fmt.Errorf("unknown operation %q", op)
	}
	for _, name := range s.Params {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("%s: missing parameter %q", op, name)
		}
	}
	return nil
}
