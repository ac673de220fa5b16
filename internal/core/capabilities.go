package core

import (
	"strings"

	"github.com/ofs-tools/ofs-client/internal/models"
	"github.com/ofs-tools/ofs-client/internal/protocol"
)

// Action is one user-facing action of the main view.
type Action uint32

const (
	ActionBrowse Action = 1 << iota
	ActionCreateDir
	ActionCreateFile
	ActionReadFile
	ActionEditFile
	ActionDelete
	ActionMetadata
	ActionRename
	ActionTruncate
	ActionSetPermissions
	ActionExplainError
	ActionLogout
	ActionListUsers
	ActionCreateUser
	ActionDeleteUser
	ActionStats
)

var actionNames = map[Action]string{
	ActionBrowse:         "browse",
	ActionCreateDir:      "create_dir",
	ActionCreateFile:     "create_file",
	ActionReadFile:       "read_file",
	ActionEditFile:       "edit_file",
	ActionDelete:         "delete",
	ActionMetadata:       "metadata",
	ActionRename:         "rename",
	ActionTruncate:       "truncate",
	ActionSetPermissions: "set_permissions",
	ActionExplainError:   "explain_error",
	ActionLogout:         "logout",
	ActionListUsers:      "list_users",
	ActionCreateUser:     "create_user",
	ActionDeleteUser:     "delete_user",
	ActionStats:          "stats",
}

// actionOps lists the operations each action may issue.
var actionOps = map[Action][]protocol.Operation{
	ActionBrowse:         {protocol.OpDirList},
	ActionCreateDir:      {protocol.OpDirCreate},
	ActionCreateFile:     {protocol.OpFileCreate, protocol.OpFileEdit},
	ActionReadFile:       {protocol.OpFileRead},
	ActionEditFile:       {protocol.OpFileEdit},
	ActionDelete:         {protocol.OpFileDelete, protocol.OpDirDelete},
	ActionMetadata:       {protocol.OpGetMetadata},
	ActionRename:         {protocol.OpFileRename},
	ActionTruncate:       {protocol.OpFileTruncate},
	ActionSetPermissions: {protocol.OpSetPerms},
	ActionExplainError:   {protocol.OpGetErrorMsg},
	ActionLogout:         {protocol.OpUserLogout},
	ActionListUsers:      {protocol.OpUserList},
	ActionCreateUser:     {protocol.OpUserCreate},
	ActionDeleteUser:     {protocol.OpUserDelete},
	ActionStats:          {protocol.OpGetStats},
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ActionSet is a set of actions.
type ActionSet uint32

// Has reports whether a is in the set.
func (s ActionSet) Has(a Action) bool {
	return s&ActionSet(a) != 0
}

// With returns the set with a added.
func (s ActionSet) With(a Action) ActionSet {
	return s | ActionSet(a)
}

// Actions lists the members in declaration order.
func (s ActionSet) Actions() []Action {
	var out []Action
	for a := ActionBrowse; a <= ActionStats; a <<= 1 {
		if s.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

func (s ActionSet) String() string {
	names := make([]string, 0, len(actionNames))
	for _, a := range s.Actions() {
		names = append(names, a.String())
	}
	return strings.Join(names, ",")
}

// CapabilitiesFor returns the actions available to role. An action is
// granted when none of its operations is admin-only, or when role is admin.
func CapabilitiesFor(role models.Role) ActionSet {
	var set ActionSet
	for a, ops := range actionOps {
		allowed := true
		for _, op := range ops {
			spec, ok := protocol.Lookup(op)
			if !ok || (spec.AdminOnly && role != models.RoleAdmin) {
				allowed = false
				break
			}
		}
		if allowed {
			set = set.With(a)
		}
	}
	return set
}
