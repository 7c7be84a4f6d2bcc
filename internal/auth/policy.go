package auth

import (
	"sort"

	"pkgmcp/internal/logging"
)

// Operation is a named action a caller may attempt. The set is closed: every
// operation the server exposes must appear in operationTable.
type Operation int

const (
	OpUnknown Operation = iota

	// Read-only
	OpListResources
	OpReadResource
	OpListResourceTemplates
	OpListTools
	OpListPrompts
	OpGetPrompt

	// Package management
	OpInstall
	OpUninstall
	OpAdd
	OpRemove
	OpSync
	OpLock
	OpInit
	OpUpgrade

	// User management
	OpCreateUser
	OpDeleteUser
	OpListUsers

	// Language tooling
	OpDartFormat
	OpDartAnalyze
	OpDartFix
	OpDartGenerateCode
	OpDartCheckStandards
	OpTypeScriptFormat
	OpTypeScriptLint
	OpTypeScriptTypeCheck
	OpTypeScriptGenerateCode
	OpTypeScriptCheckStandards

	// Codebase indexing
	OpIndexProject
	OpRefreshIndex
	OpDiscoverProjects
	OpAnalyzeCodebase
)

type operationInfo struct {
	name     string
	readOnly bool
}

var operationTable = map[Operation]operationInfo{
	OpListResources:         {"list_resources", true},
	OpReadResource:          {"read_resource", true},
	OpListResourceTemplates: {"list_resource_templates", true},
	OpListTools:             {"list_tools", true},
	OpListPrompts:           {"list_prompts", true},
	OpGetPrompt:             {"get_prompt", true},

	OpInstall:   {"install", false},
	OpUninstall: {"uninstall", false},
	OpAdd:       {"add", false},
	OpRemove:    {"remove", false},
	OpSync:      {"sync", false},
	OpLock:      {"lock", false},
	OpInit:      {"init", false},
	OpUpgrade:   {"upgrade", false},

	OpCreateUser: {"create_user", false},
	OpDeleteUser: {"delete_user", false},
	OpListUsers:  {"list_users", false},

	OpDartFormat:               {"dart_format", false},
	OpDartAnalyze:              {"dart_analyze", false},
	OpDartFix:                  {"dart_fix", false},
	OpDartGenerateCode:         {"dart_generate_code", false},
	OpDartCheckStandards:       {"dart_check_standards", false},
	OpTypeScriptFormat:         {"typescript_format", false},
	OpTypeScriptLint:           {"typescript_lint", false},
	OpTypeScriptTypeCheck:      {"typescript_type_check", false},
	OpTypeScriptGenerateCode:   {"typescript_generate_code", false},
	OpTypeScriptCheckStandards: {"typescript_check_standards", false},

	OpIndexProject:     {"index_project", false},
	OpRefreshIndex:     {"refresh_index", false},
	OpDiscoverProjects: {"discover_projects", false},
	OpAnalyzeCodebase:  {"analyze_codebase", false},
}

var operationsByName = func() map[string]Operation {
	m := make(map[string]Operation, len(operationTable))
	for op, info := range operationTable {
		m[info.name] = op
	}
	return m
}()

// ParseOperation looks up an operation by its wire name.
func ParseOperation(name string) (Operation, bool) {
	op, ok := operationsByName[name]
	return op, ok
}

func (op Operation) String() string {
	if info, ok := operationTable[op]; ok {
		return info.name
	}
	return "unknown"
}

// ReadOnly reports whether regular users may perform op.
func (op Operation) ReadOnly() bool {
	return operationTable[op].readOnly
}

// Operations returns every known operation name, sorted.
func Operations() []string {
	names := make([]string, 0, len(operationsByName))
	for name := range operationsByName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Policy decides whether an identity may perform an operation.
type Policy struct {
	enabled bool
	logger  *logging.AppLogger
}

// NewPolicy creates a policy. When userAuthEnabled is false every operation
// is allowed and only the authentication layer gates access.
func NewPolicy(userAuthEnabled bool, logger *logging.AppLogger) *Policy {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Policy{
		enabled: userAuthEnabled,
		logger:  logger.With("component", "policy"),
	}
}

// Enabled reports whether role-based checks are active.
func (p *Policy) Enabled() bool {
	return p.enabled
}

// CheckPermission reports whether user may perform op. Admins may do anything,
// regular users only read-only operations, and a missing identity nothing.
// OpUnknown is refused for regular users.
func (p *Policy) CheckPermission(user *User, op Operation) bool {
	if !p.enabled {
		return true
	}
	if user == nil {
		return false
	}
	if user.Role == RoleAdmin {
		return true
	}
	if user.Role != RoleUser {
		return false
	}

	if _, known := operationTable[op]; !known {
		p.logger.Warn("Denying unclassified operation", "username", user.Username)
		return false
	}
	return op.ReadOnly()
}

// CheckPermissionName is CheckPermission for a wire name. Names outside the
// operation table resolve to OpUnknown.
func (p *Policy) CheckPermissionName(user *User, name string) bool {
	op, ok := ParseOperation(name)
	if !ok {
		p.logger.Debug("Unknown operation requested", "operation", name)
	}
	return p.CheckPermission(user, op)
}
