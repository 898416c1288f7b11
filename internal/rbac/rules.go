package rbac

const (
	RoleAuthor = "author"
	RoleViewer = "viewer"
	RoleAdmin  = "admin"
)

const (
	PermPackageValidate = "package:validate"
	PermExportCreate    = "export:create"
	PermExportView      = "export:view"
	PermCourseBuild     = "course:build"
	PermPrefsRead       = "prefs:read"
	PermPrefsWrite      = "prefs:write"
)

// Default policy.
var RolePermissions = map[string][]string{
	RoleViewer: {
		PermPackageValidate,
		PermExportView,
		PermPrefsRead,
	},
	RoleAuthor: {
		"package:*",
		"export:*",
		PermCourseBuild,
		"prefs:*",
	},
	RoleAdmin: {
		"*", // everything
	},
}

// Permissions lists every permission the API checks.
var Permissions = []string{
	PermPackageValidate,
	PermExportCreate,
	PermExportView,
	PermCourseBuild,
	PermPrefsRead,
	PermPrefsWrite,
}
