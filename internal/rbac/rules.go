package rbac

// Permissions checked by the router.
const (
	PermExamView     = "exam:view"
	PermExamManage   = "exam:manage"
	PermResultSubmit = "result:submit"
	PermResultView   = "result:view-all"
)

// RolePermissions is the default policy.
var RolePermissions = map[string][]string{
	"student": {
		PermExamView,
		PermResultSubmit,
	},
	"admin": {
		"*", // everything
	},
}
