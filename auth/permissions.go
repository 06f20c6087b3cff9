package auth

import "timetable-backend/models"

// Permissions
const (
	PermManageUsers       = "manage_users"
	PermManageDepartments = "manage_departments"
	PermManageTeachers    = "manage_teachers"
	PermManageSubjects    = "manage_subjects"
	PermManageClasses     = "manage_classes"
	PermManageRooms       = "manage_rooms"
	PermManageTimetables  = "manage_timetables"
	PermViewAll           = "view_all"

	PermManageDeptTeachers = "manage_department_teachers"
	PermManageDeptSubjects = "manage_department_subjects"
	PermManageDeptClasses  = "manage_department_classes"
	PermCreateTimetables   = "create_timetables"
	PermEditTimetables     = "edit_timetables"
	PermViewDepartment     = "view_department"

	PermViewSchedule      = "view_schedule"
	PermViewClasses       = "view_classes"
	PermUpdateProfile     = "update_profile"
	PermViewClassSchedule = "view_class_schedule"
	PermViewProfile       = "view_profile"
)

var rolePermissions = map[string][]string{
	models.RoleAdmin: {
		PermManageUsers, PermManageDepartments, PermManageTeachers, PermManageSubjects,
		PermManageClasses, PermManageRooms, PermManageTimetables, PermViewAll,
	},
	models.RoleHOD: {
		PermManageDeptTeachers, PermManageDeptSubjects, PermManageDeptClasses,
		PermCreateTimetables, PermViewDepartment,
	},
	models.RoleCoordinator: {
		PermCreateTimetables, PermEditTimetables, PermViewDepartment,
	},
	models.RoleTeacher: {
		PermViewSchedule, PermViewClasses, PermUpdateProfile,
	},
	models.RoleStudent: {
		PermViewClassSchedule, PermViewProfile,
	},
}

// implied maps a department-scoped permission to the global ones that also grant it.
var implied = map[string][]string{
	PermManageDeptTeachers: {PermManageTeachers},
	PermManageDeptSubjects: {PermManageSubjects},
	PermManageDeptClasses:  {PermManageClasses},
	PermCreateTimetables:   {PermManageTimetables},
	PermEditTimetables:     {PermManageTimetables},
	PermViewDepartment:     {PermViewAll},
}

func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

func Permissions(role string) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

func HasPermission(role, perm string) bool {
	perms := rolePermissions[role]
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	for _, wider := range implied[perm] {
		for _, p := range perms {
			if p == wider {
				return true
			}
		}
	}
	return false
}
