package constants

import "fmt"

const (
	RoleUser      = "user"
	RoleOrganizer = "organizer"
	RoleAdmin     = "admin"
	RoleOwner     = "owner"
)

// Template pesan error role
const (
	ErrOnlyAdminsCanAccess       = "❌ Hanya admin yang boleh mengakses fitur %s."
	ErrOnlyOwnerOrAdminCanAccess = "❌ Hanya pemilik registrasi atau admin yang boleh mengakses fitur %s."
)

func RoleErrorAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyAdminsCanAccess, feature)
}

func RoleErrorOwnerOrAdmin(feature string) string {
	return fmt.Sprintf(ErrOnlyOwnerOrAdminCanAccess, feature)
}

var (
	AllRoles = []string{RoleUser, RoleOrganizer, RoleAdmin, RoleOwner}

	// AdminRoles boleh sync / lihat registrasi milik siapa pun
	AdminRoles = []string{RoleAdmin, RoleOwner}
)
