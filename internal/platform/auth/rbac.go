package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Role names. The set is closed: tokens carrying an unknown role get no
// permissions at all.
const (
	RoleSuperAdmin        = "super_admin"
	RoleHospitalAdmin     = "hospital_admin"
	RoleHospitalITAdmin   = "hospital_it_admin"
	RolePhysician         = "physician"
	RoleNurse             = "nurse"
	RoleNursingSupervisor = "nursing_supervisor"
	RoleBedManager        = "bed_manager"
	RoleDispatcher        = "dispatcher"
	RoleRadiologist       = "radiologist"
	RoleLabTech           = "lab_tech"
	RolePharmacist        = "pharmacist"
	RoleBiller            = "biller"
	RoleReceptionist      = "receptionist"
)

// Permission identifies a guarded capability. Handlers declare the
// permission a route needs; the role table below decides who holds it.
type Permission string

const (
	PermOrgManage     Permission = "org:manage" // platform owner: approve/suspend hospitals
	PermOrgRead       Permission = "org:read"
	PermStaffManage   Permission = "staff:manage"
	PermPatientRead   Permission = "patient:read"
	PermPatientWrite  Permission = "patient:write"
	PermBedRead       Permission = "bed:read"
	PermBedWrite      Permission = "bed:write"
	PermAdmissionRead Permission = "admission:read"
	PermAdmit         Permission = "admission:write"
	PermAmbulanceRead Permission = "ambulance:read"
	PermAmbulanceReq  Permission = "ambulance:request"
	PermAmbulanceOps  Permission = "ambulance:operate" // approve/dispatch/status
	PermBillingRead   Permission = "billing:read"
	PermBillingWrite  Permission = "billing:write"
	PermBillingVoid   Permission = "billing:void" // reversal/void of invoices
	PermScheduleRead  Permission = "schedule:read"
	PermScheduleWrite Permission = "schedule:write"
	PermPharmacyRead  Permission = "pharmacy:read"
	PermPrescribe     Permission = "pharmacy:prescribe"
	PermDispense      Permission = "pharmacy:dispense"
	PermLabRead       Permission = "lab:read"
	PermLabOrder      Permission = "lab:order"
	PermLabResult     Permission = "lab:result"
	PermImagingRead   Permission = "imaging:read"
	PermImagingOrder  Permission = "imaging:order"
	PermImagingReport Permission = "imaging:report"
	PermTelehealth    Permission = "telehealth:join"
	PermAuditRead     Permission = "audit:read"
	PermAuditPlatform Permission = "audit:platform"
)

// rolePermissions is the single source of truth for authorization. Endpoint
// handlers never compare role strings directly; historical bugs (a platform
// super admin reading clinical data, billers touching beds) came from
// scattered ad hoc checks.
//
// Note super_admin holds platform permissions only: organization lifecycle
// and platform audit. It deliberately has no patient/clinical permissions.
var rolePermissions = map[string]map[Permission]bool{
	RoleSuperAdmin: permSet(
		PermOrgManage, PermOrgRead, PermAuditPlatform,
	),
	RoleHospitalAdmin: permSet(
		PermOrgRead, PermStaffManage,
		PermPatientRead, PermBedRead, PermAdmissionRead,
		PermAmbulanceRead, PermAmbulanceOps,
		PermBillingRead, PermBillingVoid,
		PermScheduleRead, PermLabRead, PermImagingRead, PermPharmacyRead,
		PermAuditRead,
	),
	RoleHospitalITAdmin: permSet(
		PermOrgRead, PermStaffManage, PermAuditRead,
	),
	RolePhysician: permSet(
		PermPatientRead, PermPatientWrite,
		PermBedRead, PermAdmissionRead, PermAdmit,
		PermAmbulanceRead, PermAmbulanceReq,
		PermScheduleRead, PermScheduleWrite,
		PermPharmacyRead, PermPrescribe,
		PermLabRead, PermLabOrder,
		PermImagingRead, PermImagingOrder,
		PermTelehealth,
	),
	RoleNurse: permSet(
		PermPatientRead,
		PermBedRead, PermAdmissionRead,
		PermAmbulanceRead, PermAmbulanceReq,
		PermScheduleRead,
		PermPharmacyRead,
		PermLabRead, PermLabResult,
		PermImagingRead,
		PermTelehealth,
	),
	RoleNursingSupervisor: permSet(
		PermPatientRead,
		PermBedRead, PermBedWrite, PermAdmissionRead, PermAdmit,
		PermAmbulanceRead,
		PermScheduleRead,
		PermLabRead, PermImagingRead, PermPharmacyRead,
	),
	RoleBedManager: permSet(
		PermPatientRead, PermBedRead, PermBedWrite, PermAdmissionRead, PermAdmit,
	),
	RoleDispatcher: permSet(
		PermAmbulanceRead, PermAmbulanceReq, PermAmbulanceOps,
	),
	RoleRadiologist: permSet(
		PermPatientRead, PermImagingRead, PermImagingReport,
	),
	RoleLabTech: permSet(
		PermPatientRead, PermLabRead, PermLabResult,
	),
	RolePharmacist: permSet(
		PermPatientRead, PermPharmacyRead, PermDispense,
	),
	RoleBiller: permSet(
		PermPatientRead, PermBillingRead, PermBillingWrite,
	),
	RoleReceptionist: permSet(
		PermPatientRead, PermPatientWrite, PermScheduleRead, PermScheduleWrite,
	),
}

func permSet(perms ...Permission) map[Permission]bool {
	m := make(map[Permission]bool, len(perms))
	for _, p := range perms {
		m[p] = true
	}
	return m
}

// HasPermission reports whether the role holds the permission.
func HasPermission(role string, perm Permission) bool {
	return rolePermissions[role][perm]
}

// PermissionsForRole returns a copy of the role's permission set, for the
// /auth/me endpoint and for tests.
func PermissionsForRole(role string) []Permission {
	set := rolePermissions[role]
	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	return perms
}

// Require returns middleware that rejects callers whose role holds none of
// the given permissions.
func Require(perms ...Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			for _, p := range perms {
				if HasPermission(role, p) {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("role %q lacks permission %s", role, perms[0]))
		}
	}
}
