package rbac

const (
	PermissionReadTemplate     = "template:read"
	PermissionWriteTemplate    = "template:write"
	PermissionReadInstance     = "instance:read"
	PermissionCompleteInstance = "instance:complete"
	PermissionCreateInstance   = "instance:create"
	PermissionManageFamily     = "family:manage"
)

const (
	RoleParent = "parent"
	RoleChild  = "child"
	RoleAdmin  = "admin"
)

var rolePermissions = map[string][]string{
	RoleChild: {
		PermissionReadTemplate,
		PermissionReadInstance,
		PermissionCompleteInstance,
	},
	RoleParent: {
		PermissionReadTemplate,
		PermissionWriteTemplate,
		PermissionReadInstance,
		PermissionCompleteInstance,
		PermissionCreateInstance,
		PermissionManageFamily,
	},
	RoleAdmin: {
		PermissionReadTemplate,
		PermissionWriteTemplate,
		PermissionReadInstance,
		PermissionCompleteInstance,
		PermissionCreateInstance,
		PermissionManageFamily,
	},
}

// NormalizeRole maps an empty or unknown role to child, the least privileged one.
func NormalizeRole(role string) string {
	if _, ok := rolePermissions[role]; ok {
		return role
	}
	return RoleChild
}

func HasPermission(role string, permission string) bool {
	for _, p := range rolePermissions[NormalizeRole(role)] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission is HasPermission returning a typed error for handlers.
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{
			Role:       NormalizeRole(role),
			Permission: permission,
		}
	}
	return nil
}

type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return "insufficient permissions: " + e.Role + " lacks " + e.Permission
}

// ValidateFamilyInPayload rejects bodies that name a family other than the token's.
// An empty payload family is accepted; the token's family is used.
func ValidateFamilyInPayload(tokenFamilyID, payloadFamilyID string) error {
	if payloadFamilyID != "" && payloadFamilyID != tokenFamilyID {
		return &FamilyMismatchError{
			TokenFamilyID:   tokenFamilyID,
			PayloadFamilyID: payloadFamilyID,
		}
	}
	return nil
}

type FamilyMismatchError struct {
	TokenFamilyID   string
	PayloadFamilyID string
}

func (e *FamilyMismatchError) Error() string {
	return "family_id in payload does not match token"
}
