package permissions

type CreatePermissionRequest struct {
	Service     string `json:"service" validate:"required,min=2,max=100,excludesall=0x3A"`
	Entity      string `json:"entity" validate:"required,min=2,max=100,excludesall=0x3A"`
	Action      string `json:"action" validate:"required,min=2,max=50,excludesall=0x3A"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

type ListPermissionsRequest struct {
	Service string `json:"service" validate:"omitempty,max=100"`
}
