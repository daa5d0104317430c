package model

// Envelope is the response body shape of every directory endpoint.
type Envelope[T any] struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Result  T      `json:"result,omitempty"`
}

// UserRecord is the directory's public view of a user.
type UserRecord struct {
	ID        string   `json:"id"`
	FullName  string   `json:"fullName"`
	Email     string   `json:"email"`
	RoleNames []string `json:"roleNames"`
	Active    bool     `json:"active"`
	IsDelete  bool     `json:"isDelete"`
	LastLogin string   `json:"lastLogin,omitempty"`
	Avatar    string   `json:"avatar,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Dob       string   `json:"dob,omitempty"`
}

// CurrentUser is the identity snapshot returned by /user/myInfo.
type CurrentUser struct {
	ID        string   `json:"id"`
	FullName  string   `json:"fullName"`
	Email     string   `json:"email"`
	RoleNames []string `json:"roleNames"`
	Avatar    string   `json:"avatar,omitempty"`
}

// IsAdmin reports whether the current user may manage other accounts.
func (c CurrentUser) IsAdmin() bool {
	for _, r := range c.RoleNames {
		if r == RoleAdmin {
			return true
		}
	}
	return false
}

// Page is one server-paginated slice of the directory.
type Page struct {
	Content       []UserRecord `json:"content"`
	TotalElements int          `json:"totalElements"`
	TotalPages    int          `json:"totalPages"`
	Page          int          `json:"page"`
	Size          int          `json:"size"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the login/refresh response body.
type AuthResult struct {
	Token         string `json:"token"`
	Authenticated bool   `json:"authenticated"`
}

// StatusPatch locks or unlocks an account.
type StatusPatch struct {
	Active bool `json:"active"`
}

// PasswordChange is the update-pass request body. OldPassword is required when changing one's own password.
type PasswordChange struct {
	OldPassword string `json:"oldPassword,omitempty"`
	NewPassword string `json:"newPassword"`
}

// UserUpdate is the partial update body accepted by /user/update/{id}.
type UserUpdate struct {
	FullName  *string   `json:"fullName,omitempty"`
	Email     *string   `json:"email,omitempty"`
	Password  *string   `json:"password,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Dob       *string   `json:"dob,omitempty"`
	RoleNames *[]string `json:"roleNames,omitempty"`
	Active    *bool     `json:"active,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
}
