package storefront

type (
	UserDetails struct {
		ID          int64  `json:"id"`
		Avatar      string `json:"avatar"`
		FirstName   string `json:"firstName"`
		LastName    string `json:"lastName"`
		Username    string `json:"username"`
		Email       string `json:"email"`
		Status      string `json:"status"`
		VerifyEmail bool   `json:"verifyEmail"`
	}

	PasswordChange struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}

	// Dashboard holds the admin counters, a counter that failed to load stays nil.
	Dashboard struct {
		Users      *int64
		Products   *int64
		Categories *int64
	}
)
