package authapi

type (
	loginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	registerRequest struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	activateRequest struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}

	resendOTPRequest struct {
		Email string `json:"email"`
		Type  string `json:"type"`
	}

	refreshTokenRequest struct {
		RefreshToken string `json:"refreshToken"`
	}

	logoutRequest struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}

	tokenPairResponse struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
)
