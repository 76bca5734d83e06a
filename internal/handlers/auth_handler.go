package handlers

import (
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the authentication routes. The profile routes run
// behind verified, the account flows are public.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, verified ...fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/verify-otp", h.HandleVerifyOTP)
	authRoutes.Post("/resend-otp", h.HandleResendOTP)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/forgot-password", h.HandleForgotPassword)
	authRoutes.Post("/reset-password", h.HandleResetPassword)

	profile := &UserHandler{service: h.userService, validate: h.validate}
	authRoutes.Get("/profile", chain(verified, profile.HandleGetProfile)...)
	authRoutes.Put("/profile", chain(verified, profile.HandleUpdateProfile)...)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Phone    string `json:"phone"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.authService.Register(c.UserContext(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully, check your email for the verification code",
		"user":    result.User,
		"token":   result.Token,
	})
}

// VerifyOTPRequest represents the request body for email verification.
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

// HandleVerifyOTP confirms the account's email address.
func (h *AuthHandler) HandleVerifyOTP(c *fiber.Ctx) error {
	var req VerifyOTPRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.authService.VerifyOTP(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Email verified successfully",
		"user":    result.User,
		"token":   result.Token,
	})
}

// EmailRequest carries just an email address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleResendOTP issues a new verification code.
func (h *AuthHandler) HandleResendOTP(c *fiber.Ctx) error {
	var req EmailRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.ResendOTP(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "A new verification code has been sent"})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	result, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    result.User,
		"token":   result.Token,
	})
}

// HandleForgotPassword emails a password reset code.
func (h *AuthHandler) HandleForgotPassword(c *fiber.Ctx) error {
	var req EmailRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "A password reset code has been sent"})
}

// ResetPasswordRequest represents the request body for a password reset.
type ResetPasswordRequest struct {
	Email    string `json:"email" validate:"required,email"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleResetPassword sets a new password using the emailed code.
func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := bind(c, h.validate, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.authService.ResetPassword(c.UserContext(), req.Email, req.OTP, req.Password); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

func currentUserID(c *fiber.Ctx) string {
	if user := middleware.CurrentUser(c); user != nil {
		return user.ID
	}
	return ""
}
