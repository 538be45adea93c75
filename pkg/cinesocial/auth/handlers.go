package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/cinesocial/pkg/cinesocial/apperr"
	"github.com/mikepea/cinesocial/pkg/cinesocial/models"
	"github.com/mikepea/cinesocial/pkg/cinesocial/sanitize"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Handler handles authentication requests
type Handler struct {
	db     *gorm.DB
	issuer *Issuer
	log    *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(db *gorm.DB, issuer *Issuer, log *zap.Logger) *Handler {
	return &Handler{db: db, issuer: issuer, log: log}
}

// RegisterUser is the account being created. Older clients send the
// plaintext password as password_hash.
type RegisterUser struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordHash string `json:"password_hash"`
	UserDesc     string `json:"user_desc"`
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	User RegisterUser `json:"user"`
}

// LoginUser identifies the account by username or email
type LoginUser struct {
	NameOrEmail  string `json:"nameoremail"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	PasswordHash string `json:"password_hash"`
}

// LoginRequest represents the login request body
type LoginRequest struct {
	User LoginUser `json:"user"`
}

// RegisterResponse is returned when an account is created
type RegisterResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
}

// LoginResponse represents the authentication response
type LoginResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	UserDesc string `json:"user_desc"`
	Token    string `json:"token"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account
// @Tags user
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} RegisterResponse
// @Failure 400 {object} apperr.ErrorResponse "Missing fields"
// @Failure 409 {object} apperr.ErrorResponse "Username or email already registered"
// @Router /user/register [post]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}

	username := strings.TrimSpace(req.User.Username)
	email := sanitize.Email(req.User.Email)
	password := firstNonEmpty(req.User.Password, req.User.PasswordHash)
	if username == "" || email == "" || password == "" {
		apperr.Abort(c, apperr.InvalidArgument("Username, email and password are required"))
		return
	}
	if sanitize.HasMarkup(username) {
		apperr.Abort(c, apperr.InvalidArgument("Username must not contain markup"))
		return
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		apperr.Abort(c, apperr.Internal("Failed to process password", err))
		return
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		UserDesc:     sanitize.Text(req.User.UserDesc),
	}

	// The unique indexes decide duplicates, so concurrent registrations
	// cannot both succeed.
	if err := h.db.WithContext(c.Request.Context()).Create(&user).Error; err != nil {
		apperr.Abort(c, apperr.FromDB(err, "User not found", "Username or email already registered"))
		return
	}

	h.log.Info("user registered", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusCreated, RegisterResponse{ID: user.ID, Email: user.Email})
}

// Login handles user login
// @Summary Login
// @Description Authenticate with username or email and password to receive a JWT token
// @Tags user
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} apperr.ErrorResponse "Missing fields"
// @Failure 401 {object} apperr.ErrorResponse "Invalid password"
// @Failure 404 {object} apperr.ErrorResponse "User not found"
// @Router /user/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperr.Abort(c, apperr.InvalidArgument("Invalid request body"))
		return
	}

	identifier := strings.TrimSpace(firstNonEmpty(req.User.NameOrEmail, req.User.Username, req.User.Email))
	password := firstNonEmpty(req.User.Password, req.User.PasswordHash)
	if identifier == "" || password == "" {
		apperr.Abort(c, apperr.InvalidArgument("Your username or email and password are required"))
		return
	}

	user, err := h.authenticate(c, identifier, password)
	if err != nil {
		apperr.Abort(c, err)
		return
	}

	token, err := h.issuer.GenerateToken(user.ID, user.Username)
	if err != nil {
		apperr.Abort(c, apperr.Internal("Failed to generate token", err))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		UserDesc: user.UserDesc,
		Token:    token,
	})
}

// authenticate finds the user by username or email and checks the password
func (h *Handler) authenticate(c *gin.Context, identifier, password string) (*models.User, error) {
	var user models.User
	err := h.db.WithContext(c.Request.Context()).
		Where("username = ? OR email = ?", identifier, sanitize.Email(identifier)).
		First(&user).Error
	if err != nil {
		err = apperr.FromDB(err, "User not found", "")
		if apperr.Is(err, apperr.KindNotFound) {
			burnPasswordCheck(password)
		}
		return nil, err
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, apperr.InvalidCredential("Invalid password")
	}
	return &user, nil
}

// RegisterRoutes registers auth routes on the given router group. guards run
// in front of login only.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, guards ...gin.HandlerFunc) {
	rg.POST("/register", h.Register)
	rg.POST("/login", append(guards, h.Login)...)
}
