package auth

import (
	"errors"
	"fmt"

	"github.com/cataur/talent-auth/middleware/jwtware"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// RegisterAuthRoutes mounts the JSON authentication endpoints on the given
// router. GET /me runs behind the session middleware; everything else is
// public.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegisterPost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.Logout, controller.LogoutPost)
	app.Post(controller.Routes.Forgot, controller.ForgotPost)
	app.Post(controller.Routes.Reset, controller.ResetPost)
	app.Post(controller.Routes.SendCode, controller.SendCodePost)

	app.Get(
		controller.Routes.Me,
		controller.Auther.Protected("", controller.renderAuthError),
		controller.MeGet,
	)
}

type AuthControllerRoutes struct {
	Register string
	Login    string
	Logout   string
	Me       string
	Forgot   string
	Reset    string
	SendCode string
}

type AuthController struct {
	Debug    bool
	Sandbox  bool
	Logger   Logger
	Repo     RepositoryManager
	Auther   *RouteAuthenticator
	Notifier Notifier
	Routes   *AuthControllerRoutes

	// ClientBaseURL is the public origin of the web client, used to build
	// password reset links.
	ClientBaseURL string
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register: "/register",
			Login:    "/login",
			Logout:   "/logout",
			Me:       "/me",
			Forgot:   "/forgot",
			Reset:    "/reset",
			SendCode: "/send-code",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithRouteAuthenticator(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithNotifier(notifier Notifier) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Notifier = notifier
		return c
	}
}

func WithClientBaseURL(baseURL string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ClientBaseURL = baseURL
		return c
	}
}

// WithSandbox enables behavior meant for non production deployments, like
// echoing the reset token back in the forgot password response.
func WithSandbox(sandbox bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sandbox = sandbox
		return c
	}
}

func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, is.Email),
		// bcrypt rejects inputs longer than 72 bytes, so the cap keeps the
		// failure a validation error instead of a hashing error.
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.Code, validation.Required),
	)
}

func (a *AuthController) RegisterPost(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return renderValidationError(c, fiber.Map{"body": "Failed to parse request body"})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register user validate payload", "error", err)
		return renderValidationError(c, formatValidationErrors(err))
	}

	if a.Debug {
		fmt.Println("======= AUTH REGISTER ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("============================")
	}

	var user *User
	req := RegisterUserMessage{
		FullName: payload.FullName,
		Email:    payload.Email,
		Phone:    payload.Phone,
		Role:     payload.Role,
		Password: payload.Password,
		Code:     payload.Code,
		OnResponse: func(u *User) {
			user = u
		},
	}

	registerUser := NewRegisterUserHandler(a.Repo)
	if err := registerUser.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("register user execute", "error", err)
		return a.renderError(c, err)
	}

	if err := a.Auther.Impersonate(c, user.Email); err != nil {
		a.Logger.Error("register user session", "error", err)
		return a.renderError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user": user,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	// No shape check on the identifier. Anything that is not a registered
	// email fails the credential check with the same 401 as a bad password.
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return renderValidationError(c, fiber.Map{"body": "Failed to parse request body"})
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, formatValidationErrors(err))
	}

	if err := a.Auther.Login(c, payload.Email, payload.Password); err != nil {
		return a.renderError(c, err)
	}

	user, err := a.Repo.Users().GetByEmail(c.UserContext(), payload.Email)
	if err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"user": user,
	})
}

// LogoutPost clears the session cookie. Calling it without a session is
// fine, the response is the same.
func (a *AuthController) LogoutPost(c *fiber.Ctx) error {
	a.Auther.Logout(c)
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

func (a *AuthController) MeGet(c *fiber.Ctx) error {
	claims, ok := GetFiberClaims(c, a.Auther.GetContextKey())
	if !ok {
		return a.renderError(c, ErrNotAuthenticated)
	}

	return c.JSON(fiber.Map{
		"user": fiber.Map{
			"id":    claims.UserID(),
			"email": claims.Email(),
			"name":  claims.Name(),
			"role":  claims.Role(),
		},
	})
}

// ForgotRequest payload
type ForgotRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r ForgotRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// ForgotPost kicks off a password reset. The response is identical whether
// or not the address maps to an account, so the endpoint cannot be used to
// enumerate users. Sandbox deployments additionally echo the token so
// integration tests can complete the flow without a mailbox.
func (a *AuthController) ForgotPost(c *fiber.Ctx) error {
	payload := new(ForgotRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("forgot password parse payload", "error", err)
		return renderValidationError(c, fiber.Map{"body": "Failed to parse request body"})
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, formatValidationErrors(err))
	}

	var res *InitializePasswordResetResponse
	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo, a.Notifier, a.ClientBaseURL, a.Logger)
	if err := initPwdReset.Execute(c.UserContext(), req); err != nil {
		a.Logger.Error("forgot password execute", "error", err)
		return a.renderError(c, err)
	}

	if a.Debug {
		fmt.Println("======= PASSWORD RESET ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("=============================")
	}

	body := fiber.Map{
		"message": "If that email is registered, a reset link is on its way",
	}

	if a.Sandbox && res != nil && res.Token != "" {
		body["token"] = res.Token
		body["expiresAt"] = res.ExpiresAt
	}

	return c.JSON(body)
}

// ResetRequest payload
type ResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r ResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
	)
}

func (a *AuthController) ResetPost(c *fiber.Ctx) error {
	payload := new(ResetRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return renderValidationError(c, fiber.Map{"body": "Failed to parse request body"})
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, formatValidationErrors(err))
	}

	req := FinalizePasswordResetMessage{
		Token:    payload.Token,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo).WithLogger(a.Logger)
	if err := finalizePwdReset.Execute(c.UserContext(), req); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Password updated",
	})
}

// SendCodeRequest payload
type SendCodeRequest struct {
	Email string `json:"email"`
}

// Validate will run validation rules
func (r SendCodeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) SendCodePost(c *fiber.Ctx) error {
	payload := new(SendCodeRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("send verification code parse payload", "error", err)
		return renderValidationError(c, fiber.Map{"body": "Failed to parse request body"})
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(c, formatValidationErrors(err))
	}

	sendCode := NewSendVerificationCodeHandler(a.Repo, a.Notifier, a.Logger)
	if err := sendCode.Execute(c.UserContext(), SendVerificationCodeMessage{Email: payload.Email}); err != nil {
		return a.renderError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Verification code sent",
	})
}

// renderAuthError translates middleware failures into the session errors:
// a missing or undecodable cookie is 401, a role mismatch is 403.
func (a *AuthController) renderAuthError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrAccessDenied) {
		return a.renderError(c, ErrForbidden)
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return a.renderError(c, err)
	}

	return a.renderError(c, ErrNotAuthenticated)
}

// renderError maps rich errors to JSON responses. The status comes from the
// error's code when set, otherwise from its category. Server side failures
// never leak their message.
func (a *AuthController) renderError(c *fiber.Ctx, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		a.Logger.Error("unhandled error", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	status := richErr.Code
	if status == 0 {
		switch richErr.Category {
		case goerrors.CategoryValidation, goerrors.CategoryBadInput:
			status = fiber.StatusBadRequest
		case goerrors.CategoryConflict:
			status = fiber.StatusConflict
		case goerrors.CategoryAuth:
			status = fiber.StatusUnauthorized
		case goerrors.CategoryAuthz:
			status = fiber.StatusForbidden
		case goerrors.CategoryNotFound:
			status = fiber.StatusNotFound
		default:
			status = fiber.StatusInternalServerError
		}
	}

	if status >= fiber.StatusInternalServerError {
		a.Logger.Error(
			"request failed",
			"error", richErr.Message,
			"category", richErr.Category,
			"details", print.MaybePrettyJSON(richErr.Metadata),
		)
		return c.Status(status).JSON(fiber.Map{
			"message": "Internal server error",
		})
	}

	body := fiber.Map{"message": richErr.Message}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	return c.Status(status).JSON(body)
}

func renderValidationError(c *fiber.Ctx, fields fiber.Map) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"code":    TextCodeInvalidPayload,
		"errors":  fields,
	})
}

// formatValidationErrors flattens ozzo validation errors into a field to
// message map.
func formatValidationErrors(err error) fiber.Map {
	out := fiber.Map{}
	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["payload"] = err.Error()
	return out
}
