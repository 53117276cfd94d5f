package registry

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// LoginPayload is what the HTTP layer needs to log a user in
type LoginPayload interface {
	GetUsername() string
	GetPassword() string
}

// ControllerRoutes are the paths served by Controller, relative to the prefix
type ControllerRoutes struct {
	Signup          string
	Login           string
	Logout          string
	User            string
	UserData        string
	UserDetails     string
	AdminAccept     string
	AdminRefuse     string
	AdminDashboard  string
	AdminUsers      string
	AdminCollection string
	Voters          string
}

// Controller exposes the registry over JSON
type Controller struct {
	Debug     bool
	Logger    Logger
	Repo      RepositoryManager
	Lifecycle *Lifecycle
	Gate      *Gate
	Browser   *Browser
	Auther    *RouteAuthenticator
	Routes    *ControllerRoutes
}

type ControllerOption func(*Controller) *Controller

func WithControllerDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRepository(repo RepositoryManager) ControllerOption {
	return func(c *Controller) *Controller {
		c.Repo = repo
		return c
	}
}

func WithControllerLifecycle(l *Lifecycle) ControllerOption {
	return func(c *Controller) *Controller {
		c.Lifecycle = l
		return c
	}
}

func WithControllerGate(g *Gate) ControllerOption {
	return func(c *Controller) *Controller {
		c.Gate = g
		return c
	}
}

func WithControllerBrowser(b *Browser) ControllerOption {
	return func(c *Controller) *Controller {
		c.Browser = b
		return c
	}
}

func WithControllerAuthenticator(a *RouteAuthenticator) ControllerOption {
	return func(c *Controller) *Controller {
		c.Auther = a
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	c := &Controller{
		Logger: defLogger{},
		Routes: &ControllerRoutes{
			Signup:          "/signup",
			Login:           "/login",
			Logout:          "/logout",
			User:            "/user",
			UserData:        "/user/data",
			UserDetails:     "/user/details/:username",
			AdminAccept:     "/admin/accept",
			AdminRefuse:     "/admin/refuse",
			AdminDashboard:  "/admin/dashboard",
			AdminUsers:      "/admin/users",
			AdminCollection: "/admin/collections",
			Voters:          "/voters",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in registry controller...")
	}

	if c.Lifecycle == nil || c.Gate == nil || c.Browser == nil {
		panic("Missing lifecycle, gate or browser in registry controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteAuthenticator in registry controller...")
	}

	return c
}

// RegisterRoutes mounts every route on r, r is usually a group with the
// configured prefix
func (a *Controller) RegisterRoutes(r fiber.Router) {
	admin := a.Auther.ProtectedRoute(RoleAdmin)
	session := a.Auther.ProtectedRoute()

	r.Post(a.Routes.Signup, a.Signup).Name("signup.post")
	r.Post(a.Routes.Login, a.Login).Name("login.post")
	r.Post(a.Routes.Logout, a.Logout).Name("logout.post")

	r.Get(a.Routes.User, session, a.CurrentUser).Name("user.get")
	r.Get(a.Routes.UserData, session, a.UserData).Name("user-data.get")
	r.Post(a.Routes.UserData, session, a.UserDataCreate).Name("user-data.post")
	r.Get(a.Routes.UserDetails, a.UserDetails).Name("user-details.get")

	r.Post(a.Routes.AdminAccept, admin, a.Accept).Name("admin-accept.post")
	r.Post(a.Routes.AdminRefuse, admin, a.Refuse).Name("admin-refuse.post")
	r.Get(a.Routes.AdminDashboard, admin, a.Dashboard).Name("admin-dashboard.get")
	r.Post(a.Routes.AdminUsers, admin, a.AdminCreateUser).Name("admin-users.post")
	r.Get(a.Routes.AdminCollection, admin, a.Collections).Name("admin-collections.get")
	r.Get(fmt.Sprintf("%s/:name", a.Routes.AdminCollection), admin, a.Collection).
		Name("admin-collection.get")

	r.Post(a.Routes.Voters, a.VoterCreate).Name("voters.post")
	r.Get(a.Routes.Voters, a.VoterList).Name("voters.get")
	r.Get(fmt.Sprintf("%s/:id", a.Routes.Voters), a.VoterGet).Name("voter.get")
	r.Put(fmt.Sprintf("%s/:id", a.Routes.Voters), a.VoterUpdate).Name("voter.put")
}

// SignupRequest is the payload for signup and admin user creation
type SignupRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	Constituency string `json:"constituency"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Match(UsernamePattern)),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.Role, validation.Required, validation.In(roleValues()...)),
		validation.Field(&r.Constituency, validation.Required, validation.Length(1, 200)),
	)
}

func (r *SignupRequest) normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Role = strings.TrimSpace(r.Role)
	r.Constituency = strings.TrimSpace(r.Constituency)
}

func (r SignupRequest) Registration() Registration {
	role, _ := ParseRole(r.Role)
	return Registration{
		Username:     r.Username,
		Password:     r.Password,
		Role:         role,
		Constituency: r.Constituency,
	}
}

func roleValues() []any {
	roles := GetAllRoles()
	out := make([]any, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}

func (r SignupRequest) redacted() SignupRequest {
	r.Password = "********"
	return r
}

// LoginRequest payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// GetUsername returns the username
func (r LoginRequest) GetUsername() string {
	return r.Username
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// TargetUserRequest names the user an admin acts on
type TargetUserRequest struct {
	Username string `json:"username"`
}

// Validate will run validation rules
func (r TargetUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
	)
}

// VoterUpdateRequest only carries the fields an update may change,
// absent fields keep their stored value
type VoterUpdateRequest struct {
	Name         *string `json:"name"`
	Constituency *string `json:"constituency"`
}

// Validate will run validation rules
func (r VoterUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(0, 200)),
		validation.Field(&r.Constituency, validation.Length(0, 200)),
	)
}

func (r VoterUpdateRequest) Patch() VoterPatch {
	return VoterPatch{Name: r.Name, Constituency: r.Constituency}
}

type validatable interface {
	Validate() error
}

type normalizer interface {
	normalize()
}

func (a *Controller) bind(c *fiber.Ctx, payload validatable) error {
	if err := c.BodyParser(payload); err != nil {
		return ErrInvalidPayload(err)
	}
	if n, ok := payload.(normalizer); ok {
		n.normalize()
	}
	if err := payload.Validate(); err != nil {
		return ErrInvalidPayload(err)
	}
	return nil
}

func (a *Controller) dump(label string, payload any) {
	if !a.Debug {
		return
	}
	fmt.Println("======= " + label + " ======")
	fmt.Println(print.MaybePrettyJSON(payload))
	fmt.Println("=========================")
}

func (a *Controller) fail(c *fiber.Ctx, err error) error {
	return a.Auther.ErrorHandler(c, err)
}

// identity returns the caller stored by ProtectedRoute
func (a *Controller) identity(c *fiber.Ctx) (*Identity, bool) {
	if identity, ok := FromContext(c.UserContext()); ok {
		return identity, true
	}
	return GetFiberIdentity(c)
}

func (a *Controller) Signup(c *fiber.Ctx) error {
	payload := new(SignupRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	a.dump("SIGNUP", payload.redacted())

	user, session, err := a.Lifecycle.Signup(c.UserContext(), payload.Registration())
	if err != nil {
		return a.fail(c, err)
	}

	a.Auther.SetSession(c, session)

	message := "Signup request submitted. Awaiting admin approval."
	if session != nil {
		message = "Admin signup and login successful"
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"user":    user,
	})
}

func (a *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	user, err := a.Auther.Login(c, payload)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"user":    user,
	})
}

func (a *Controller) Logout(c *fiber.Ctx) error {
	if err := a.Auther.Logout(c); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Logged out",
	})
}

func (a *Controller) CurrentUser(c *fiber.Ctx) error {
	identity, ok := a.identity(c)
	if !ok {
		return a.fail(c, ErrUnauthenticated)
	}
	return c.JSON(fiber.Map{
		"user": identity,
	})
}

func (a *Controller) UserData(c *fiber.Ctx) error {
	identity, ok := a.identity(c)
	if !ok {
		return a.fail(c, ErrUnauthenticated)
	}

	docs, err := a.Browser.UserData(c.UserContext(), identity)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"userData": docs,
	})
}

func (a *Controller) UserDataCreate(c *fiber.Ctx) error {
	identity, ok := a.identity(c)
	if !ok {
		return a.fail(c, ErrUnauthenticated)
	}

	data := map[string]any{}
	if err := c.BodyParser(&data); err != nil {
		return a.fail(c, ErrInvalidPayload(err))
	}

	doc, err := a.Browser.AddUserDocument(c.UserContext(), identity, data)
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"document": doc,
	})
}

func (a *Controller) UserDetails(c *fiber.Ctx) error {
	user, err := a.Lifecycle.PublicDetails(c.UserContext(), c.Params("username"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"user": user,
	})
}

func (a *Controller) Accept(c *fiber.Ctx) error {
	identity, _ := a.identity(c)

	payload := new(TargetUserRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	user, err := a.Lifecycle.Approve(c.UserContext(), identity, payload.Username)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User accepted",
		"user":    user,
	})
}

func (a *Controller) Refuse(c *fiber.Ctx) error {
	identity, _ := a.identity(c)

	payload := new(TargetUserRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	user, err := a.Lifecycle.Refuse(c.UserContext(), identity, payload.Username)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "User refused",
		"user":    user,
	})
}

func (a *Controller) Dashboard(c *fiber.Ctx) error {
	identity, _ := a.identity(c)

	dash, err := a.Gate.AdminDashboard(c.UserContext(), identity)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(dash)
}

func (a *Controller) AdminCreateUser(c *fiber.Ctx) error {
	identity, _ := a.identity(c)

	payload := new(SignupRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	a.dump("ADMIN CREATE USER", payload.redacted())

	user, err := a.Lifecycle.AdminCreateUser(c.UserContext(), identity, payload.Registration())
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

func (a *Controller) Collections(c *fiber.Ctx) error {
	collections, err := a.Browser.Collections(c.UserContext())
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"collections": collections,
	})
}

func (a *Controller) Collection(c *fiber.Ctx) error {
	docs, err := a.Browser.Collection(c.UserContext(), c.Params("name"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{
		"documents": docs,
	})
}

func (a *Controller) VoterCreate(c *fiber.Ctx) error {
	payload := map[string]any{}
	if err := c.BodyParser(&payload); err != nil {
		return a.fail(c, ErrInvalidPayload(err))
	}

	a.dump("VOTER CREATE", payload)

	voter, err := a.Repo.Voters().Create(c.UserContext(), VoterFromPayload(payload))
	if err != nil {
		return a.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"voter": voter,
	})
}

func (a *Controller) VoterList(c *fiber.Ctx) error {
	voters, err := a.Repo.Voters().List(c.UserContext())
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(voters)
}

func (a *Controller) VoterGet(c *fiber.Ctx) error {
	voter, err := a.Repo.Voters().Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(voter)
}

func (a *Controller) VoterUpdate(c *fiber.Ctx) error {
	payload := new(VoterUpdateRequest)
	if err := a.bind(c, payload); err != nil {
		return a.fail(c, err)
	}

	voter, err := a.Repo.Voters().Update(c.UserContext(), c.Params("id"), payload.Patch())
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"voter": voter,
	})
}
