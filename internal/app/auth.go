package app

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"office-booking/internal/apperrors"
)

const (
	SessionCookie = "session"
	actorKey      = "actor"

	MsgTooManyLogins = "Too many login attempts, try again later."
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// Credential is one of the shared logins. Exactly one of Password and
// PasswordHash needs to be set; plain passwords are hashed on startup.
type Credential struct {
	Username     string
	Password     string
	PasswordHash string
	Role         Role
}

type account struct {
	username string
	hash     []byte
	role     Role
}

// Authenticator checks the shared credentials and issues signed session
// tokens carrying the role.
type Authenticator struct {
	accounts []account
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthenticator(secret string, ttl time.Duration, creds ...Credential) (*Authenticator, error) {
	if secret == "" {
		return nil, errors.New("session secret required")
	}
	a := &Authenticator{secret: []byte(secret), ttl: ttl, now: time.Now}
	for _, c := range creds {
		hash := []byte(c.PasswordHash)
		if len(hash) == 0 {
			var err error
			hash, err = bcrypt.GenerateFromPassword([]byte(c.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, err
			}
		}
		a.accounts = append(a.accounts, account{username: c.Username, hash: hash, role: c.Role})
	}
	return a, nil
}

// Login returns the actor for a matching username and password.
func (a *Authenticator) Login(username, password string) (Actor, error) {
	for _, acc := range a.accounts {
		if acc.username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
			return Actor{}, ErrInvalidCredentials
		}
		return Actor{Role: acc.role, Username: acc.username}, nil
	}
	return Actor{}, ErrInvalidCredentials
}

// Issue signs a session token for actor. A zero ttl means no expiry.
func (a *Authenticator) Issue(actor Actor) (string, error) {
	now := a.now()
	claims := sessionClaims{
		Role: actor.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  actor.Username,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse verifies a session token and returns its actor.
func (a *Authenticator) Parse(tokenStr string) (Actor, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return a.secret, nil
	}, jwt.WithLeeway(5*time.Second), jwt.WithTimeFunc(a.now))
	if err != nil {
		return Actor{}, err
	}
	role := parseRole(claims.Role)
	if role == RoleAnonymous {
		return Actor{}, jwt.ErrTokenInvalidClaims
	}
	return Actor{Role: role, Username: claims.Subject}, nil
}

// ResolveActor reads the session cookie, or a bearer token for API
// clients, and stores the resulting Actor in the gin context. Requests
// without a valid session continue as anonymous.
func (a *App) ResolveActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := Actor{Role: RoleAnonymous}
		if tokenStr := sessionToken(c); tokenStr != "" {
			if parsed, err := a.Auth.Parse(tokenStr); err == nil {
				actor = parsed
			} else {
				a.Log.Debug("Ignoring invalid session", "error", err)
			}
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		parts := strings.Fields(auth)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

func actorFrom(c *gin.Context) Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(Actor); ok {
			return actor
		}
	}
	return Actor{Role: RoleAnonymous}
}

// RequireLogin sends anonymous visitors to the login page.
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actorFrom(c).Role == RoleAnonymous {
			setFlash(c, apperrors.MsgLoginRequired)
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects everyone but admins with a JSON 401.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !actorFrom(c).CanDelete() {
			err := apperrors.Unauthorized("admin session required")
			c.AbortWithStatusJSON(err.StatusCode(), err.Response())
			return
		}
		c.Next()
	}
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// GET /login
func (a *App) LoginPageHandler(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", a.page(c, 0, gin.H{}))
}

// POST /login
func (a *App) LoginHandler(c *gin.Context) {
	allowed, err := a.Limiter.Allow(c.Request.Context(), c.ClientIP())
	if err != nil {
		// a broken limiter must not lock everyone out
		a.Log.Warn("Login rate limiter error", "error", err)
		allowed = true
	}
	if !allowed {
		appErr := apperrors.TooManyRequests(MsgTooManyLogins)
		a.Log.Warn("Login rate limit exceeded", "client_ip", c.ClientIP(), "code", appErr.Code)
		setFlash(c, appErr.Message)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		setFlash(c, ErrInvalidCredentials.Error())
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	actor, err := a.Auth.Login(strings.TrimSpace(form.Username), form.Password)
	if err != nil {
		a.Log.Info("Login failed", "username", form.Username, "client_ip", c.ClientIP())
		setFlash(c, "Invalid username or password!")
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	token, err := a.Auth.Issue(actor)
	if err != nil {
		a.Log.Error("Failed to issue session", "error", err)
		setFlash(c, apperrors.MsgInternal)
		c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	maxAge := 0
	if a.Auth.ttl > 0 {
		maxAge = int(a.Auth.ttl / time.Second)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", c.Request.TLS != nil, true)

	a.Log.Info("Login succeeded", "username", actor.Username, "role", actor.Role.String())
	setFlash(c, "Welcome, "+actor.Username+"!")
	c.Redirect(http.StatusSeeOther, "/"+KindRoom.String())
}

// POST /logout
func (a *App) LogoutHandler(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	setFlash(c, "You have been logged out.")
	c.Redirect(http.StatusSeeOther, "/login")
}
