package echoapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/ecampus-dev/aula/core"
	"github.com/ecampus-dev/aula/core/account"
)

var (
	defaultUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

	oauthStateCookie = "oauthstate"
)

type accountApi struct {
	svc      *account.Service
	creds    *account.CredentialStore
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		svc:      deps.AccountSvc,
		creds:    deps.Creds,
		validate: deps.Validate,
	}

	ag := g.Group("/accounts")

	// un-authed endpoints
	ag.POST("/login", api.login)
	ag.GET("/google/login-url", api.googleLoginURL)
	ag.GET("/google/callback", api.googleCallback)

	// authed endpoints
	authed := ag.Group("", jwt)
	authed.POST("/token-refresh", api.refreshToken)
	authed.GET("/me", api.me)
	authed.GET("", api.query, coordinatorMiddleware())
	authed.POST("/register", api.create, coordinatorMiddleware())
}

// Handlers

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := authenticate(ctx, data.Email, data.Password, api.svc)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// googleLoginURL hands the SPA the consent URL; the state nonce rides in
// a short-lived cookie checked on callback.
func (api *accountApi) googleLoginURL(ctx echo.Context) error {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return errors.Wrap(err, "generating oauth state")
	}
	state := hex.EncodeToString(buf)

	ctx.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
	})

	url := api.creds.OAuthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline)
	return ctx.JSON(http.StatusOK, LoginURLResponse{URL: url})
}

// googleCallback lands the browser straight from Google's consent screen,
// so both outcomes are redirects to the frontend: the JWT rides in the
// query string on success, error messages ride in "?error=".
func (api *accountApi) googleCallback(ctx echo.Context) error {
	cookie, err := ctx.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != ctx.QueryParam("state") {
		return redirectWithError(ctx, "oauth state mismatch")
	}

	code := ctx.QueryParam("code")
	if code == "" {
		return redirectWithError(ctx, "missing authorization code")
	}

	oauthConf := api.creds.OAuthConfig()
	tok, err := oauthConf.Exchange(ctx.Request().Context(), code)
	if err != nil {
		return redirectWithError(ctx, "exchanging authorization code failed")
	}

	profile, err := api.fetchProfile(ctx, oauthConf, tok)
	if err != nil {
		return redirectWithError(ctx, "fetching google profile failed")
	}

	acct, err := api.svc.LogIn(ctx.Request().Context(), profile, tok.AccessToken, tok.RefreshToken, tok.Expiry)
	if err != nil {
		return errors.Wrap(err, "logging account in")
	}
	if acct.IsActive != nil && !*acct.IsActive {
		return redirectWithError(ctx, "account deactivated")
	}

	token, err := GenerateToken(GetAccountClaims(acct))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.Redirect(http.StatusFound, conf.FrontendBaseURL+"/dashboard?token="+url.QueryEscape(token))
}

func redirectWithError(ctx echo.Context, msg string) error {
	return ctx.Redirect(http.StatusFound, conf.FrontendBaseURL+"/?error="+url.QueryEscape(msg))
}

func (api *accountApi) fetchProfile(ctx echo.Context, oauthConf *oauth2.Config, tok *oauth2.Token) (account.GoogleProfile, error) {
	var profile account.GoogleProfile

	userinfoURL := defaultUserinfoURL
	if conf.Google.UserinfoURL != "" {
		userinfoURL = conf.Google.UserinfoURL
	}
	res, err := oauthConf.Client(ctx.Request().Context(), tok).Get(userinfoURL)
	if err != nil {
		return profile, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		return profile, echo.NewHTTPError(http.StatusBadGateway, "userinfo lookup failed")
	}
	err = json.NewDecoder(res.Body).Decode(&profile)
	return profile, err
}

func (api *accountApi) create(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	acct, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating account")
	}
	return ctx.JSON(http.StatusCreated, acct)
}

func (api *accountApi) me(ctx echo.Context) error {
	acct, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	return ctx.JSON(http.StatusOK, acct)
}

func (api *accountApi) query(ctx echo.Context) error {
	filter := new(account.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []account.Account{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	accts, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying accounts")
	}
	if accts == nil {
		accts = []account.Account{}
	}
	return ctx.JSON(http.StatusOK, accts)
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}

	LoginURLResponse struct {
		URL string `json:"url"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}
