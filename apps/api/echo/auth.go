package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/eacna/portal/core"
	"github.com/eacna/portal/core/member"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "memberToken",
		Claims:        new(Claims),
	}
	contextMemberKey = "member"
)

// Claims represents the authorization claims transmitted via a JWT.
// Portal routing state is carried so the frontend can send a member to
// the right place without an extra round trip; the portal gate itself is
// always re-checked server-side against the stored record.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt     int64  `json:"oriat,omitempty"`
	Email            string `json:"email,omitempty"`
	IsAdmin          bool   `json:"is_admin,omitempty"`
	PaymentApproved  bool   `json:"payment_approved,omitempty"`
	MembershipActive bool   `json:"membership_active,omitempty"`
}

func GetMemberClaims(mbr member.Member, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   mbr.ID,
			Audience:  "Membership",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt:     oriat,
		Email:            mbr.Email,
		IsAdmin:          mbr.IsAdmin,
		PaymentApproved:  mbr.PaymentApproved(),
		MembershipActive: mbr.MembershipActive(),
	}
	return claims
}

// GenerateToken generates a signed JWT token string representing the member Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextMember(ctx echo.Context, svc member.Service, clms ...Claims) (member.Member, error) {
	if mbr, ok := ctx.Get(contextMemberKey).(member.Member); ok {
		return mbr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return member.Member{}, errors.Wrap(err, "getting context claims")
		}
	}

	mbr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return member.Member{}, errors.Wrap(err, "finding member by ID")
	}
	ctx.Set(contextMemberKey, mbr)
	return mbr, nil
}

func refreshToken(ctx echo.Context, svc member.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	mbr, err := getContextMember(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context member")
	}

	// check if membership was deactivated in the meantime
	if mbr.MembershipStatus == member.MembershipInactive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetMemberClaims(mbr, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
