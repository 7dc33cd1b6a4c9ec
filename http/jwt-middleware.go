package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/golang-jwt/jwt/v5/request"
	"github.com/programme-lv/duel/httpjson"
	"github.com/programme-lv/duel/srvcerror"
)

// JwtClaims are issued by the account service; only the identity is used here.
type JwtClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// User is the caller's identity: the subject, or the username for older tokens.
func (c *JwtClaims) User() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Username
}

type ctxKey string

const ctxUserKey ctxKey = "user"

func validateJwt(tokenStr string, jwtKey []byte) (*JwtClaims, error) {
	claims := &JwtClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.User() == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}

func getJwtAuthMiddleware(jwtKey []byte) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		hfn := func(w http.ResponseWriter, r *http.Request) {
			logger := httplog.LogEntry(r.Context())

			token, err := request.BearerExtractor{}.ExtractToken(r)
			if err != nil {
				httpjson.HandleError(logger, w, srvcerror.ErrUnauthorized().SetDebug(err))
				return
			}
			claims, err := validateJwt(token, jwtKey)
			if err != nil {
				httpjson.HandleError(logger, w, srvcerror.ErrUnauthorized().SetDebug(err))
				return
			}

			ctx := context.WithValue(r.Context(), ctxUserKey, claims.User())
			next.ServeHTTP(w, r.WithContext(ctx))
		}
		return http.HandlerFunc(hfn)
	}
}

func callerFromContext(ctx context.Context) string {
	user, _ := ctx.Value(ctxUserKey).(string)
	return user
}
