package rpc

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// GatewayClaims is the bearer token payload a gateway presents on connect,
// carrying the location it is authorized to serve.
type GatewayClaims struct {
	jwt.RegisteredClaims
	LocationID int64  `json:"location_id"`
	Name       string `json:"name"`
	Version    string `json:"version"`
}

// claimsContextKey is the context key StreamAuthInterceptor stashes validated
// claims under for the handler to read back out.
type claimsContextKey struct{}

// ClaimsFromContext retrieves the claims StreamAuthInterceptor validated.
func ClaimsFromContext(ctx context.Context) (*GatewayClaims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*GatewayClaims)
	return c, ok
}

// StreamAuthInterceptor validates the "authorization: Bearer <token>"
// metadata on every streaming RPC against signingKey, rejecting the stream
// with codes.Unauthenticated on failure, matching the status-code-based
// error surface subscribe.go uses for RPC-level rejections.
func StreamAuthInterceptor(signingKey []byte) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		claims, err := authenticate(ss.Context(), signingKey)
		if err != nil {
			return err
		}
		wrapped := &authedStream{ServerStream: ss, ctx: context.WithValue(ss.Context(), claimsContextKey{}, claims)}
		return handler(srv, wrapped)
	}
}

type authedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (a *authedStream) Context() context.Context { return a.ctx }

func authenticate(ctx context.Context, signingKey []byte) (*GatewayClaims, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "missing metadata")
	}
	values := md.Get("authorization")
	if len(values) == 0 {
		return nil, status.Error(codes.Unauthenticated, "missing authorization header")
	}
	raw := strings.TrimPrefix(values[0], "Bearer ")
	claims := &GatewayClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return nil, status.Error(codes.Unauthenticated, "invalid gateway token")
	}
	return claims, nil
}
