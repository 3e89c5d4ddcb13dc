package firebase

import (
	"context"
	"fmt"
	"strings"
)

const devTokenPrefix = "dev:"

// DevTokenVerifier backs STORE_DRIVER=memory: a token of the form
// "dev:<uid>" authenticates as uid. Never wire it in production.
type DevTokenVerifier struct{}

var _ TokenVerifier = DevTokenVerifier{}

func (DevTokenVerifier) VerifyToken(ctx context.Context, token string) (string, error) {
	uid := strings.TrimPrefix(token, devTokenPrefix)
	if uid == token || strings.TrimSpace(uid) == "" {
		return "", fmt.Errorf("not a development token")
	}
	return uid, nil
}

func DevToken(uid string) string {
	return devTokenPrefix + uid
}
