package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/iterator"
)

// TokenVerifier resolves a bearer token to the caller's uid.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type FirebaseAuthClient struct {
	client *auth.Client
}

var _ TokenVerifier = (*FirebaseAuthClient)(nil)

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", err
	}

	return result.UID, nil
}

// TestConnection checks the service account can reach Firebase Auth.
func (f *FirebaseAuthClient) TestConnection(ctx context.Context) error {
	iter := f.client.Users(ctx, "")
	_, err := iter.Next()
	if err != nil && err != iterator.Done {
		return err
	}
	return nil
}
