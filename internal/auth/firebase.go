package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
)

// InitializeFirebase initializes the Firebase Admin SDK and returns an Auth client
func InitializeFirebase(ctx context.Context, credentialsPath string) (*fbauth.Client, error) {
	if credentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}

	return authClient, nil
}

// FirebaseVerifier reads role and department from custom token claims.
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (Identity, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromClaims(decoded.UID, decoded.Claims), nil
}

func identityFromClaims(uid string, claims map[string]interface{}) Identity {
	id := Identity{UserID: uid, Role: domain.RoleUser}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		id.Role = domain.Role(role)
	}
	if dept, ok := claims["department"].(string); ok {
		id.DepartmentID = dept
	}
	return id
}
