// ABOUTME: Unit tests for authentication context functions
// ABOUTME: Tests HasScope and context propagation helpers

package auth

import (
	"context"
	"testing"
)

func TestAuthContext_HasScope(t *testing.T) {
	tests := []struct {
		name  string
		auth  *AuthContext
		scope string
		want  bool
	}{
		{"oauth with scope", &AuthContext{Method: MethodOAuth, Scopes: []string{"wishlist"}}, "wishlist", true},
		{"oauth without scope", &AuthContext{Method: MethodOAuth, Scopes: []string{"profile"}}, "wishlist", false},
		{"oauth no scopes", &AuthContext{Method: MethodOAuth}, "wishlist", false},
		{"api token", &AuthContext{Method: MethodAPIToken}, "wishlist", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.auth.HasScope(tt.scope); got != tt.want {
				t.Errorf("HasScope(%q) = %v, want %v", tt.scope, got, tt.want)
			}
		})
	}
}

func TestWithAuth_FromContext(t *testing.T) {
	auth := &AuthContext{PrincipalID: OwnerPrincipal, ClientID: "client-1", Method: MethodOAuth}
	ctx := WithAuth(context.Background(), auth)

	got := FromContext(ctx)
	if got == nil {
		t.Fatal("FromContext returned nil")
	}
	if got.PrincipalID != OwnerPrincipal || got.ClientID != "client-1" {
		t.Errorf("FromContext = %+v, want %+v", got, auth)
	}
}

func TestFromContext_Missing(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext on empty context = %+v, want nil", got)
	}
}

func TestFromContext_WrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), authContextKey{}, "not an auth context")
	if got := FromContext(ctx); got != nil {
		t.Errorf("FromContext with wrong type = %+v, want nil", got)
	}
}

func TestMustFromContext_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("MustFromContext did not panic")
		}
	}()
	MustFromContext(context.Background())
}
