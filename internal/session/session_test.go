package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"recipe-planner/internal/database"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestParse(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("MongoStyleID", func(t *testing.T) {
		token := signedToken(t, jwt.MapClaims{"_id": "u1", "username": "chef", "exp": exp.Unix()})
		s, err := Parse(token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.UserID != "u1" || s.Username != "chef" || !s.ExpiresAt.Equal(exp) || s.Token != token {
			t.Errorf("unexpected session: %+v", s)
		}
	})

	t.Run("SubjectFallback", func(t *testing.T) {
		s, err := Parse(signedToken(t, jwt.MapClaims{"sub": "u2"}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.UserID != "u2" || !s.ExpiresAt.IsZero() {
			t.Errorf("unexpected session: %+v", s)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := Parse(""); err != ErrEmptyToken {
			t.Errorf("expected ErrEmptyToken, got %v", err)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		if _, err := Parse("not-a-token"); err == nil {
			t.Error("expected an error for a malformed token")
		}
	})
}

func TestActive(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var none *Session
	if none.Active(now) {
		t.Error("nil session must not be active")
	}
	if !(&Session{Token: "t"}).Active(now) {
		t.Error("session without expiry should be active")
	}
	expired := &Session{Token: "t", ExpiresAt: now}
	if expired.Active(now) || !expired.Expired(now) {
		t.Error("session expiring now should be expired")
	}
}

func TestRepository(t *testing.T) {
	db, err := database.NewDB(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	repo := NewRepository(db.SQL)

	got, err := repo.Get(ctx, CLIOwner)
	if err != nil || got != nil {
		t.Fatalf("expected no session, got %+v, %v", got, err)
	}

	exp := time.Unix(1900000000, 0)
	if err := repo.Save(ctx, CLIOwner, &Session{Token: "a", UserID: "u1", Username: "chef", ExpiresAt: exp}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := repo.Save(ctx, CLIOwner, &Session{Token: "b", UserID: "u1", Username: "chef"}); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, err = repo.Get(ctx, CLIOwner)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Token != "b" || !got.ExpiresAt.IsZero() {
		t.Errorf("expected the latest session, got %+v", got)
	}

	t.Run("CleanupExpired", func(t *testing.T) {
		_ = repo.Save(ctx, "42", &Session{Token: "old", ExpiresAt: time.Unix(1000, 0)})
		n, err := repo.CleanupExpired(ctx, time.Unix(2000, 0))
		if err != nil {
			t.Fatalf("cleanup failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 removed session, got %d", n)
		}
		if s, _ := repo.Get(ctx, CLIOwner); s == nil {
			t.Error("session without expiry must survive cleanup")
		}
	})

	if err := repo.Delete(ctx, CLIOwner); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if got, _ := repo.Get(ctx, CLIOwner); got != nil {
		t.Errorf("expected session to be gone, got %+v", got)
	}
}
