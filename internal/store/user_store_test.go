package store_test

import (
	"testing"

	"github.com/rehberapp/rehber-go/internal/auth"
	"github.com/rehberapp/rehber-go/internal/store"
	"github.com/rehberapp/rehber-go/internal/testutil"
)

func TestUserStore_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	passwordHash, _ := auth.HashPassword("password123")

	t.Run("Create User Success", func(t *testing.T) {
		user, err := s.CreateUser("counselor1", passwordHash, "counselor")
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.Username != "counselor1" {
			t.Errorf("Expected username 'counselor1', got '%s'", user.Username)
		}
	})

	t.Run("Create User with Duplicate Username", func(t *testing.T) {
		_, err := s.CreateUser("counselor1", passwordHash, "counselor")
		if err == nil {
			t.Fatal("Expected error when creating user with duplicate username, but got nil")
		}
	})

	t.Run("Get User By Username", func(t *testing.T) {
		user, err := s.GetUserByUsername("counselor1")
		if err != nil {
			t.Fatalf("GetUserByUsername failed: %v", err)
		}
		if !auth.CheckPasswordHash("password123", user.PasswordHash) {
			t.Error("Password hash does not match")
		}
	})

	t.Run("Get Non-existent User", func(t *testing.T) {
		_, err := s.GetUserByUsername("nonexistent")
		if err == nil {
			t.Fatal("Expected error when getting non-existent user, but got nil")
		}
	})

	t.Run("Count Users", func(t *testing.T) {
		count, err := s.CountUsers()
		if err != nil {
			t.Fatalf("CountUsers failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected 1 user, got %d", count)
		}
	})
}

func TestUserStore_UpdateAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	passwordHash, _ := auth.HashPassword("password123")
	user, _ := s.CreateUser("userToUpdate", passwordHash, "counselor")

	t.Run("Update User Info", func(t *testing.T) {
		err := s.UpdateUser(user.ID, "updatedUsername", "admin")
		if err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		updatedUser, _ := s.GetUserByID(user.ID)
		if updatedUser.Username != "updatedUsername" || updatedUser.Role != "admin" {
			t.Errorf("User info was not updated correctly. Got: %+v", updatedUser)
		}
	})

	t.Run("Update User Password", func(t *testing.T) {
		newPasswordHash, _ := auth.HashPassword("newpassword")
		err := s.UpdateUserPassword(user.ID, newPasswordHash)
		if err != nil {
			t.Fatalf("UpdateUserPassword failed: %v", err)
		}
		updatedUser, _ := s.GetUserByID(user.ID)
		if !auth.CheckPasswordHash("newpassword", updatedUser.PasswordHash) {
			t.Error("Password was not updated correctly")
		}
	})

	t.Run("Delete User", func(t *testing.T) {
		err := s.DeleteUser(user.ID)
		if err != nil {
			t.Fatalf("DeleteUser failed: %v", err)
		}
		_, err = s.GetUserByID(user.ID)
		if err == nil {
			t.Fatal("Expected error getting deleted user, but got nil")
		}
	})
}

func TestUserStore_Sessions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	s := store.New(db)

	passwordHash, _ := auth.HashPassword("password123")
	user, _ := s.CreateUser("sessionuser", passwordHash, "counselor")

	token, err := s.CreateAuthSession(user.ID)
	if err != nil {
		t.Fatalf("CreateAuthSession failed: %v", err)
	}
	if token == "" {
		t.Fatal("Expected a non-empty session token")
	}

	t.Run("Get User From Session", func(t *testing.T) {
		got, err := s.GetUserFromSession(token)
		if err != nil {
			t.Fatalf("GetUserFromSession failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("Expected user %d, got %d", user.ID, got.ID)
		}
	})

	t.Run("Get User From Invalid Session", func(t *testing.T) {
		_, err := s.GetUserFromSession("not-a-real-token")
		if err == nil {
			t.Fatal("Expected error for invalid session token, but got nil")
		}
	})

	t.Run("Delete Session", func(t *testing.T) {
		if err := s.DeleteSession(token); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		_, err := s.GetUserFromSession(token)
		if err == nil {
			t.Fatal("Expected error after deleting session, but got nil")
		}
	})
}
