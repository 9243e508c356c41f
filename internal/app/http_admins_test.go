package app

import (
	"net/http"
	"testing"
)

func TestAdminRoutesRequireSuperAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "pooja", "admin123")

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/admins"},
		{http.MethodPost, "/api/admins"},
		{http.MethodPut, "/api/admins/arati"},
		{http.MethodDelete, "/api/admins/arati"},
	}
	for _, p := range paths {
		w := env.do(t, p.method, p.path, token, map[string]string{})
		if w.Code != http.StatusForbidden {
			t.Errorf("%s %s: status %d, want 403", p.method, p.path, w.Code)
		}
	}
}

func TestListAdminsOmitsPasswordHashes(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "shubham", "admin123")

	w := env.do(t, http.MethodGet, "/api/admins", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}
	payload := decodeMap(t, w)
	list, ok := payload["admins"].([]any)
	if !ok || len(list) != 4 {
		t.Fatalf("payload %v", payload)
	}
	for _, item := range list {
		admin := item.(map[string]any)
		if _, present := admin["passwordHash"]; present {
			t.Fatalf("hash leaked in %v", admin)
		}
	}
}

func TestCreateAdminAndLogin(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "shubham", "admin123")

	w := env.do(t, http.MethodPost, "/api/admins", token, map[string]string{
		"userId": "Sanjay", "name": "Sanjay", "role": "admin", "password": "s3cret!",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}
	created := decodeMap(t, w)
	if created["userId"] != "sanjay" {
		t.Fatalf("user id not lowercased: %v", created)
	}

	payload := env.login(t, "SANJAY", "s3cret!")
	if payload["role"] != "admin" {
		t.Fatalf("login payload %v", payload)
	}
}

func TestCreateAdminValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "shubham", "admin123")

	duplicate := env.do(t, http.MethodPost, "/api/admins", token, map[string]string{
		"userId": "POOJA", "name": "Pooja 2", "role": "admin", "password": "longenough",
	})
	if duplicate.Code != http.StatusConflict {
		t.Errorf("duplicate: status %d body %s", duplicate.Code, duplicate.Body.String())
	}

	weak := env.do(t, http.MethodPost, "/api/admins", token, map[string]string{
		"userId": "new", "name": "New", "role": "admin", "password": "short",
	})
	if weak.Code != http.StatusUnprocessableEntity {
		t.Errorf("weak password: status %d body %s", weak.Code, weak.Body.String())
	}

	badRole := env.do(t, http.MethodPost, "/api/admins", token, map[string]string{
		"userId": "new", "name": "New", "role": "owner", "password": "longenough",
	})
	if badRole.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad role: status %d body %s", badRole.Code, badRole.Body.String())
	}
}

func TestProtectedAdminCannotBeDeleted(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "shubham", "admin123")

	w := env.do(t, http.MethodDelete, "/api/admins/shubham", token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status %d body %s", w.Code, w.Body.String())
	}

	list := decodeMap(t, env.do(t, http.MethodGet, "/api/admins", token, nil))
	if admins, _ := list["admins"].([]any); len(admins) != 4 {
		t.Fatalf("admin count changed: %v", list)
	}
}

func TestProtectedAdminRoleIsImmutable(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "shubham", "admin123")

	demote := env.do(t, http.MethodPut, "/api/admins/shubham", token, map[string]string{"role": "admin"})
	if demote.Code != http.StatusForbidden {
		t.Fatalf("demote: status %d body %s", demote.Code, demote.Body.String())
	}

	// Name and password changes are still allowed.
	rename := env.do(t, http.MethodPut, "/api/admins/shubham", token, map[string]string{
		"name": "Shubham P", "password": "newpass123",
	})
	if rename.Code != http.StatusOK {
		t.Fatalf("rename: status %d body %s", rename.Code, rename.Body.String())
	}
	updated := decodeMap(t, rename)
	if updated["name"] != "Shubham P" || updated["role"] != "super_admin" {
		t.Fatalf("updated %v", updated)
	}

	env.login(t, "shubham", "newpass123")
	w := env.do(t, http.MethodPost, "/api/session/login", "", map[string]string{
		"userId": "shubham", "password": "admin123",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("old password still accepted: status %d", w.Code)
	}
}

func TestDeleteAdminRemovesExactlyOne(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "shubham", "admin123")

	if w := env.do(t, http.MethodDelete, "/api/admins/arati", token, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", w.Code, w.Body.String())
	}

	list := decodeMap(t, env.do(t, http.MethodGet, "/api/admins", token, nil))
	if admins, _ := list["admins"].([]any); len(admins) != 3 {
		t.Fatalf("admin count %v", list)
	}

	missing := env.do(t, http.MethodDelete, "/api/admins/arati", token, nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d body %s", missing.Code, missing.Body.String())
	}
}

func TestPromoteOtherAdmin(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "shubham", "admin123")

	w := env.do(t, http.MethodPut, "/api/admins/chandrakant", token, map[string]string{"role": "super_admin"})
	if w.Code != http.StatusOK {
		t.Fatalf("promote: status %d body %s", w.Code, w.Body.String())
	}
	updated := decodeMap(t, w)
	if updated["role"] != "super_admin" {
		t.Fatalf("updated %v", updated)
	}

	promoted := env.token(t, "chandrakant", "admin123")
	if g := env.do(t, http.MethodGet, "/api/admins", promoted, nil); g.Code != http.StatusOK {
		t.Fatalf("promoted admin denied: status %d", g.Code)
	}
}
