package app

import (
	"net/http"
	"testing"
)

func TestLoginIsCaseInsensitive(t *testing.T) {
	env := newTestEnv(t)

	payload := env.login(t, "Shubham", "admin123")
	if payload["userId"] != "shubham" || payload["role"] != "super_admin" {
		t.Fatalf("payload %v", payload)
	}
	if payload["token"] == "" || payload["refreshToken"] == "" {
		t.Fatalf("missing tokens in %v", payload)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)

	wrongPassword := env.do(t, http.MethodPost, "/api/session/login", "", map[string]string{
		"userId": "shubham", "password": "nope",
	})
	unknownUser := env.do(t, http.MethodPost, "/api/session/login", "", map[string]string{
		"userId": "nobody", "password": "admin123",
	})

	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("codes %d %d, want 401 both", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("bodies differ:\n%s\n%s", wrongPassword.Body.String(), unknownUser.Body.String())
	}
	if payload := decodeMap(t, wrongPassword); payload["code"] != "INVALID_CREDENTIALS" {
		t.Fatalf("payload %v", payload)
	}
}

func TestSessionEndpointReflectsToken(t *testing.T) {
	env := newTestEnv(t)

	anon := decodeMap(t, env.do(t, http.MethodGet, "/api/session", "", nil))
	if anon["authenticated"] != false {
		t.Fatalf("anonymous payload %v", anon)
	}

	token := env.token(t, "pooja", "admin123")
	authed := decodeMap(t, env.do(t, http.MethodGet, "/api/session", token, nil))
	if authed["authenticated"] != true || authed["userId"] != "pooja" || authed["role"] != "admin" {
		t.Fatalf("authenticated payload %v", authed)
	}

	garbage := decodeMap(t, env.do(t, http.MethodGet, "/api/session", "garbage.token", nil))
	if garbage["authenticated"] != false {
		t.Fatalf("garbage token payload %v", garbage)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	payload := env.login(t, "shubham", "admin123")
	refresh := payload["refreshToken"].(string)

	w := env.do(t, http.MethodPost, "/api/session/refresh", "", map[string]string{"refreshToken": refresh})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", w.Code, w.Body.String())
	}
	rotated := decodeMap(t, w)
	if rotated["refreshToken"] == refresh {
		t.Fatal("refresh token was not rotated")
	}
	if rotated["userId"] != "shubham" {
		t.Fatalf("payload %v", rotated)
	}

	// The old token is single use.
	again := env.do(t, http.MethodPost, "/api/session/refresh", "", map[string]string{"refreshToken": refresh})
	if again.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: status %d", again.Code)
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	env := newTestEnv(t)
	payload := env.login(t, "shubham", "admin123")
	token := payload["token"].(string)
	refresh := payload["refreshToken"].(string)

	w := env.do(t, http.MethodPost, "/api/session/logout", token, map[string]string{"refreshToken": refresh})
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status %d", w.Code)
	}

	if w := env.do(t, http.MethodGet, "/api/activities", token, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token accepted: status %d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/session/refresh", "", map[string]string{"refreshToken": refresh}); w.Code != http.StatusUnauthorized {
		t.Fatalf("revoked refresh accepted: status %d", w.Code)
	}
}

func TestRefreshAfterAccountDeleted(t *testing.T) {
	env := newTestEnv(t)
	payload := env.login(t, "arati", "admin123")
	refresh := payload["refreshToken"].(string)

	super := env.token(t, "shubham", "admin123")
	if w := env.do(t, http.MethodDelete, "/api/admins/arati", super, nil); w.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", w.Code, w.Body.String())
	}

	w := env.do(t, http.MethodPost, "/api/session/refresh", "", map[string]string{"refreshToken": refresh})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh for deleted account: status %d", w.Code)
	}
}
