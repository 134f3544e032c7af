package verify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MitsuharuNakamura/passkey-demo/internal/core/port"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(config.TwilioSettings{
		AccountSID: "AC_test",
		AuthToken:  "token_test",
		ServiceSID: "VA_test",
		BaseURL:    server.URL,
	}, nil)

	return client, server
}

func TestClient_CreateFactor(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotBody map[string]string

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()

		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sid":"YF123","options":{"rp":{"id":"localhost"}}}`))
	})

	factor, err := client.CreateFactor(context.Background(), "616c696365000000", "Alice Example")
	if err != nil {
		t.Fatalf("CreateFactor returned error: %v", err)
	}

	if gotPath != "/Services/VA_test/Passkeys/Factors" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotUser != "AC_test" || gotPass != "token_test" {
		t.Fatalf("expected basic auth credentials, got %s:%s", gotUser, gotPass)
	}
	if gotBody["friendly_name"] != "Alice Example" || gotBody["identity"] != "616c696365000000" {
		t.Fatalf("unexpected request body: %v", gotBody)
	}

	if factor.SID != "YF123" {
		t.Fatalf("expected SID YF123, got %s", factor.SID)
	}
	if !strings.Contains(string(factor.Options), `"localhost"`) {
		t.Fatalf("options must be relayed verbatim, got %s", factor.Options)
	}
}

func TestClient_VerifyFactor_ForwardsCredential(t *testing.T) {
	var gotBody []byte

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"sid":"YF123","status":"verified"}`))
	})

	credential := json.RawMessage(`{"id":"cred-1","type":"public-key"}`)
	if err := client.VerifyFactor(context.Background(), credential); err != nil {
		t.Fatalf("VerifyFactor returned error: %v", err)
	}

	if string(gotBody) != string(credential) {
		t.Fatalf("credential must pass through untouched, got %s", gotBody)
	}
}

func TestClient_CreateChallenge(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Services/VA_test/Passkeys/Challenges" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"sid":"YC456","options":{"challenge":"abc"}}`))
	})

	challenge, err := client.CreateChallenge(context.Background(), "616c696365000000")
	if err != nil {
		t.Fatalf("CreateChallenge returned error: %v", err)
	}
	if challenge.SID != "YC456" {
		t.Fatalf("expected SID YC456, got %s", challenge.SID)
	}
}

func TestClient_ApproveChallenge_Status(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		want   port.ChallengeStatus
		wantOK bool
	}{
		{"approved", `{"sid":"YC456","status":"approved"}`, port.ChallengeApproved, true},
		{"denied", `{"sid":"YC456","status":"denied"}`, port.ChallengeDenied, true},
		{"missing status", `{"sid":"YC456"}`, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})

			status, err := client.ApproveChallenge(context.Background(), json.RawMessage(`{}`))
			if tc.wantOK {
				if err != nil {
					t.Fatalf("ApproveChallenge returned error: %v", err)
				}
				if status != tc.want {
					t.Fatalf("expected status %s, got %s", tc.want, status)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error for body %s", tc.body)
			}
		})
	}
}

func TestClient_APIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":60401,"message":"Identity not found","status":400}`))
	})

	_, err := client.CreateChallenge(context.Background(), "unknown")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "Identity not found") {
		t.Fatalf("expected upstream message in error, got %v", err)
	}
}

func TestClient_CreateService(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Services" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("Passkeys.RelyingParty.Id") != "localhost" {
			t.Errorf("unexpected relying party id %q", r.PostForm.Get("Passkeys.RelyingParty.Id"))
		}
		_, _ = w.Write([]byte(`{"sid":"VA_new","friendly_name":"Passkey Demo Service"}`))
	})

	service, err := client.CreateService(context.Background(), ServiceParams{
		FriendlyName:            "Passkey Demo Service",
		RelyingPartyID:          "localhost",
		RelyingPartyName:        "Passkey Demo App",
		RelyingPartyOrigins:     []string{"http://localhost:3000"},
		AuthenticatorAttachment: "platform",
		DiscoverableCredentials: "preferred",
		UserVerification:        "preferred",
	})
	if err != nil {
		t.Fatalf("CreateService returned error: %v", err)
	}
	if service.SID != "VA_new" {
		t.Fatalf("expected SID VA_new, got %s", service.SID)
	}
}
