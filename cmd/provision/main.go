// Command provision creates or adopts a Twilio Verify service configured for
// passkeys and records its SID in the local .env file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/config"
	"github.com/MitsuharuNakamura/passkey-demo/internal/infra/verify"
)

func main() {
	var (
		serviceSID   = flag.String("service-sid", "", "adopt an existing Verify service instead of creating one (VA...)")
		friendlyName = flag.String("name", "Passkey Demo Service", "friendly name for a newly created service")
		rpID         = flag.String("rp-id", "localhost", "relying party ID")
		rpName       = flag.String("rp-name", "Passkey Demo App", "relying party display name")
		rpOrigin     = flag.String("rp-origin", "http://localhost:3000", "relying party origin")
		envPath      = flag.String("env", ".env", "env file to update with the service SID")
	)
	flag.Parse()

	_ = godotenv.Load(*envPath)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if strings.TrimSpace(cfg.Twilio.AccountSID) == "" || strings.TrimSpace(cfg.Twilio.AuthToken) == "" {
		log.Fatal("TWILIO_ACCOUNT_SID and TWILIO_AUTH_TOKEN are required; copy .env.example to .env and fill them in")
	}

	client := verify.NewClient(cfg.Twilio, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sid := strings.TrimSpace(*serviceSID)
	if sid != "" {
		if !strings.HasPrefix(sid, "VA") {
			log.Fatalf("invalid service SID %q: expected a VA-prefixed SID", sid)
		}

		service, err := client.FetchService(ctx, sid)
		if err != nil {
			log.Fatalf("service %s not found: %v", sid, err)
		}
		fmt.Printf("Found service %q (%s)\n", service.FriendlyName, service.SID)
	} else {
		fmt.Println("Creating Verify service...")
		service, err := client.CreateService(ctx, verify.ServiceParams{
			FriendlyName:            *friendlyName,
			RelyingPartyID:          *rpID,
			RelyingPartyName:        *rpName,
			RelyingPartyOrigins:     []string{*rpOrigin},
			AuthenticatorAttachment: "platform",
			DiscoverableCredentials: "preferred",
			UserVerification:        "preferred",
		})
		if err != nil {
			log.Fatalf("failed to create service: %v", err)
		}
		fmt.Printf("Created service %q (%s)\n", service.FriendlyName, service.SID)
		sid = service.SID
	}

	if err := writeServiceSID(*envPath, cfg.Twilio, sid); err != nil {
		log.Fatalf("failed to update %s: %v", *envPath, err)
	}

	fmt.Printf("Wrote TWILIO_SERVICE_SID to %s\n", *envPath)
	fmt.Println("Start the server with: go run ./cmd/api")
}

var serviceSIDLine = regexp.MustCompile(`(?m)^TWILIO_SERVICE_SID=.*$`)

// writeServiceSID updates the TWILIO_SERVICE_SID entry in the env file,
// creating the file with the current credentials when it does not exist.
func writeServiceSID(path string, twilio config.TwilioSettings, sid string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		content := fmt.Sprintf("TWILIO_ACCOUNT_SID=%s\nTWILIO_AUTH_TOKEN=%s\nTWILIO_SERVICE_SID=%s\n",
			twilio.AccountSID, twilio.AuthToken, sid)
		return os.WriteFile(path, []byte(content), 0o600)
	}

	content := string(data)
	if serviceSIDLine.MatchString(content) {
		content = serviceSIDLine.ReplaceAllString(content, "TWILIO_SERVICE_SID="+sid)
	} else {
		if !strings.HasSuffix(content, "\n") && content != "" {
			content += "\n"
		}
		content += "TWILIO_SERVICE_SID=" + sid + "\n"
	}

	return os.WriteFile(path, []byte(content), 0o600)
}
